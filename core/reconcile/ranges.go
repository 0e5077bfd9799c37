package reconcile

import (
	"fmt"
	"strings"
)

// InvalidRange reports a range that could not be placed on a sequence.
type InvalidRange struct {
	RecordID  RecordID  `json:"record_id"`
	LinkID    LinkID    `json:"link_id"`
	FeatureID FeatureID `json:"feature_id"`
	// Range holds the positions at the time of the failure.
	Range Range `json:"range"`
	// Sequence is the sequence the range was checked against.
	Sequence string `json:"sequence_at_failure"`
	Message  string `json:"message"`
	// PreExisting is set when the range was already invalid before this pass and
	// therefore does not hold back its link.
	PreExisting bool `json:"pre_existing"`

	feature *Feature
}

// ValidateRange checks r against seq and returns a description of the first problem,
// or "" if the range is valid. An empty seq only checks status consistency and ordering.
func ValidateRange(r *Range, seq string) string {
	if msg := validateEndpoint("from", r.FromStatus, r.FromStart, r.FromEnd, seq); msg != "" {
		return msg
	}
	if msg := validateEndpoint("to", r.ToStatus, r.ToStart, r.ToEnd, seq); msg != "" {
		return msg
	}
	if r.FromStatus == StatusUndetermined || r.ToStatus == StatusUndetermined {
		return ""
	}
	if r.FromStart > r.ToStart || r.FromEnd > r.ToEnd {
		return fmt.Sprintf("range %s: from interval ends after the to interval", r)
	}
	return ""
}

func validateEndpoint(name string, status RangeStatus, start, end int, seq string) string {
	length := len(seq)
	switch status {
	case StatusUndetermined:
		if start != 0 || end != 0 {
			return fmt.Sprintf("%s interval %d-%d: undetermined positions must be 0", name, start, end)
		}
		return ""
	case StatusNTerminal:
		if start != 1 || end != 1 {
			return fmt.Sprintf("%s interval %d-%d: n-terminal positions must be 1", name, start, end)
		}
		return ""
	case StatusCTerminal:
		if start != end {
			return fmt.Sprintf("%s interval %d-%d: c-terminal positions must be equal", name, start, end)
		}
		if length > 0 && start != length {
			return fmt.Sprintf("%s interval %d-%d: c-terminal position must be the sequence length %d", name, start, end, length)
		}
		return ""
	case StatusCertain, StatusGreaterThan, StatusLessThan:
		if start != end {
			return fmt.Sprintf("%s interval %d-%d: %s positions must be equal", name, start, end, status)
		}
	case StatusRange:
		if start > end {
			return fmt.Sprintf("%s interval %d-%d: start after end", name, start, end)
		}
	default:
		return fmt.Sprintf("%s interval: unknown status %q", name, status)
	}
	if start < 1 {
		return fmt.Sprintf("%s interval %d-%d is before the sequence start", name, start, end)
	}
	if length > 0 && end > length {
		return fmt.Sprintf("%s interval %d-%d is out of the sequence bounds (1-%d)", name, start, end, length)
	}
	return ""
}

// span returns the outermost determined positions of the range.
func span(r *Range) (lo, hi int, ok bool) {
	fromSet := r.FromStatus != StatusUndetermined
	toSet := r.ToStatus != StatusUndetermined
	switch {
	case fromSet && toSet:
		return r.FromStart, r.ToEnd, true
	case fromSet:
		return r.FromStart, r.FromEnd, true
	case toSet:
		return r.ToStart, r.ToEnd, true
	}
	return 0, 0, false
}

// shiftSpan returns the outermost positions of the shiftable endpoints.
func shiftSpan(r *Range) (lo, hi int, ok bool) {
	fromShift := r.FromStatus.Shiftable()
	toShift := r.ToStatus.Shiftable()
	switch {
	case fromShift && toShift:
		return r.FromStart, r.ToEnd, true
	case fromShift:
		return r.FromStart, r.FromEnd, true
	case toShift:
		return r.ToStart, r.ToEnd, true
	}
	return 0, 0, false
}

// resolve re-resolves terminus endpoints against seq and refreshes the cached
// subsequence when the positions fall inside seq.
func resolve(r Range, seq string) Range {
	if seq != "" {
		if r.FromStatus == StatusNTerminal {
			r.FromStart, r.FromEnd = 1, 1
		}
		if r.ToStatus == StatusNTerminal {
			r.ToStart, r.ToEnd = 1, 1
		}
		if r.FromStatus == StatusCTerminal {
			r.FromStart, r.FromEnd = len(seq), len(seq)
		}
		if r.ToStatus == StatusCTerminal {
			r.ToStart, r.ToEnd = len(seq), len(seq)
		}
	}
	r.Sequence = ""
	if lo, hi, ok := span(&r); ok && lo >= 1 && hi >= lo && hi <= len(seq) {
		r.Sequence = seq[lo-1 : hi]
	}
	return r
}

func shift(r Range, offset int) Range {
	if r.FromStatus.Shiftable() {
		r.FromStart += offset
		r.FromEnd += offset
	}
	if r.ToStatus.Shiftable() {
		r.ToStart += offset
		r.ToEnd += offset
	}
	return r
}

// indexAll returns the 0-based offsets of every occurrence of sub in s,
// overlapping occurrences included.
func indexAll(s, sub string) []int {
	var found []int
	if sub == "" {
		return found
	}
	for start := 0; start+len(sub) <= len(s); {
		i := strings.Index(s[start:], sub)
		if i < 0 {
			break
		}
		found = append(found, start+i)
		start += i + 1
	}
	return found
}
