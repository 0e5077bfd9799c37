package reconcile

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// RemapResult is the outcome of moving the ranges of a set of links onto a new sequence.
type RemapResult struct {
	// Shifted holds links whose ranges were all placed; they were updated in place.
	Shifted []*ActiveLink
	// ToFix holds links with at least one newly invalid range. They are left untouched.
	ToFix []*ActiveLink
	// Invalid lists newly invalid ranges and ranges that were invalid before the pass.
	Invalid []InvalidRange
	// Shifts lists every range whose positions or cached subsequence changed.
	Shifts []RangeShiftedEvent
	// Fixed lists features whose invalid-range markers were cleared.
	Fixed []*Feature
}

// Remap places the ranges of links, computed against oldSeq, onto newSeq.
//
// An empty oldSeq means the record had no sequence: ranges are only resolved against
// newSeq. Equal sequences only re-validate. Otherwise every valid range is relocated
// by finding the residues it covered in newSeq; ranges that cannot be relocated are
// newly invalid and hold back their whole link.
func Remap(oldSeq, newSeq string, links []*ActiveLink) RemapResult {
	var res RemapResult
	al := &aligner{old: oldSeq, new: newSeq}

	type pending struct {
		r    *Range
		next Range
	}

	for _, link := range links {
		var (
			updates      []pending
			invalid      []InvalidRange
			newlyInvalid bool
			healthy      []*Feature
		)
		for _, f := range link.Features {
			ok := true
			for _, r := range f.Ranges {
				next, msg, pre := placeRange(r, oldSeq, newSeq, al)
				if msg != "" {
					seq := newSeq
					if pre {
						seq = oldSeq
					}
					invalid = append(invalid, InvalidRange{
						RecordID:    link.Owner,
						LinkID:      link.ID,
						FeatureID:   f.ID,
						Range:       *r,
						Sequence:    seq,
						Message:     msg,
						PreExisting: pre,
						feature:     f,
					})
					ok = false
					if !pre {
						newlyInvalid = true
					}
					continue
				}
				updates = append(updates, pending{r: r, next: next})
			}
			if ok {
				healthy = append(healthy, f)
			}
		}

		res.Invalid = append(res.Invalid, invalid...)
		if newlyInvalid {
			res.ToFix = append(res.ToFix, link)
			continue
		}

		for _, u := range updates {
			if *u.r != u.next {
				res.Shifts = append(res.Shifts, RangeShiftedEvent{
					RecordID: link.Owner,
					LinkID:   link.ID,
					Before:   *u.r,
					After:    u.next,
				})
				*u.r = u.next
			}
		}
		for _, f := range healthy {
			if clearInvalidRange(f) {
				res.Fixed = append(res.Fixed, f)
			}
		}
		res.Shifted = append(res.Shifted, link)
	}
	return res
}

// placeRange computes the new state of r. A non-empty message means the range is
// invalid; pre reports whether it was already invalid against oldSeq.
func placeRange(r *Range, oldSeq, newSeq string, al *aligner) (next Range, msg string, pre bool) {
	if oldSeq == "" {
		next = resolve(*r, newSeq)
		if msg = ValidateRange(&next, newSeq); msg != "" {
			return Range{}, msg, false
		}
		return next, "", false
	}

	if msg = ValidateRange(r, oldSeq); msg != "" {
		// Already broken: the new sequence may happen to fit the stored positions.
		next = resolve(*r, newSeq)
		if ValidateRange(&next, newSeq) == "" {
			return next, "", false
		}
		return Range{}, msg, true
	}

	if sameSequence(oldSeq, newSeq) {
		return resolve(*r, newSeq), "", false
	}

	offset, msg := al.offset(r)
	if msg != "" {
		return Range{}, msg, false
	}
	next = resolve(shift(*r, offset), newSeq)
	if msg = ValidateRange(&next, newSeq); msg != "" {
		return Range{}, msg, false
	}
	return next, "", false
}

// aligner locates old residues in the new sequence. The residue alignment is only
// computed when a segment occurs more than once.
type aligner struct {
	old, new string
	blocks   []difflib.Match
	aligned  bool
}

// offset returns the translation to apply to the shiftable endpoints of r.
func (a *aligner) offset(r *Range) (int, string) {
	lo, hi, ok := shiftSpan(r)
	if !ok {
		return 0, ""
	}
	segment := strings.ToUpper(a.old[lo-1 : hi])
	hits := indexAll(strings.ToUpper(a.new), segment)
	switch len(hits) {
	case 0:
		return 0, fmt.Sprintf("range %s: residues %s not found in the new sequence", r, segment)
	case 1:
		return hits[0] + 1 - lo, ""
	}

	pos, ok := a.alignedPosition(lo)
	if ok {
		for _, h := range hits {
			if h+1 == pos {
				return pos - lo, ""
			}
		}
	}
	return 0, fmt.Sprintf("range %s: residues %s occur %d times in the new sequence", r, segment, len(hits))
}

// alignedPosition maps a 1-based position of the old sequence onto the new one.
func (a *aligner) alignedPosition(pos int) (int, bool) {
	if !a.aligned {
		m := difflib.NewMatcherWithJunk(residues(a.old), residues(a.new), false, nil)
		a.blocks = m.GetMatchingBlocks()
		a.aligned = true
	}
	i := pos - 1
	for _, b := range a.blocks {
		if b.Size > 0 && i >= b.A && i < b.A+b.Size {
			return b.B + (i - b.A) + 1, true
		}
	}
	return 0, false
}

func residues(seq string) []string {
	out := make([]string, len(seq))
	for i := 0; i < len(seq); i++ {
		out[i] = strings.ToUpper(seq[i : i+1])
	}
	return out
}
