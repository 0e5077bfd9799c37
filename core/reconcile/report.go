package reconcile

// Report collects everything a pass did. It is the explicit result of Engine.Run;
// the event sink receives the same facts as they happen.
type Report struct {
	// Accession is the canonical id the pass was run for.
	Accession string `json:"accession"`

	// Found is false when the external database no longer has the entry.
	Found bool `json:"found"`

	// Candidates lists every local record considered by the pass.
	Candidates []RecordID `json:"candidates"`

	Shifted       []RangeShiftedEvent      `json:"shifted,omitempty"`
	InvalidRanges []InvalidRange           `json:"invalid_ranges,omitempty"`
	Duplicates    []DuplicatesFoundEvent   `json:"duplicates,omitempty"`
	Created       []TranscriptCreatedEvent `json:"created,omitempty"`
	Remapped      []ParentRemappedEvent    `json:"remapped,omitempty"`
	Excluded      []RecordExcludedEvent    `json:"excluded,omitempty"`
	Deleted       []RecordDeletedEvent     `json:"deleted,omitempty"`
	Errors        []*ProcessError          `json:"errors,omitempty"`
}

// ReportSummary provides aggregate counts for a report.
type ReportSummary struct {
	Candidates    int `json:"candidates"`
	ShiftedRanges int `json:"shifted_ranges"`
	InvalidRanges int `json:"invalid_ranges"`
	Merged        int `json:"merged"`
	Created       int `json:"created"`
	Remapped      int `json:"remapped"`
	Excluded      int `json:"excluded"`
	Deleted       int `json:"deleted"`
	Errors        int `json:"errors"`
}

// Summary returns aggregate counts.
func (r *Report) Summary() ReportSummary {
	s := ReportSummary{
		Candidates:    len(r.Candidates),
		ShiftedRanges: len(r.Shifted),
		InvalidRanges: len(r.InvalidRanges),
		Created:       len(r.Created),
		Remapped:      len(r.Remapped),
		Excluded:      len(r.Excluded),
		Deleted:       len(r.Deleted),
		Errors:        len(r.Errors),
	}
	for _, d := range r.Duplicates {
		s.Merged += len(d.Members) - 1
	}
	return s
}

// ErrorsOf returns the reported errors of the given kind.
func (r *Report) ErrorsOf(kind ErrorKind) []*ProcessError {
	var out []*ProcessError
	for _, e := range r.Errors {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// recorder forwards events to the sink and appends them to the report.
// A pass is sequential, so no locking is needed.
type recorder struct {
	sink   EventSink
	report *Report
}

func newRecorder(sink EventSink, report *Report) *recorder {
	if sink == nil {
		sink = NopSink{}
	}
	if report == nil {
		report = &Report{}
	}
	return &recorder{sink: sink, report: report}
}

func (r *recorder) shifted(e RangeShiftedEvent) {
	r.report.Shifted = append(r.report.Shifted, e)
	r.sink.RangeShifted(e)
}

// invalid reports the range. Features of ranges that were already invalid are
// annotated right away; newly invalid ones travel with their held link and are
// annotated only if the link finds no better home.
func (r *recorder) invalid(e InvalidRange) {
	if e.feature != nil && e.PreExisting {
		MarkInvalidRange(e.feature, e.Message)
	}
	r.report.InvalidRanges = append(r.report.InvalidRanges, e)
	r.sink.RangeInvalid(e)
}

func (r *recorder) remapped(res RemapResult) {
	for _, e := range res.Shifts {
		r.shifted(e)
	}
	for _, e := range res.Invalid {
		r.invalid(e)
	}
}

func (r *recorder) duplicates(e DuplicatesFoundEvent) {
	r.report.Duplicates = append(r.report.Duplicates, e)
	r.sink.DuplicatesFound(e)
}

func (r *recorder) created(e TranscriptCreatedEvent) {
	r.report.Created = append(r.report.Created, e)
	r.sink.TranscriptCreated(e)
}

func (r *recorder) parentRemapped(e ParentRemappedEvent) {
	r.report.Remapped = append(r.report.Remapped, e)
	r.sink.ParentRemapped(e)
}

func (r *recorder) excluded(id RecordID, reason string) {
	e := RecordExcludedEvent{RecordID: id, Reason: reason}
	r.report.Excluded = append(r.report.Excluded, e)
	r.sink.RecordExcluded(e)
}

func (r *recorder) deleted(id RecordID, reason string) {
	e := RecordDeletedEvent{RecordID: id, Reason: reason}
	r.report.Deleted = append(r.report.Deleted, e)
	r.sink.RecordDeleted(e)
}

func (r *recorder) failed(e *ProcessError) {
	if e == nil {
		return
	}
	r.report.Errors = append(r.report.Errors, e)
	r.sink.ProcessError(e)
}
