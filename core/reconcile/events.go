package reconcile

import (
	"go.uber.org/zap"
)

// RangeShiftedEvent reports a range moved onto a new sequence.
type RangeShiftedEvent struct {
	RecordID RecordID `json:"record_id"`
	LinkID   LinkID   `json:"link_id"`
	Before   Range    `json:"before"`
	After    Range    `json:"after"`
}

// DuplicatesFoundEvent reports a duplicate group and the record chosen to survive.
type DuplicatesFoundEvent struct {
	Accession string     `json:"accession"`
	Members   []RecordID `json:"members"`
	Reference RecordID   `json:"reference"`
}

// TranscriptCreatedEvent reports a record derived to hold conflicted links.
type TranscriptCreatedEvent struct {
	RecordID   RecordID `json:"record_id"`
	SourceID   RecordID `json:"source_id"`
	Accession  string   `json:"accession"`
	Deprecated bool     `json:"deprecated"`
	Links      int      `json:"links"`
}

// ParentRemappedEvent reports a parent reference rewritten from a dead record.
type ParentRemappedEvent struct {
	Transcript RecordID   `json:"transcript"`
	Kind       ParentKind `json:"kind"`
	From       RecordID   `json:"from"`
	To         RecordID   `json:"to"`
}

// RecordExcludedEvent reports a record tagged as excluded from reconciliation.
type RecordExcludedEvent struct {
	RecordID RecordID `json:"record_id"`
	Reason   string   `json:"reason"`
}

// RecordDeletedEvent reports a deleted record.
type RecordDeletedEvent struct {
	RecordID RecordID `json:"record_id"`
	Reason   string   `json:"reason"`
}

// EventSink receives advisory events from a pass. Sinks never influence control flow
// and must be safe for concurrent use when passes run in parallel.
type EventSink interface {
	RangeShifted(RangeShiftedEvent)
	RangeInvalid(InvalidRange)
	DuplicatesFound(DuplicatesFoundEvent)
	TranscriptCreated(TranscriptCreatedEvent)
	ParentRemapped(ParentRemappedEvent)
	RecordExcluded(RecordExcludedEvent)
	RecordDeleted(RecordDeletedEvent)
	ProcessError(*ProcessError)
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) RangeShifted(RangeShiftedEvent)           {}
func (NopSink) RangeInvalid(InvalidRange)                {}
func (NopSink) DuplicatesFound(DuplicatesFoundEvent)     {}
func (NopSink) TranscriptCreated(TranscriptCreatedEvent) {}
func (NopSink) ParentRemapped(ParentRemappedEvent)       {}
func (NopSink) RecordExcluded(RecordExcludedEvent)       {}
func (NopSink) RecordDeleted(RecordDeletedEvent)         {}
func (NopSink) ProcessError(*ProcessError)               {}

// MultiSink fans events out to several sinks in order.
type MultiSink []EventSink

func (m MultiSink) RangeShifted(e RangeShiftedEvent) {
	for _, s := range m {
		s.RangeShifted(e)
	}
}

func (m MultiSink) RangeInvalid(e InvalidRange) {
	for _, s := range m {
		s.RangeInvalid(e)
	}
}

func (m MultiSink) DuplicatesFound(e DuplicatesFoundEvent) {
	for _, s := range m {
		s.DuplicatesFound(e)
	}
}

func (m MultiSink) TranscriptCreated(e TranscriptCreatedEvent) {
	for _, s := range m {
		s.TranscriptCreated(e)
	}
}

func (m MultiSink) ParentRemapped(e ParentRemappedEvent) {
	for _, s := range m {
		s.ParentRemapped(e)
	}
}

func (m MultiSink) RecordExcluded(e RecordExcludedEvent) {
	for _, s := range m {
		s.RecordExcluded(e)
	}
}

func (m MultiSink) RecordDeleted(e RecordDeletedEvent) {
	for _, s := range m {
		s.RecordDeleted(e)
	}
}

func (m MultiSink) ProcessError(e *ProcessError) {
	for _, s := range m {
		s.ProcessError(e)
	}
}

// bufferedSink holds events back until the pass they belong to is committed.
type bufferedSink struct {
	events []func(EventSink)
}

func (b *bufferedSink) add(fn func(EventSink)) { b.events = append(b.events, fn) }

func (b *bufferedSink) RangeShifted(e RangeShiftedEvent) {
	b.add(func(s EventSink) { s.RangeShifted(e) })
}

func (b *bufferedSink) RangeInvalid(e InvalidRange) {
	b.add(func(s EventSink) { s.RangeInvalid(e) })
}

func (b *bufferedSink) DuplicatesFound(e DuplicatesFoundEvent) {
	b.add(func(s EventSink) { s.DuplicatesFound(e) })
}

func (b *bufferedSink) TranscriptCreated(e TranscriptCreatedEvent) {
	b.add(func(s EventSink) { s.TranscriptCreated(e) })
}

func (b *bufferedSink) ParentRemapped(e ParentRemappedEvent) {
	b.add(func(s EventSink) { s.ParentRemapped(e) })
}

func (b *bufferedSink) RecordExcluded(e RecordExcludedEvent) {
	b.add(func(s EventSink) { s.RecordExcluded(e) })
}

func (b *bufferedSink) RecordDeleted(e RecordDeletedEvent) {
	b.add(func(s EventSink) { s.RecordDeleted(e) })
}

func (b *bufferedSink) ProcessError(e *ProcessError) {
	b.add(func(s EventSink) { s.ProcessError(e) })
}

// flush replays the held events on s in their original order.
func (b *bufferedSink) flush(s EventSink) {
	for _, fn := range b.events {
		fn(s)
	}
	b.events = nil
}

// LogSink writes every event to a zap logger.
type LogSink struct {
	Logger *zap.Logger
}

// NewLogSink creates a sink logging through l.
func NewLogSink(l *zap.Logger) *LogSink {
	return &LogSink{Logger: l}
}

func (s *LogSink) RangeShifted(e RangeShiftedEvent) {
	s.Logger.Debug("Range shifted",
		zap.Int64("record_id", int64(e.RecordID)),
		zap.Int64("link_id", int64(e.LinkID)),
		zap.Stringer("before", &e.Before),
		zap.Stringer("after", &e.After),
	)
}

func (s *LogSink) RangeInvalid(e InvalidRange) {
	s.Logger.Warn("Invalid range",
		zap.Int64("record_id", int64(e.RecordID)),
		zap.Int64("link_id", int64(e.LinkID)),
		zap.Stringer("range", &e.Range),
		zap.Bool("pre_existing", e.PreExisting),
		zap.String("message", e.Message),
	)
}

func (s *LogSink) DuplicatesFound(e DuplicatesFoundEvent) {
	ids := make([]int64, len(e.Members))
	for i, id := range e.Members {
		ids[i] = int64(id)
	}
	s.Logger.Info("Duplicates found",
		zap.String("accession", e.Accession),
		zap.Int64s("members", ids),
		zap.Int64("reference", int64(e.Reference)),
	)
}

func (s *LogSink) TranscriptCreated(e TranscriptCreatedEvent) {
	s.Logger.Info("Record derived for conflicted links",
		zap.Int64("record_id", int64(e.RecordID)),
		zap.Int64("source_id", int64(e.SourceID)),
		zap.String("accession", e.Accession),
		zap.Bool("deprecated", e.Deprecated),
		zap.Int("links", e.Links),
	)
}

func (s *LogSink) ParentRemapped(e ParentRemappedEvent) {
	s.Logger.Info("Parent remapped",
		zap.Int64("transcript", int64(e.Transcript)),
		zap.String("kind", string(e.Kind)),
		zap.Int64("from", int64(e.From)),
		zap.Int64("to", int64(e.To)),
	)
}

func (s *LogSink) RecordExcluded(e RecordExcludedEvent) {
	s.Logger.Warn("Record excluded from reconciliation",
		zap.Int64("record_id", int64(e.RecordID)),
		zap.String("reason", e.Reason),
	)
}

func (s *LogSink) RecordDeleted(e RecordDeletedEvent) {
	s.Logger.Info("Record deleted",
		zap.Int64("record_id", int64(e.RecordID)),
		zap.String("reason", e.Reason),
	)
}

func (s *LogSink) ProcessError(e *ProcessError) {
	s.Logger.Error("Reconciliation error",
		zap.String("kind", string(e.Kind)),
		zap.Int64("record_id", int64(e.RecordID)),
		zap.String("accession", e.Accession),
		zap.String("message", e.Message),
		zap.Error(e.Err),
	)
}
