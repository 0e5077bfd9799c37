package reconcile

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure reported by a reconciliation pass.
type ErrorKind string

const (
	KindMultipleCanonicalIdentities ErrorKind = "multiple_canonical_identities"
	KindNoCanonicalIdentity         ErrorKind = "no_canonical_identity"
	KindRangeInvalid                ErrorKind = "range_invalid"
	KindMixedParentKinds            ErrorKind = "mixed_parent_kinds"
	KindAmbiguousParent             ErrorKind = "ambiguous_parent"
	KindOrphanTranscript            ErrorKind = "orphan_transcript"
	KindDeadParent                  ErrorKind = "dead_parent"
	KindAmbiguousRemap              ErrorKind = "ambiguous_remap"
	KindCloneFailed                 ErrorKind = "clone_failed"
	KindUnresolvedConflict          ErrorKind = "unresolved_conflict"
)

// Sentinel errors, one per kind, for errors.Is checks.
var (
	ErrMultipleCanonicalIdentities = errors.New(string(KindMultipleCanonicalIdentities))
	ErrNoCanonicalIdentity         = errors.New(string(KindNoCanonicalIdentity))
	ErrRangeInvalid                = errors.New(string(KindRangeInvalid))
	ErrMixedParentKinds            = errors.New(string(KindMixedParentKinds))
	ErrAmbiguousParent             = errors.New(string(KindAmbiguousParent))
	ErrOrphanTranscript            = errors.New(string(KindOrphanTranscript))
	ErrDeadParent                  = errors.New(string(KindDeadParent))
	ErrAmbiguousRemap              = errors.New(string(KindAmbiguousRemap))
	ErrCloneFailed                 = errors.New(string(KindCloneFailed))
	ErrUnresolvedConflict          = errors.New(string(KindUnresolvedConflict))
)

var sentinels = map[ErrorKind]error{
	KindMultipleCanonicalIdentities: ErrMultipleCanonicalIdentities,
	KindNoCanonicalIdentity:         ErrNoCanonicalIdentity,
	KindRangeInvalid:                ErrRangeInvalid,
	KindMixedParentKinds:            ErrMixedParentKinds,
	KindAmbiguousParent:             ErrAmbiguousParent,
	KindOrphanTranscript:            ErrOrphanTranscript,
	KindDeadParent:                  ErrDeadParent,
	KindAmbiguousRemap:              ErrAmbiguousRemap,
	KindCloneFailed:                 ErrCloneFailed,
	KindUnresolvedConflict:          ErrUnresolvedConflict,
}

// ProcessError is a non-fatal failure affecting one record or group.
// It is collected in the pass report and sent to the event sink.
type ProcessError struct {
	Kind      ErrorKind `json:"kind"`
	RecordID  RecordID  `json:"record_id,omitempty"`
	Accession string    `json:"accession,omitempty"`
	Message   string    `json:"message"`
	Err       error     `json:"-"`
}

// Error implements the error interface
func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.RecordID != 0 {
		msg = fmt.Sprintf("%s (record %d)", msg, e.RecordID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements errors.Unwrap
func (e *ProcessError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ProcessError) Is(target error) bool {
	return sentinels[e.Kind] == target
}

func newProcessError(kind ErrorKind, rec *LocalRecord, format string, args ...any) *ProcessError {
	pe := &ProcessError{Kind: kind, Message: fmt.Sprintf(format, args...)}
	if rec != nil {
		pe.RecordID = rec.ID
		pe.Accession = rec.Identity()
	}
	return pe
}

// Store errors.
var (
	// ErrNotFound is returned by a RecordStore when no record has the requested id.
	ErrNotFound = errors.New("record not found")
	// ErrRecordHasLinks is returned when deleting a record that still owns links.
	ErrRecordHasLinks = errors.New("record still owns active links")
)
