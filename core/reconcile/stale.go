package reconcile

import (
	"context"
	"fmt"
)

// MarkStale retires the canonical identity of a record whose entry disappeared
// upstream. The claimed identity is kept with the removed qualifier, every other
// external cross reference is dropped and the record is excluded. It reports
// whether rec changed; a second call on the same record changes nothing.
func MarkStale(rec *LocalRecord, claimed string) bool {
	kept, ok := staleXref(rec, claimed)

	xrefs := rec.Xrefs[:0:0]
	changed := false
	for _, x := range rec.Xrefs {
		if x.Database == DatabaseInternal {
			xrefs = append(xrefs, x)
			continue
		}
		if ok && x == kept {
			continue
		}
		changed = true
	}
	if ok {
		tombstone := CrossRef{Database: DatabaseUniProt, Qualifier: QualifierRemoved, Value: kept.Value}
		if kept != tombstone {
			changed = true
		}
		xrefs = append([]CrossRef{tombstone}, xrefs...)
	}
	rec.Xrefs = xrefs

	if Exclude(rec, CautionObsolete) {
		changed = true
	}
	return changed
}

// staleXref picks the cross reference that survives as the tombstone.
func staleXref(rec *LocalRecord, claimed string) (CrossRef, bool) {
	var first *CrossRef
	for i, x := range rec.Xrefs {
		if x.IsIdentity() {
			if x.Value == claimed {
				return x, true
			}
			if first == nil {
				first = &rec.Xrefs[i]
			}
		}
	}
	if first != nil {
		return *first, true
	}
	for _, x := range rec.Xrefs {
		if x.Database == DatabaseUniProt && x.Qualifier == QualifierRemoved {
			return x, true
		}
	}
	return CrossRef{}, false
}

// StaleHandler applies MarkStale and persists the result.
type StaleHandler struct {
	store RecordStore
	rec   *recorder
}

func newStaleHandler(store RecordStore, rec *recorder) *StaleHandler {
	return &StaleHandler{store: store, rec: rec}
}

// Handle marks rec stale for the identity it claimed and saves it when it changed.
func (h *StaleHandler) Handle(ctx context.Context, rec *LocalRecord, claimed string) error {
	if !MarkStale(rec, claimed) {
		return nil
	}
	if err := h.store.Save(ctx, rec); err != nil {
		return fmt.Errorf("failed to save stale record %d: %w", rec.ID, err)
	}
	h.rec.excluded(rec.ID, CautionObsolete)
	return nil
}
