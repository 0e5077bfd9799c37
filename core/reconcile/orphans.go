package reconcile

import (
	"context"
	"fmt"
)

const reasonNoLinks = "no active links"

// OrphanCollector deletes records of a pass that no longer own any link.
type OrphanCollector struct {
	store RecordStore
	rec   *recorder
	sweep bool
}

// NewOrphanCollector creates a collector. With sweep set, a link-less master whose
// transcripts are all link-less is deleted together with them.
func NewOrphanCollector(store RecordStore, sink EventSink, sweep bool) *OrphanCollector {
	return newOrphanCollector(store, newRecorder(sink, nil), sweep)
}

func newOrphanCollector(store RecordStore, rec *recorder, sweep bool) *OrphanCollector {
	return &OrphanCollector{store: store, rec: rec, sweep: sweep}
}

// Collect deletes the link-less records of batch and returns their ids.
// A master is never deleted while one of its transcripts still owns links.
// Protected records are never deleted and keep their master alive.
func (o *OrphanCollector) Collect(ctx context.Context, batch []*LocalRecord, protected ...RecordID) ([]RecordID, error) {
	var transcripts, masters []RecordID
	keep := make(map[RecordID]struct{}, len(protected))
	for _, id := range protected {
		keep[id] = struct{}{}
	}
	marked := make(map[RecordID]struct{})
	mark := func(id RecordID, into *[]RecordID) {
		if _, ok := marked[id]; ok {
			return
		}
		marked[id] = struct{}{}
		*into = append(*into, id)
	}

	for _, r := range sortByID(batch) {
		if _, ok := keep[r.ID]; ok || !r.IsTranscript() {
			continue
		}
		n, err := o.store.CountLinks(ctx, r.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count links of %d: %w", r.ID, err)
		}
		if n == 0 {
			mark(r.ID, &transcripts)
		}
	}

	for _, r := range sortByID(batch) {
		if _, ok := keep[r.ID]; ok || r.IsTranscript() {
			continue
		}
		n, err := o.store.CountLinks(ctx, r.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count links of %d: %w", r.ID, err)
		}
		if n > 0 {
			continue
		}
		children, err := o.store.FindByParent(ctx, r.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load transcripts of %d: %w", r.ID, err)
		}
		if len(children) == 0 {
			mark(r.ID, &masters)
			continue
		}
		linked := false
		for _, c := range children {
			if _, ok := keep[c.ID]; ok {
				linked = true
				break
			}
			cn, err := o.store.CountLinks(ctx, c.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to count links of %d: %w", c.ID, err)
			}
			if cn > 0 {
				linked = true
				break
			}
		}
		if linked || !o.sweep {
			continue
		}
		for _, c := range sortByID(children) {
			mark(c.ID, &transcripts)
		}
		mark(r.ID, &masters)
	}

	deleted := make([]RecordID, 0, len(transcripts)+len(masters))
	for _, id := range append(transcripts, masters...) {
		if err := o.store.Delete(ctx, id); err != nil {
			return nil, fmt.Errorf("failed to delete orphan %d: %w", id, err)
		}
		o.rec.deleted(id, reasonNoLinks)
		deleted = append(deleted, id)
	}
	return deleted, nil
}
