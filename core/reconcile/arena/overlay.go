package arena

import (
	"context"
	"sync"

	"protein-updater/core/reconcile"
)

// Overlay is a copy-on-write RecordStore layered over a Store or another Overlay.
// Writes stay in the overlay until Commit; dropping it discards them, which is how
// dry runs are executed.
type Overlay struct {
	base backend

	mu sync.RWMutex
	// A nil value marks a deletion.
	records map[reconcile.RecordID]*reconcile.LocalRecord
	links   map[reconcile.LinkID]*reconcile.ActiveLink
}

func newOverlay(base backend) *Overlay {
	return &Overlay{
		base:    base,
		records: make(map[reconcile.RecordID]*reconcile.LocalRecord),
		links:   make(map[reconcile.LinkID]*reconcile.ActiveLink),
	}
}

// Get returns a copy of the record with its links.
func (o *Overlay) Get(_ context.Context, id reconcile.RecordID) (*reconcile.LocalRecord, error) {
	rec, ok := o.record(id)
	if !ok {
		return nil, reconcile.ErrNotFound
	}
	return materialize(o, rec), nil
}

// FindByXref returns copies of the records carrying the cross reference, ordered by id.
func (o *Overlay) FindByXref(_ context.Context, database, qualifier, value string) ([]*reconcile.LocalRecord, error) {
	return find(o, byXref(database, qualifier, value)), nil
}

// FindByParent returns copies of the transcripts referencing target, ordered by id.
func (o *Overlay) FindByParent(_ context.Context, target reconcile.RecordID) ([]*reconcile.LocalRecord, error) {
	return find(o, byParent(target)), nil
}

// Save records a copy of rec and of the links it lists in the overlay.
func (o *Overlay) Save(_ context.Context, rec *reconcile.LocalRecord) error {
	stored, links := stage(o, rec)
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records[stored.ID] = stored
	for _, l := range links {
		o.links[l.ID] = l
	}
	return nil
}

// Delete marks a record without links as deleted.
func (o *Overlay) Delete(_ context.Context, id reconcile.RecordID) error {
	if _, ok := o.record(id); !ok {
		return reconcile.ErrNotFound
	}
	if len(linksOf(o, id)) > 0 {
		return reconcile.ErrRecordHasLinks
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records[id] = nil
	return nil
}

// DeleteLink marks a link as deleted.
func (o *Overlay) DeleteLink(_ context.Context, id reconcile.LinkID) error {
	if _, ok := o.link(id); !ok {
		return reconcile.ErrNotFound
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.links[id] = nil
	return nil
}

// CountLinks returns the number of links owned by the record.
func (o *Overlay) CountLinks(_ context.Context, id reconcile.RecordID) (int, error) {
	return len(linksOf(o, id)), nil
}

// Accessions lists the identities claimed by admitted master records.
func (o *Overlay) Accessions(_ context.Context) ([]string, error) {
	return accessions(o), nil
}

// Transaction runs fn against a nested overlay and commits it into o when fn succeeds.
func (o *Overlay) Transaction(_ context.Context, fn func(reconcile.RecordStore) error) error {
	nested := newOverlay(o)
	if err := fn(nested); err != nil {
		return err
	}
	nested.Commit()
	return nil
}

// Commit writes the overlay's changes into its base and resets it.
func (o *Overlay) Commit() {
	o.mu.Lock()
	records, links := o.records, o.links
	o.records = make(map[reconcile.RecordID]*reconcile.LocalRecord)
	o.links = make(map[reconcile.LinkID]*reconcile.ActiveLink)
	o.mu.Unlock()
	o.base.apply(records, links)
}

// Changes returns the number of records and links written or deleted in the overlay.
func (o *Overlay) Changes() (records, links int) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.records), len(o.links)
}

func (o *Overlay) record(id reconcile.RecordID) (*reconcile.LocalRecord, bool) {
	o.mu.RLock()
	rec, ok := o.records[id]
	o.mu.RUnlock()
	if ok {
		return rec, rec != nil
	}
	return o.base.record(id)
}

func (o *Overlay) recordIDs() []reconcile.RecordID {
	merged := make(map[reconcile.RecordID]struct{})
	for _, id := range o.base.recordIDs() {
		merged[id] = struct{}{}
	}
	o.mu.RLock()
	for id, rec := range o.records {
		if rec == nil {
			delete(merged, id)
		} else {
			merged[id] = struct{}{}
		}
	}
	o.mu.RUnlock()
	return sortedIDs(merged)
}

func (o *Overlay) link(id reconcile.LinkID) (*reconcile.ActiveLink, bool) {
	o.mu.RLock()
	l, ok := o.links[id]
	o.mu.RUnlock()
	if ok {
		return l, l != nil
	}
	return o.base.link(id)
}

func (o *Overlay) linkList() []*reconcile.ActiveLink {
	base := o.base.linkList()
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]*reconcile.ActiveLink, 0, len(base)+len(o.links))
	for _, l := range base {
		if _, shadowed := o.links[l.ID]; !shadowed {
			out = append(out, l)
		}
	}
	for _, l := range o.links {
		if l != nil {
			out = append(out, l)
		}
	}
	return out
}

func (o *Overlay) nextID(k idKind) int64 {
	return o.base.nextID(k)
}

func (o *Overlay) apply(records map[reconcile.RecordID]*reconcile.LocalRecord, links map[reconcile.LinkID]*reconcile.ActiveLink) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for id, rec := range records {
		o.records[id] = rec
	}
	for id, l := range links {
		o.links[id] = l
	}
}
