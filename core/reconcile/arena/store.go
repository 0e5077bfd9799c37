package arena

import (
	"context"
	"sync"
	"sync/atomic"

	"protein-updater/core/reconcile"
)

// Store is an in-memory RecordStore. Records and links live in flat tables keyed by
// id; links name their owner. Callers always receive copies.
type Store struct {
	mu      sync.RWMutex
	records map[reconcile.RecordID]*reconcile.LocalRecord
	links   map[reconcile.LinkID]*reconcile.ActiveLink
	ids     [4]atomic.Int64
}

// New creates an empty store.
func New() *Store {
	return &Store{
		records: make(map[reconcile.RecordID]*reconcile.LocalRecord),
		links:   make(map[reconcile.LinkID]*reconcile.ActiveLink),
	}
}

// Get returns a copy of the record with its links.
func (s *Store) Get(_ context.Context, id reconcile.RecordID) (*reconcile.LocalRecord, error) {
	rec, ok := s.record(id)
	if !ok {
		return nil, reconcile.ErrNotFound
	}
	return materialize(s, rec), nil
}

// FindByXref returns copies of the records carrying the cross reference, ordered by id.
func (s *Store) FindByXref(_ context.Context, database, qualifier, value string) ([]*reconcile.LocalRecord, error) {
	return find(s, byXref(database, qualifier, value)), nil
}

// FindByParent returns copies of the transcripts referencing target, ordered by id.
func (s *Store) FindByParent(_ context.Context, target reconcile.RecordID) ([]*reconcile.LocalRecord, error) {
	return find(s, byParent(target)), nil
}

// Save stores a copy of rec and of the links it lists.
func (s *Store) Save(_ context.Context, rec *reconcile.LocalRecord) error {
	stored, links := stage(s, rec)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[stored.ID] = stored
	for _, l := range links {
		s.links[l.ID] = l
	}
	return nil
}

// Delete removes a record that owns no links.
func (s *Store) Delete(_ context.Context, id reconcile.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return reconcile.ErrNotFound
	}
	for _, l := range s.links {
		if l.Owner == id {
			return reconcile.ErrRecordHasLinks
		}
	}
	delete(s.records, id)
	return nil
}

// DeleteLink removes a link.
func (s *Store) DeleteLink(_ context.Context, id reconcile.LinkID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[id]; !ok {
		return reconcile.ErrNotFound
	}
	delete(s.links, id)
	return nil
}

// CountLinks returns the number of links owned by the record.
func (s *Store) CountLinks(_ context.Context, id reconcile.RecordID) (int, error) {
	return len(linksOf(s, id)), nil
}

// Accessions lists the identities claimed by admitted master records.
func (s *Store) Accessions(_ context.Context) ([]string, error) {
	return accessions(s), nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Transaction runs fn against an overlay and commits it when fn succeeds.
func (s *Store) Transaction(_ context.Context, fn func(reconcile.RecordStore) error) error {
	ov := s.Overlay()
	if err := fn(ov); err != nil {
		return err
	}
	ov.Commit()
	return nil
}

// Overlay returns a copy-on-write view of the store. Nothing reaches the store
// until the overlay is committed.
func (s *Store) Overlay() *Overlay {
	return newOverlay(s)
}

func (s *Store) record(id reconcile.RecordID) (*reconcile.LocalRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	return rec, ok
}

func (s *Store) recordIDs() []reconcile.RecordID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedIDs(s.records)
}

func (s *Store) link(id reconcile.LinkID) (*reconcile.ActiveLink, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.links[id]
	return l, ok
}

func (s *Store) linkList() []*reconcile.ActiveLink {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*reconcile.ActiveLink, 0, len(s.links))
	for _, l := range s.links {
		out = append(out, l)
	}
	return out
}

func (s *Store) nextID(k idKind) int64 {
	return s.ids[k].Add(1)
}

func (s *Store) apply(records map[reconcile.RecordID]*reconcile.LocalRecord, links map[reconcile.LinkID]*reconcile.ActiveLink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rec := range records {
		if rec == nil {
			delete(s.records, id)
		} else {
			s.records[id] = rec
		}
	}
	for id, l := range links {
		if l == nil {
			delete(s.links, id)
		} else {
			s.links[id] = l
		}
	}
}
