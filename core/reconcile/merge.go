package reconcile

import (
	"context"
	"fmt"
)

// Conflict is a set of links that could not be moved onto the canonical sequence.
type Conflict struct {
	// Record currently owns the links.
	Record *LocalRecord
	// PriorSequence is the sequence the links' ranges were computed against.
	PriorSequence string
	Links         []*ActiveLink
}

// MergeResult is the outcome of merging one duplicate group.
type MergeResult struct {
	// Reference is the surviving record.
	Reference *LocalRecord
	// Conflicts lists the links held back, per record, in member order.
	Conflicts []Conflict
	// Deleted lists the members removed after their links were moved.
	Deleted []RecordID
	// Excluded lists the members kept because some of their links conflict.
	Excluded []RecordID
	// MovedLinks counts links reassigned to the reference.
	MovedLinks int
	// CoalescedLinks counts links folded into an identical link of the reference.
	CoalescedLinks int
	// SequenceUpdated is set when the reference already carries the canonical sequence.
	SequenceUpdated bool
	// PriorSequence is the reference's sequence before the merge.
	PriorSequence string
}

// Merger folds duplicate groups into one surviving record.
type Merger struct {
	store RecordStore
	rec   *recorder
}

func newMerger(store RecordStore, rec *recorder) *Merger {
	return &Merger{store: store, rec: rec}
}

// Merge merges every member of g into the member with the lowest internal id.
func (m *Merger) Merge(ctx context.Context, g *DuplicateGroup) (*MergeResult, error) {
	members := sortByID(g.Members)
	ref := members[0]
	others := members[1:]

	ids := make([]RecordID, len(members))
	for i, mem := range members {
		ids[i] = mem.ID
	}
	m.rec.duplicates(DuplicatesFoundEvent{Accession: g.Accession, Members: ids, Reference: ref.ID})

	res := &MergeResult{Reference: ref, PriorSequence: ref.Sequence}
	if ref.OrganismID == "" {
		ref.OrganismID = g.OrganismID
	}

	identical := true
	for _, mem := range others {
		if !sameSequence(mem.Sequence, ref.Sequence) {
			identical = false
			break
		}
	}

	var coalesced []LinkID
	held := make(map[LinkID]struct{})
	if identical {
		for _, mem := range others {
			coalesced = append(coalesced, m.absorb(ref, mem, mem.Links, held, res)...)
			mem.Links = nil
		}
	} else {
		rr := Remap(ref.Sequence, g.CanonicalSequence, ref.Links)
		m.rec.remapped(rr)
		if len(rr.ToFix) > 0 {
			res.Conflicts = append(res.Conflicts, Conflict{Record: ref, PriorSequence: ref.Sequence, Links: rr.ToFix})
		}
		for _, l := range rr.ToFix {
			held[l.ID] = struct{}{}
		}
		for _, mem := range others {
			rr := Remap(mem.Sequence, g.CanonicalSequence, mem.Links)
			m.rec.remapped(rr)
			coalesced = append(coalesced, m.absorb(ref, mem, rr.Shifted, held, res)...)
			mem.Links = rr.ToFix
			if len(rr.ToFix) > 0 {
				res.Conflicts = append(res.Conflicts, Conflict{Record: mem, PriorSequence: mem.Sequence, Links: rr.ToFix})
			}
		}
		ref.Sequence = g.CanonicalSequence
		res.SequenceUpdated = true
	}

	// Folded links go first: their features keep their ids on the reference
	for _, id := range coalesced {
		if err := m.store.DeleteLink(ctx, id); err != nil {
			return nil, fmt.Errorf("failed to delete coalesced link %d: %w", id, err)
		}
	}
	res.CoalescedLinks = len(coalesced)
	if err := m.store.Save(ctx, ref); err != nil {
		return nil, fmt.Errorf("failed to save merge reference %d: %w", ref.ID, err)
	}

	for _, mem := range others {
		if len(mem.Links) > 0 {
			if Exclude(mem, CautionMergeConflicts) {
				m.rec.excluded(mem.ID, CautionMergeConflicts)
			}
			if err := m.store.Save(ctx, mem); err != nil {
				return nil, fmt.Errorf("failed to save excluded duplicate %d: %w", mem.ID, err)
			}
			res.Excluded = append(res.Excluded, mem.ID)
			continue
		}
		if err := m.store.Delete(ctx, mem.ID); err != nil {
			return nil, fmt.Errorf("failed to delete merged duplicate %d: %w", mem.ID, err)
		}
		m.rec.deleted(mem.ID, fmt.Sprintf("merged into %d", ref.ID))
		res.Deleted = append(res.Deleted, mem.ID)
	}
	return res, nil
}

// absorb moves links from mem onto ref and records mem's identity on ref.
// It returns the ids of links coalesced into an identical link of ref. Links in held
// are waiting for conflict resolution and never receive features.
func (m *Merger) absorb(ref, mem *LocalRecord, links []*ActiveLink, held map[LinkID]struct{}, res *MergeResult) []LinkID {
	var coalesced []LinkID
	for _, l := range links {
		if existing := sameEndpointLink(ref.Links, l, held); existing != nil {
			existing.Features = append(existing.Features, l.Features...)
			l.Features = nil
			coalesced = append(coalesced, l.ID)
			continue
		}
		l.Owner = ref.ID
		ref.Links = append(ref.Links, l)
		res.MovedLinks++
	}

	ref.AddXref(CrossRef{Database: DatabaseInternal, Qualifier: QualifierSecondaryIdentity, Value: mem.ID.String()})
	for _, x := range mem.Xrefs {
		if x.IsSecondaryIdentity() {
			ref.AddXref(x)
		}
	}
	return coalesced
}

func sameEndpointLink(links []*ActiveLink, l *ActiveLink, held map[LinkID]struct{}) *ActiveLink {
	for _, existing := range links {
		if _, ok := held[existing.ID]; ok {
			continue
		}
		if existing.ID != l.ID && existing.SameEndpoints(l) {
			return existing
		}
	}
	return nil
}
