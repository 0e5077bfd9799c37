package arena

import (
	"sort"

	"protein-updater/core/reconcile"
)

// view is the read side shared by Store and Overlay. Returned values are the
// stored instances and must be cloned before leaving the package.
type view interface {
	record(id reconcile.RecordID) (*reconcile.LocalRecord, bool)
	recordIDs() []reconcile.RecordID
	link(id reconcile.LinkID) (*reconcile.ActiveLink, bool)
	linkList() []*reconcile.ActiveLink
}

// backend is a view that can allocate ids and absorb committed changes.
type backend interface {
	view
	nextID(k idKind) int64
	apply(records map[reconcile.RecordID]*reconcile.LocalRecord, links map[reconcile.LinkID]*reconcile.ActiveLink)
}

type idKind int

const (
	idRecord idKind = iota
	idLink
	idFeature
	idRange
)

// materialize returns a copy of the record with its owned links attached.
func materialize(v view, rec *reconcile.LocalRecord) *reconcile.LocalRecord {
	out := reconcile.CloneRecord(rec)
	out.Links = nil
	for _, l := range linksOf(v, rec.ID) {
		out.Links = append(out.Links, reconcile.CloneLink(l))
	}
	return out
}

func linksOf(v view, owner reconcile.RecordID) []*reconcile.ActiveLink {
	var out []*reconcile.ActiveLink
	for _, l := range v.linkList() {
		if l.Owner == owner {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func find(v view, match func(*reconcile.LocalRecord) bool) []*reconcile.LocalRecord {
	var out []*reconcile.LocalRecord
	for _, id := range v.recordIDs() {
		rec, ok := v.record(id)
		if ok && match(rec) {
			out = append(out, materialize(v, rec))
		}
	}
	return out
}

func byXref(database, qualifier, value string) func(*reconcile.LocalRecord) bool {
	return func(r *reconcile.LocalRecord) bool {
		return r.HasXref(database, qualifier, value)
	}
}

func byParent(target reconcile.RecordID) func(*reconcile.LocalRecord) bool {
	return func(r *reconcile.LocalRecord) bool {
		for _, p := range r.Parents {
			if p.Target == target {
				return true
			}
		}
		return false
	}
}

func accessions(v view) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, id := range v.recordIDs() {
		rec, ok := v.record(id)
		if !ok || rec.IsTranscript() || rec.Excluded() {
			continue
		}
		acc := rec.Identity()
		if acc == "" {
			continue
		}
		if _, dup := seen[acc]; dup {
			continue
		}
		seen[acc] = struct{}{}
		out = append(out, acc)
	}
	sort.Strings(out)
	return out
}

// stage assigns ids to rec and everything it owns, then returns the copies to store:
// the record without links and its links owned by it.
func stage(b backend, rec *reconcile.LocalRecord) (*reconcile.LocalRecord, []*reconcile.ActiveLink) {
	if rec.ID == 0 {
		rec.ID = reconcile.RecordID(b.nextID(idRecord))
	}
	links := make([]*reconcile.ActiveLink, 0, len(rec.Links))
	for _, l := range rec.Links {
		if l.ID == 0 {
			l.ID = reconcile.LinkID(b.nextID(idLink))
		}
		l.Owner = rec.ID
		for _, f := range l.Features {
			if f.ID == 0 {
				f.ID = reconcile.FeatureID(b.nextID(idFeature))
			}
			for _, r := range f.Ranges {
				if r.ID == 0 {
					r.ID = b.nextID(idRange)
				}
			}
		}
		links = append(links, reconcile.CloneLink(l))
	}
	stored := reconcile.CloneRecord(rec)
	stored.Links = nil
	return stored, links
}

func sortedIDs[K ~int64, V any](m map[K]V) []K {
	ids := make([]K, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
