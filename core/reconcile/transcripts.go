package reconcile

import (
	"context"
	"fmt"
	"strings"
)

// TranscriptOutcome describes where a conflict's links ended up.
type TranscriptOutcome struct {
	// Target is the record now owning the links; nil when unresolved.
	Target *LocalRecord
	// Descriptor is the matched transcript, if any.
	Descriptor *TranscriptDescriptor
	Created    bool
	Deprecated bool
	Unresolved bool
}

// TranscriptReconciler finds a home for links whose ranges no longer fit the
// sequence of their record.
type TranscriptReconciler struct {
	store           RecordStore
	rec             *recorder
	allowDeprecated bool
}

// NewTranscriptReconciler creates a reconciler. allowDeprecated enables the fallback
// to a deprecated copy of the conflicted record.
func NewTranscriptReconciler(store RecordStore, sink EventSink, allowDeprecated bool) *TranscriptReconciler {
	return newTranscriptReconciler(store, newRecorder(sink, nil), allowDeprecated)
}

func newTranscriptReconciler(store RecordStore, rec *recorder, allowDeprecated bool) *TranscriptReconciler {
	return &TranscriptReconciler{store: store, rec: rec, allowDeprecated: allowDeprecated}
}

// MatchDescriptors returns the transcript descriptors of canonical whose sequence
// equals seq, ignoring case.
func MatchDescriptors(canonical *CanonicalRecord, seq string) []TranscriptDescriptor {
	if seq == "" {
		return nil
	}
	var out []TranscriptDescriptor
	for _, d := range canonical.Transcripts {
		if s := d.ResolvedSequence(canonical.Sequence); s != "" && sameSequence(s, seq) {
			out = append(out, d)
		}
	}
	return out
}

// Resolve moves the links of c onto the transcript matching c's prior sequence,
// creating it under parent when needed, or onto a deprecated copy of c.Record.
// known lists the transcript records already present for canonical.
func (t *TranscriptReconciler) Resolve(ctx context.Context, c Conflict, canonical *CanonicalRecord, parent *LocalRecord, known []*LocalRecord) (*TranscriptOutcome, error) {
	if len(c.Links) == 0 {
		return &TranscriptOutcome{Target: c.Record}, nil
	}

	matches := MatchDescriptors(canonical, c.PriorSequence)
	if len(matches) == 1 {
		d := matches[0]
		if existing := findTranscript(known, d.ID, c.Record.ID); existing != nil {
			if err := t.moveLinks(ctx, c, existing); err != nil {
				return nil, err
			}
			return &TranscriptOutcome{Target: existing, Descriptor: &d}, nil
		}
		return t.createTranscript(ctx, c, canonical, parent, d)
	}

	if t.allowDeprecated {
		return t.deprecate(ctx, c)
	}

	reason := "no transcript matches the previous sequence"
	if len(matches) > 1 {
		reason = fmt.Sprintf("%d transcripts match the previous sequence", len(matches))
	}
	t.rec.failed(newProcessError(KindUnresolvedConflict, c.Record, "%d conflicted links left on %s: %s", len(c.Links), c.Record.Label(), reason))
	return t.leave(ctx, c, nil)
}

// leave keeps the conflicted links on their record and tags the ranges that could
// not be carried over from the prior sequence.
func (t *TranscriptReconciler) leave(ctx context.Context, c Conflict, d *TranscriptDescriptor) (*TranscriptOutcome, error) {
	changed := false
	for _, inv := range Remap(c.PriorSequence, c.Record.Sequence, c.Links).Invalid {
		if inv.feature != nil && MarkInvalidRange(inv.feature, inv.Message) {
			changed = true
		}
	}
	if changed {
		if err := t.store.Save(ctx, c.Record); err != nil {
			return nil, fmt.Errorf("failed to save record %d: %w", c.Record.ID, err)
		}
	}
	return &TranscriptOutcome{Unresolved: true, Descriptor: d}, nil
}

func (t *TranscriptReconciler) createTranscript(ctx context.Context, c Conflict, canonical *CanonicalRecord, parent *LocalRecord, d TranscriptDescriptor) (*TranscriptOutcome, error) {
	seq := d.ResolvedSequence(canonical.Sequence)
	tr := Derive(c.Record, DeriveOverrides{
		Kind:       KindTranscript,
		Identity:   d.ID,
		Sequence:   &seq,
		ShortLabel: strings.ToLower(d.ID),
		Parent:     &ParentRef{Kind: ParentKindFor(d.Kind), Target: parent.ID},
	})
	tr.Xrefs = dropSecondaryAccessions(tr.Xrefs)
	if tr.OrganismID == "" {
		tr.OrganismID = canonical.OrganismID
	}

	ok, err := t.attach(ctx, c, tr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return t.leave(ctx, c, &d)
	}
	t.rec.created(TranscriptCreatedEvent{RecordID: tr.ID, SourceID: c.Record.ID, Accession: d.ID, Links: len(c.Links)})
	return &TranscriptOutcome{Target: tr, Descriptor: &d, Created: true}, nil
}

func (t *TranscriptReconciler) deprecate(ctx context.Context, c Conflict) (*TranscriptOutcome, error) {
	dep := Derive(c.Record, DeriveOverrides{
		Sequence:   &c.PriorSequence,
		ShortLabel: c.Record.Label() + "-deprecated",
	})
	dep.Parents = append([]ParentRef(nil), c.Record.Parents...)
	Exclude(dep, CautionFeatureConflicts)

	ok, err := t.attach(ctx, c, dep)
	if err != nil {
		return nil, err
	}
	if !ok {
		return t.leave(ctx, c, nil)
	}
	t.rec.created(TranscriptCreatedEvent{RecordID: dep.ID, SourceID: c.Record.ID, Accession: dep.Identity(), Deprecated: true, Links: len(c.Links)})
	t.rec.excluded(dep.ID, CautionFeatureConflicts)
	return &TranscriptOutcome{Target: dep, Deprecated: true}, nil
}

// attach saves the derived record with the conflicted links and detaches them from
// their previous owner. A failed save is reported as clone_failed and leaves the
// links where they were.
func (t *TranscriptReconciler) attach(ctx context.Context, c Conflict, derived *LocalRecord) (bool, error) {
	derived.Links = append([]*ActiveLink(nil), c.Links...)
	if err := t.store.Save(ctx, derived); err != nil {
		derived.Links = nil
		pe := newProcessError(KindCloneFailed, c.Record, "could not derive a record from %s", c.Record.Label())
		pe.Err = err
		t.rec.failed(pe)
		return false, nil
	}
	for _, l := range c.Links {
		l.Owner = derived.ID
	}
	detach(c.Record, c.Links)
	if err := t.store.Save(ctx, c.Record); err != nil {
		return false, fmt.Errorf("failed to save record %d after moving links: %w", c.Record.ID, err)
	}
	return true, nil
}

func (t *TranscriptReconciler) moveLinks(ctx context.Context, c Conflict, target *LocalRecord) error {
	for _, l := range c.Links {
		l.Owner = target.ID
		target.Links = append(target.Links, l)
	}
	if err := t.store.Save(ctx, target); err != nil {
		return fmt.Errorf("failed to save transcript %d: %w", target.ID, err)
	}
	detach(c.Record, c.Links)
	if err := t.store.Save(ctx, c.Record); err != nil {
		return fmt.Errorf("failed to save record %d after moving links: %w", c.Record.ID, err)
	}
	return nil
}

func detach(rec *LocalRecord, links []*ActiveLink) {
	moved := make(map[LinkID]struct{}, len(links))
	for _, l := range links {
		moved[l.ID] = struct{}{}
	}
	kept := rec.Links[:0:0]
	for _, l := range rec.Links {
		if _, ok := moved[l.ID]; !ok {
			kept = append(kept, l)
		}
	}
	rec.Links = kept
}

// findTranscript returns the first admitted transcript with the given identity,
// skipping the record the links come from.
func findTranscript(known []*LocalRecord, identity string, skip RecordID) *LocalRecord {
	for _, k := range known {
		if k.ID == skip || k.Excluded() {
			continue
		}
		if k.Identity() == identity {
			return k
		}
	}
	return nil
}

func dropSecondaryAccessions(xrefs []CrossRef) []CrossRef {
	out := xrefs[:0:0]
	for _, x := range xrefs {
		if x.Database == DatabaseUniProt && x.Qualifier == QualifierSecondaryAC {
			continue
		}
		out = append(out, x)
	}
	return out
}
