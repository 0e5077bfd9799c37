package reconcile_test

import (
	"context"
	"errors"
	"testing"

	"protein-updater/core/reconcile"
	"protein-updater/core/reconcile/arena"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_MergeDuplicates(t *testing.T) {
	ctx := context.Background()
	store := arena.New()

	a := protein("P12345", seqS, link("EBI-1", certain(2, 5)))
	b := protein("Q00001", seqS, link("EBI-1", certain(7, 9)), link("EBI-2", certain(3, 4)))
	seed(t, store, a, b)
	before := countLinks(t, store, a.ID, b.ID)

	source := fakeSource{"P12345": {PrimaryID: "P12345", SecondaryIDs: []string{"Q00001"}, Sequence: seqS, OrganismID: "9606"}}
	report, err := newEngine(defaultConfig, source).RunAccession(ctx, store, "P12345")
	require.NoError(t, err)

	require.Len(t, report.Duplicates, 1)
	assert.Equal(t, a.ID, report.Duplicates[0].Reference)
	assert.Equal(t, []reconcile.RecordID{a.ID, b.ID}, report.Duplicates[0].Members)

	_, err = store.Get(ctx, b.ID)
	assert.ErrorIs(t, err, reconcile.ErrNotFound)

	master := get(t, store, a.ID)
	assert.True(t, master.HasXref(reconcile.DatabaseInternal, reconcile.QualifierSecondaryIdentity, b.ID.String()))
	assert.True(t, master.HasXref(reconcile.DatabaseUniProt, reconcile.QualifierSecondaryAC, "Q00001"))
	assert.Equal(t, "P12345", master.Identity())

	// One EBI-1 link was folded into the other
	require.Len(t, master.Links, 2)
	assert.Equal(t, before-1, countLinks(t, store, a.ID))
	assert.Len(t, master.Links[0].Features, 2)
	assert.Equal(t, "EBI-2", master.Links[1].InteractionID)
	assert.Empty(t, report.Errors)
}

func TestEngine_MergeWithConflictingMember(t *testing.T) {
	ctx := context.Background()
	store := arena.New()

	a := protein("P12345", seqS, link("EBI-4", certain(2, 5)))
	// b's sequence lacks the canonical prefix, its range cannot be placed
	b := protein("P12345", "WWWWW"+seqS[5:], link("EBI-3", certain(1, 3)))
	seed(t, store, a, b)

	source := fakeSource{"P12345": {PrimaryID: "P12345", Sequence: seqS}}
	report, err := newEngine(reconcile.Config{AllowDeprecated: false}, source).RunAccession(ctx, store, "P12345")
	require.NoError(t, err)

	member := get(t, store, b.ID)
	assert.True(t, member.Excluded())
	assert.Len(t, member.Links, 1)
	assert.Len(t, report.ErrorsOf(reconcile.KindUnresolvedConflict), 1)
	assert.Equal(t, seqS, get(t, store, a.ID).Sequence)
}

func TestEngine_ConflictMovesToMatchingTranscript(t *testing.T) {
	ctx := context.Background()
	store := arena.New()

	r := certain(2, 5)
	m := protein("P12345", seqS, link("EBI-1", r))
	seed(t, store, m)

	source := fakeSource{"P12345": {
		PrimaryID: "P12345",
		Sequence:  seqS[5:],
		Transcripts: []reconcile.TranscriptDescriptor{
			{Kind: reconcile.TranscriptIsoform, ID: "P12345-2", Sequence: seqS},
			{Kind: reconcile.TranscriptIsoform, ID: "P12345-3", Sequence: "MKTAY"},
		},
	}}
	report, err := newEngine(defaultConfig, source).RunAccession(ctx, store, "P12345")
	require.NoError(t, err)

	require.Len(t, report.Created, 1)
	created := report.Created[0]
	assert.False(t, created.Deprecated)
	assert.Equal(t, "P12345-2", created.Accession)

	tr := get(t, store, created.RecordID)
	assert.True(t, tr.IsTranscript())
	assert.Equal(t, "P12345-2", tr.Identity())
	assert.Equal(t, seqS, tr.Sequence)
	assert.Equal(t, []reconcile.ParentRef{{Kind: reconcile.ParentIsoform, Target: m.ID}}, tr.Parents)
	require.Len(t, tr.Links, 1)
	assert.Equal(t, [4]int{2, 2, 5, 5}, tr.Links[0].Features[0].Ranges[0].Positions())
	assert.Empty(t, tr.Links[0].Features[0].Annotations)

	master := get(t, store, m.ID)
	assert.Equal(t, seqS[5:], master.Sequence)
	assert.Empty(t, master.Links)
	assert.Empty(t, report.Deleted, "the master keeps a transcript with links")
}

func TestEngine_ConflictFallbacks(t *testing.T) {
	source := fakeSource{"P12345": {PrimaryID: "P12345", Sequence: seqS[5:]}}

	t.Run("Deprecated Copy", func(t *testing.T) {
		ctx := context.Background()
		store := arena.New()
		m := protein("P12345", seqS, link("EBI-1", certain(2, 5)))
		seed(t, store, m)

		report, err := newEngine(defaultConfig, source).RunAccession(ctx, store, "P12345")
		require.NoError(t, err)

		require.Len(t, report.Created, 1)
		assert.True(t, report.Created[0].Deprecated)
		dep := get(t, store, report.Created[0].RecordID)
		assert.True(t, dep.Excluded())
		assert.Equal(t, seqS, dep.Sequence, "the copy keeps the sequence its ranges fit")
		assert.Len(t, dep.Links, 1)
		assert.Empty(t, report.Errors)

		// The master is left without links and is swept
		assert.Contains(t, deletedIDs(report), m.ID)
	})

	t.Run("Unresolved", func(t *testing.T) {
		ctx := context.Background()
		store := arena.New()
		m := protein("P12345", seqS, link("EBI-1", certain(2, 5)))
		seed(t, store, m)

		report, err := newEngine(reconcile.Config{}, source).RunAccession(ctx, store, "P12345")
		require.NoError(t, err)

		errs := report.ErrorsOf(reconcile.KindUnresolvedConflict)
		require.Len(t, errs, 1)
		assert.True(t, errors.Is(errs[0], reconcile.ErrUnresolvedConflict))

		master := get(t, store, m.ID)
		require.Len(t, master.Links, 1)
		f := master.Links[0].Features[0]
		assert.Equal(t, [4]int{2, 2, 5, 5}, f.Ranges[0].Positions())
		assert.Equal(t, reconcile.TopicInvalidRange, f.Annotations[0].Topic)
	})
}

func TestEngine_ParentRemappedOnce(t *testing.T) {
	ctx := context.Background()
	store := arena.New()

	a := protein("P12345", seqS)
	b := protein("P12345", seqS)
	seed(t, store, a, b)
	tr := transcript("P12345-2", "MKTAYIAK", b.ID, link("EBI-9", certain(1, 4)))
	seed(t, store, tr)

	source := fakeSource{"P12345": {
		PrimaryID:   "P12345",
		Sequence:    seqS,
		Transcripts: []reconcile.TranscriptDescriptor{{Kind: reconcile.TranscriptIsoform, ID: "P12345-2", Sequence: "MKTAYIAK"}},
	}}
	engine := newEngine(defaultConfig, source)

	report, err := engine.RunAccession(ctx, store, "P12345")
	require.NoError(t, err)
	require.Len(t, report.Remapped, 1)
	assert.Equal(t, reconcile.ParentRemappedEvent{Transcript: tr.ID, Kind: reconcile.ParentIsoform, From: b.ID, To: a.ID}, report.Remapped[0])
	assert.Equal(t, a.ID, get(t, store, tr.ID).Parents[0].Target)

	again, err := engine.RunAccession(ctx, store, "P12345")
	require.NoError(t, err)
	assert.Empty(t, again.Remapped)
	assert.Empty(t, again.Errors)
}

func TestEngine_TranscriptChecks(t *testing.T) {
	ctx := context.Background()
	store := arena.New()

	m := protein("P12345", seqS)
	seed(t, store, m)
	dead := transcript("P12345-2", "MKTAY", 999, link("EBI-1", certain(1, 2)))
	retired := transcript("P12345-9", "MKT", m.ID, link("EBI-2", certain(1, 2)))
	mixed := transcript("P12345-3", "MKT", m.ID, link("EBI-3", certain(1, 2)))
	mixed.Parents = append(mixed.Parents, reconcile.ParentRef{Kind: reconcile.ParentChain, Target: m.ID})
	seed(t, store, dead, retired, mixed)

	source := fakeSource{"P12345": {
		PrimaryID: "P12345",
		Sequence:  seqS,
		Transcripts: []reconcile.TranscriptDescriptor{
			{Kind: reconcile.TranscriptIsoform, ID: "P12345-2", Sequence: "MKTAY"},
			{Kind: reconcile.TranscriptIsoform, ID: "P12345-3", Sequence: "MKT"},
		},
	}}
	report, err := newEngine(defaultConfig, source).RunAccession(ctx, store, "P12345")
	require.NoError(t, err)

	assert.Len(t, report.ErrorsOf(reconcile.KindDeadParent), 1)
	assert.Len(t, report.ErrorsOf(reconcile.KindMixedParentKinds), 1)

	stale := get(t, store, retired.ID)
	assert.True(t, stale.Excluded())
	assert.True(t, stale.HasXref(reconcile.DatabaseUniProt, reconcile.QualifierRemoved, "P12345-9"))
	assert.Empty(t, stale.Identities())
}

func TestEngine_RejectedTranscriptsSurviveSweep(t *testing.T) {
	ctx := context.Background()
	store := arena.New()

	m := protein("P12345", seqS, link("EBI-1", certain(2, 5)))
	seed(t, store, m)
	dead := transcript("P12345-2", "MKTAY", 999)
	ambiguous := transcript("P12345-3", "MKT", m.ID)
	ambiguous.Parents = append(ambiguous.Parents, reconcile.ParentRef{Kind: reconcile.ParentIsoform, Target: m.ID})
	orphan := transcript("P12345-4", "MK", m.ID)
	orphan.Parents = nil
	seed(t, store, dead, ambiguous, orphan)

	source := fakeSource{"P12345": {
		PrimaryID: "P12345",
		Sequence:  seqS,
		Transcripts: []reconcile.TranscriptDescriptor{
			{Kind: reconcile.TranscriptIsoform, ID: "P12345-2", Sequence: "MKTAY"},
			{Kind: reconcile.TranscriptIsoform, ID: "P12345-3", Sequence: "MKT"},
			{Kind: reconcile.TranscriptIsoform, ID: "P12345-4", Sequence: "MK"},
		},
	}}
	report, err := newEngine(defaultConfig, source).RunAccession(ctx, store, "P12345")
	require.NoError(t, err)

	assert.Len(t, report.ErrorsOf(reconcile.KindDeadParent), 1)
	assert.Len(t, report.ErrorsOf(reconcile.KindAmbiguousParent), 1)
	assert.Len(t, report.ErrorsOf(reconcile.KindOrphanTranscript), 1)
	assert.Empty(t, report.Deleted)
	assert.Empty(t, report.Remapped)

	assert.Equal(t, reconcile.RecordID(999), get(t, store, dead.ID).Parents[0].Target)
	assert.Len(t, get(t, store, ambiguous.ID).Parents, 2)
	assert.Empty(t, get(t, store, orphan.ID).Parents)
	get(t, store, m.ID)
}

func TestEngine_AmbiguousRemap(t *testing.T) {
	ctx := context.Background()
	store := arena.New()

	heir := reconcile.CrossRef{Database: reconcile.DatabaseInternal, Qualifier: reconcile.QualifierSecondaryIdentity, Value: "999"}
	a := protein("P12345", seqS, link("EBI-1", certain(2, 5)))
	a.Xrefs = append(a.Xrefs, heir)
	other := protein("Q77777", seqS, link("EBI-2", certain(2, 5)))
	other.Xrefs = append(other.Xrefs, heir)
	seed(t, store, a, other)
	tr := transcript("P12345-2", "MKTAY", 999)
	seed(t, store, tr)

	source := fakeSource{"P12345": {
		PrimaryID:   "P12345",
		Sequence:    seqS,
		Transcripts: []reconcile.TranscriptDescriptor{{Kind: reconcile.TranscriptIsoform, ID: "P12345-2", Sequence: "MKTAY"}},
	}}
	report, err := newEngine(defaultConfig, source).RunAccession(ctx, store, "P12345")
	require.NoError(t, err)

	assert.Len(t, report.ErrorsOf(reconcile.KindAmbiguousRemap), 1)
	assert.Empty(t, report.Remapped)
	assert.Empty(t, report.Deleted)
	assert.Equal(t, reconcile.RecordID(999), get(t, store, tr.ID).Parents[0].Target)
}

func TestEngine_ConflictingMergeConservesLinks(t *testing.T) {
	for _, allow := range []bool{false, true} {
		name := "Excluded Member"
		if allow {
			name = "Deprecated Copy"
		}
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := arena.New()

			a := protein("P12345", seqS, link("EBI-4", certain(2, 5)))
			b := protein("P12345", "WWWWW"+seqS[5:], link("EBI-3", certain(1, 3)), link("EBI-5", certain(8, 10)))
			seed(t, store, a, b)
			before := countLinks(t, store, a.ID, b.ID)

			source := fakeSource{"P12345": {PrimaryID: "P12345", Sequence: seqS}}
			report, err := newEngine(reconcile.Config{AllowDeprecated: allow}, source).RunAccession(ctx, store, "P12345")
			require.NoError(t, err)

			after := countLinks(t, store, a.ID)
			if _, err := store.Get(ctx, b.ID); err == nil {
				after += countLinks(t, store, b.ID)
			}
			for _, c := range report.Created {
				after += countLinks(t, store, c.RecordID)
			}
			assert.Equal(t, before, after)
		})
	}
}

func TestEngine_IdentityErrorReportedOnce(t *testing.T) {
	ctx := context.Background()
	store := arena.New()

	m := protein("P12345", seqS, link("EBI-1", certain(2, 5)))
	seed(t, store, m)
	// Claimed as a candidate and found again as a child of m
	tr := transcript("P12345-2", "MKT", m.ID, link("EBI-2", certain(1, 2)))
	tr.Xrefs = append(tr.Xrefs, identity("P12345"))
	seed(t, store, tr)

	source := fakeSource{"P12345": {
		PrimaryID:   "P12345",
		Sequence:    seqS,
		Transcripts: []reconcile.TranscriptDescriptor{{Kind: reconcile.TranscriptIsoform, ID: "P12345-2", Sequence: "MKT"}},
	}}
	report, err := newEngine(defaultConfig, source).RunAccession(ctx, store, "P12345")
	require.NoError(t, err)

	assert.Len(t, report.ErrorsOf(reconcile.KindMultipleCanonicalIdentities), 1)
	assert.Len(t, report.Errors, 1)
	assert.Equal(t, "MKT", get(t, store, tr.ID).Sequence)
}

func TestEngine_IdentityErrorsLeaveRecordsAlone(t *testing.T) {
	ctx := context.Background()
	store := arena.New()

	twoFaced := protein("P12345", "MKT")
	twoFaced.Xrefs = append(twoFaced.Xrefs, identity("Q99999"))
	seed(t, store, twoFaced)

	source := fakeSource{"P12345": {PrimaryID: "P12345", Sequence: seqS}}
	report, err := newEngine(defaultConfig, source).RunAccession(ctx, store, "P12345")
	require.NoError(t, err)

	assert.Len(t, report.ErrorsOf(reconcile.KindMultipleCanonicalIdentities), 1)
	assert.Empty(t, report.Deleted)
	assert.Equal(t, "MKT", get(t, store, twoFaced.ID).Sequence)
}

func TestEngine_StaleEntry(t *testing.T) {
	ctx := context.Background()
	store := arena.New()

	m := protein("P99999", seqS, link("EBI-1", certain(2, 5)))
	seed(t, store, m)
	tr := transcript("P99999-2", "MKT", m.ID)
	seed(t, store, tr)

	engine := newEngine(defaultConfig, fakeSource{})
	report, err := engine.RunAccession(ctx, store, "P99999")
	require.NoError(t, err)

	assert.False(t, report.Found)
	master := get(t, store, m.ID)
	assert.True(t, master.Excluded())
	assert.True(t, master.HasXref(reconcile.DatabaseUniProt, reconcile.QualifierRemoved, "P99999"))
	assert.Equal(t, []reconcile.RecordID{tr.ID}, deletedIDs(report))

	again, err := engine.RunAccession(ctx, store, "P99999")
	require.NoError(t, err)
	assert.Empty(t, again.Excluded)
	assert.Empty(t, again.Deleted)
}

func TestEngine_SourceError(t *testing.T) {
	_, err := newEngine(defaultConfig, fakeSource{}).RunAccession(context.Background(), arena.New(), "BROKEN")
	assert.ErrorIs(t, err, errSourceDown)
}

func TestEngine_DryRunOnOverlay(t *testing.T) {
	ctx := context.Background()
	store := arena.New()
	a := protein("P12345", seqS)
	b := protein("P12345", seqS)
	seed(t, store, a, b)

	source := fakeSource{"P12345": {PrimaryID: "P12345", Sequence: seqS}}
	ov := store.Overlay()
	report, err := newEngine(defaultConfig, source).RunAccession(ctx, ov, "P12345")
	require.NoError(t, err)
	require.Len(t, report.Duplicates, 1)

	records, _ := ov.Changes()
	assert.Positive(t, records)
	assert.Equal(t, 2, store.Len(), "the base store is untouched")
	_, err = ov.Get(ctx, b.ID)
	assert.ErrorIs(t, err, reconcile.ErrNotFound)
}

func deletedIDs(r *reconcile.Report) []reconcile.RecordID {
	var ids []reconcile.RecordID
	for _, d := range r.Deleted {
		ids = append(ids, d.RecordID)
	}
	return ids
}
