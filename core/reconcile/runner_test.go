package reconcile_test

import (
	"context"
	"sync"
	"testing"

	"protein-updater/core/reconcile"
	"protein-updater/core/reconcile/arena"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_RunAll(t *testing.T) {
	ctx := context.Background()
	store := arena.New()

	seed(t, store,
		protein("P12345", seqS, link("EBI-1", certain(2, 5))),
		protein("P12345", seqS, link("EBI-2", certain(2, 5))),
		protein("O11111", "MKT", link("EBI-3", certain(1, 2))),
	)
	source := fakeSource{
		"P12345": {PrimaryID: "P12345", Sequence: seqS},
		"O11111": {PrimaryID: "O11111", Sequence: "GGMKT"},
	}
	runner := reconcile.NewRunner(newEngine(defaultConfig, source), store, 4)

	results, err := runner.RunAll(ctx, []string{"P12345", "BROKEN", "O11111"})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "P12345", results[0].Accession)
	require.NoError(t, results[0].Err)
	assert.Equal(t, 1, results[0].Report.Summary().Merged)

	assert.Equal(t, "BROKEN", results[1].Accession)
	assert.ErrorIs(t, results[1].Err, errSourceDown)
	assert.Nil(t, results[1].Report)

	require.NoError(t, results[2].Err)
	assert.Equal(t, 1, results[2].Report.Summary().ShiftedRanges)

	accessions, err := store.Accessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"O11111", "P12345"}, accessions)
	assert.Equal(t, 2, store.Len())
}

func TestRunner_RollsBackFailedPass(t *testing.T) {
	ctx := context.Background()
	base := arena.New()
	a := protein("P12345", "MKT")
	b := protein("P12345", "MKT")
	seed(t, base, a, b)

	source := fakeSource{"P12345": {PrimaryID: "P12345", Sequence: seqS}}
	runner := reconcile.NewRunner(newEngine(defaultConfig, source), failingDeletes{base}, 1)

	report, err := runner.RunOne(ctx, "P12345")
	assert.ErrorIs(t, err, errDeleteRefused)
	assert.Nil(t, report)

	// Nothing of the merge reached the store
	assert.Equal(t, 2, base.Len())
	master := get(t, base, a.ID)
	assert.Equal(t, "MKT", master.Sequence)
	assert.False(t, master.HasXref(reconcile.DatabaseInternal, reconcile.QualifierSecondaryIdentity, b.ID.String()))
}

func TestRunner_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := reconcile.NewRunner(newEngine(defaultConfig, fakeSource{}), arena.New(), 0)
	_, err := runner.RunAll(ctx, []string{"P12345"})
	assert.ErrorIs(t, err, context.Canceled)
}

type passLog struct {
	mu     sync.Mutex
	passes []reconcile.PassResult
}

func (p *passLog) PassFinished(res reconcile.PassResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.passes = append(p.passes, res)
}

func TestRunner_Observe(t *testing.T) {
	store := arena.New()
	seed(t, store, protein("P12345", seqS, link("EBI-1", certain(2, 5))))

	var log passLog
	runner := reconcile.NewRunner(newEngine(defaultConfig, fakeSource{"P12345": {PrimaryID: "P12345", Sequence: seqS}}), store, 2).Observe(&log)

	_, err := runner.RunAll(context.Background(), []string{"P12345", "BROKEN"})
	require.NoError(t, err)
	require.Len(t, log.passes, 2)
	for _, p := range log.passes {
		if p.Accession == "BROKEN" {
			assert.ErrorIs(t, p.Err, errSourceDown)
		} else {
			assert.NoError(t, p.Err)
			assert.NotNil(t, p.Report)
		}
	}
}

func TestRunner_DryRun(t *testing.T) {
	ctx := context.Background()
	store := arena.New()
	a := protein("P12345", seqS, link("EBI-1", certain(2, 5)))
	b := protein("P12345", seqS, link("EBI-2", certain(2, 5)))
	seed(t, store, a, b)

	runner := reconcile.NewRunner(newEngine(defaultConfig, fakeSource{"P12345": {PrimaryID: "P12345", Sequence: "GG" + seqS}}), store, 1)
	report, err := runner.DryRun(ctx, "P12345")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary().Merged)

	assert.Equal(t, 2, store.Len())
	assert.Equal(t, seqS, get(t, store, a.ID).Sequence)
	assert.Equal(t, 2, get(t, store, b.ID).Links[0].Features[0].Ranges[0].FromStart)

	_, err = runner.DryRun(ctx, "BROKEN")
	assert.ErrorIs(t, err, errSourceDown)
}

// countingSink counts the events delivered to it.
type countingSink struct {
	reconcile.NopSink
	mu         sync.Mutex
	duplicates int
	deleted    int
}

func (s *countingSink) DuplicatesFound(reconcile.DuplicatesFoundEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.duplicates++
}

func (s *countingSink) RecordDeleted(reconcile.RecordDeletedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted++
}

func (s *countingSink) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duplicates, s.deleted
}

func TestRunner_EventsFollowCommit(t *testing.T) {
	ctx := context.Background()
	source := fakeSource{"P12345": {PrimaryID: "P12345", Sequence: seqS}}
	duplicates := func(t *testing.T, s reconcile.RecordStore) {
		seed(t, s, protein("P12345", seqS), protein("P12345", seqS))
	}

	t.Run("Dry Run", func(t *testing.T) {
		store := arena.New()
		duplicates(t, store)
		sink := &countingSink{}
		runner := reconcile.NewRunner(reconcile.NewEngine(defaultConfig, source, sink), store, 1)

		report, err := runner.DryRun(ctx, "P12345")
		require.NoError(t, err)
		assert.Len(t, report.Duplicates, 1)
		assert.NotEmpty(t, report.Deleted)

		dup, del := sink.counts()
		assert.Zero(t, dup)
		assert.Zero(t, del)
	})

	t.Run("Rolled Back", func(t *testing.T) {
		store := arena.New()
		duplicates(t, store)
		sink := &countingSink{}
		runner := reconcile.NewRunner(reconcile.NewEngine(defaultConfig, source, sink), failingDeletes{store}, 1)

		_, err := runner.RunOne(ctx, "P12345")
		assert.ErrorIs(t, err, errDeleteRefused)

		dup, del := sink.counts()
		assert.Zero(t, dup)
		assert.Zero(t, del)
	})

	t.Run("Committed", func(t *testing.T) {
		store := arena.New()
		duplicates(t, store)
		sink := &countingSink{}
		runner := reconcile.NewRunner(reconcile.NewEngine(defaultConfig, source, sink), store, 1)

		report, err := runner.RunOne(ctx, "P12345")
		require.NoError(t, err)

		dup, del := sink.counts()
		assert.Equal(t, len(report.Duplicates), dup)
		assert.Equal(t, len(report.Deleted), del)
		assert.Equal(t, 1, dup)
	})
}
