package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// PassResult is the outcome of one pass run by a Runner.
type PassResult struct {
	Accession string
	Report    *Report
	// Err is set when the pass aborted; its writes were rolled back when the store
	// supports transactions.
	Err error
	// Duration is the wall time of the pass including the commit.
	Duration time.Duration
}

// PassObserver is notified after every pass a Runner executes.
type PassObserver interface {
	PassFinished(PassResult)
}

// Runner runs passes for many accessions with bounded parallelism. Passes for
// different accessions touch disjoint records, so each runs in its own transaction.
type Runner struct {
	engine   *Engine
	store    RecordStore
	workers  int
	observer PassObserver
}

// NewRunner creates a runner. workers below one means sequential execution.
func NewRunner(engine *Engine, store RecordStore, workers int) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{engine: engine, store: store, workers: workers}
}

// Observe registers an observer notified after each pass.
func (r *Runner) Observe(o PassObserver) *Runner {
	r.observer = o
	return r
}

// RunOne runs a single pass, inside a transaction when the store supports it.
func (r *Runner) RunOne(ctx context.Context, accession string) (*Report, error) {
	res := r.run(ctx, accession)
	return res.Report, res.Err
}

func (r *Runner) run(ctx context.Context, accession string) PassResult {
	start := time.Now()
	report, err := r.pass(ctx, accession)
	res := PassResult{Accession: accession, Report: report, Err: err, Duration: time.Since(start)}
	if r.observer != nil {
		r.observer.PassFinished(res)
	}
	return res
}

// pass runs one accession. Events reach the engine's sink only once the pass is
// committed.
func (r *Runner) pass(ctx context.Context, accession string) (*Report, error) {
	buf := &bufferedSink{}
	engine := r.engine.withSink(buf)

	tx, ok := r.store.(Transactor)
	if !ok {
		// Writes made before a failure stay, so do their events
		report, err := engine.RunAccession(ctx, r.store, accession)
		buf.flush(r.engine.sink)
		return report, err
	}

	var report *Report
	err := tx.Transaction(ctx, func(s RecordStore) error {
		var err error
		report, err = engine.RunAccession(ctx, s, accession)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("pass %s rolled back: %w", accession, err)
	}
	buf.flush(r.engine.sink)
	return report, nil
}

// errDryRun rolls back the transaction of a dry run.
var errDryRun = errors.New("dry run")

// DryRun runs a pass and rolls every write back. It needs a Transactor store.
// Its events only go to the returned report.
func (r *Runner) DryRun(ctx context.Context, accession string) (*Report, error) {
	tx, ok := r.store.(Transactor)
	if !ok {
		return nil, fmt.Errorf("dry run of %s needs a transactional store", accession)
	}

	engine := r.engine.withSink(NopSink{})
	var report *Report
	err := tx.Transaction(ctx, func(s RecordStore) error {
		var err error
		if report, err = engine.RunAccession(ctx, s, accession); err != nil {
			return err
		}
		return errDryRun
	})
	if err != nil && !errors.Is(err, errDryRun) {
		return nil, fmt.Errorf("dry run of %s failed: %w", accession, err)
	}
	return report, nil
}

// RunAll runs one pass per accession. A failing pass does not stop the others;
// results are returned in input order. Only context cancellation aborts the run.
func (r *Runner) RunAll(ctx context.Context, accessions []string) ([]PassResult, error) {
	results := make([]PassResult, len(accessions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, acc := range accessions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = r.run(gctx, acc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}
