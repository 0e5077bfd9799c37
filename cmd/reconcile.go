package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"protein-updater/core/database"
	"protein-updater/core/reconcile"
	"protein-updater/core/uniprot"
	"protein-updater/core/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	runAccessions []string
	runAll        bool
	runDryRun     bool
	runWorkers    int
	runArchive    bool
)

// reconcileCmd is the parent command for reconciliation passes.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile local protein records with their canonical entries",
}

// reconcileRunCmd runs passes for the requested accessions.
var reconcileRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run reconciliation passes",
	Long: `Run one reconciliation pass per accession. Each pass runs in its own
database transaction; a failing pass is rolled back without stopping the others.

Examples:
  # Reconcile two entries
  reconcile run --accession P12345,Q99999

  # Preview every entry without keeping any change
  reconcile run --all --dry-run

  # Reconcile everything with 8 workers and archive the reports
  reconcile run --all --workers 8 --archive`,
	RunE: runReconcile,
}

func init() {
	reconcileRunCmd.Flags().StringSliceVar(&runAccessions, "accession", nil, "Accessions to reconcile (repeatable, comma separated)")
	reconcileRunCmd.Flags().BoolVar(&runAll, "all", false, "Reconcile every accession claimed by a local master record")
	reconcileRunCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Report changes and roll them back")
	reconcileRunCmd.Flags().IntVar(&runWorkers, "workers", 0, "Passes run in parallel (defaults to reconcile.workers)")
	reconcileRunCmd.Flags().BoolVar(&runArchive, "archive", false, "Upload the reports to the storage bucket")

	reconcileCmd.AddCommand(reconcileRunCmd)
	RootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap()
	if err != nil {
		return err
	}
	l := rt.logger
	defer l.Sync()

	db, err := rt.database()
	if err != nil {
		return err
	}
	store := database.NewStore(db)

	accessions := utils.ToList(runAccessions...)
	if runAll {
		all, err := store.Accessions(ctx)
		if err != nil {
			return err
		}
		accessions = utils.ToList(append(accessions, all...)...)
	}
	if len(accessions) == 0 {
		return fmt.Errorf("nothing to reconcile: pass --accession or --all")
	}

	client, err := rt.storage()
	if err != nil {
		return err
	}
	source := uniprot.NewSource(client, rt.cfg.Storage.Bucket, rt.cfg.Uniprot, l)

	workers := runWorkers
	if workers <= 0 {
		workers = rt.cfg.Reconcile.Workers
	}
	engine := reconcile.NewEngine(rt.cfg.Reconcile, source, reconcile.NewLogSink(l))
	runner := reconcile.NewRunner(engine, store, workers)

	l.Info("Starting reconciliation",
		zap.Int("accessions", len(accessions)),
		zap.Int("workers", workers),
		zap.Bool("dry_run", runDryRun),
	)

	var results []reconcile.PassResult
	if runDryRun {
		for _, acc := range accessions {
			if err := ctx.Err(); err != nil {
				return err
			}
			report, err := runner.DryRun(ctx, acc)
			results = append(results, reconcile.PassResult{Accession: acc, Report: report, Err: err})
		}
	} else if results, err = runner.RunAll(ctx, accessions); err != nil {
		return fmt.Errorf("reconciliation interrupted: %w", err)
	}

	failed := printPassResults(l, results)

	if runArchive && !runDryRun {
		archive := uniprot.NewArchive(client, rt.cfg.Storage.Bucket, rt.cfg.Uniprot)
		if _, err := archive.PutResults(ctx, results); err != nil {
			return err
		}
		l.Info("Reports archived", zap.String("run", archive.Run()))
	}

	if runDryRun {
		l.Info("Dry-run mode: No changes were made.")
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d passes failed", failed, len(results))
	}
	return nil
}

// printPassResults logs one line per pass and returns the number of failed passes.
func printPassResults(l *zap.Logger, results []reconcile.PassResult) int {
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			l.Error("Pass failed", zap.String("accession", res.Accession), zap.Error(res.Err))
			continue
		}
		s := res.Report.Summary()
		l.Info("Pass report",
			zap.String("accession", res.Accession),
			zap.Bool("found", res.Report.Found),
			zap.Int("candidates", s.Candidates),
			zap.Int("merged", s.Merged),
			zap.Int("shifted_ranges", s.ShiftedRanges),
			zap.Int("invalid_ranges", s.InvalidRanges),
			zap.Int("created", s.Created),
			zap.Int("remapped", s.Remapped),
			zap.Int("excluded", s.Excluded),
			zap.Int("deleted", s.Deleted),
			zap.Int("errors", s.Errors),
		)
	}
	return failed
}
