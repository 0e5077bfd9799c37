package proteins

import (
	"context"

	"protein-updater/core/logger"
	"protein-updater/core/reconcile"

	"go.uber.org/zap"
)

// ReportArchive stores the report of a committed pass.
type ReportArchive interface {
	Put(ctx context.Context, report *reconcile.Report) (string, error)
}

// Service exposes local records and on-demand reconciliation.
type Service struct {
	store   reconcile.RecordStore
	runner  *reconcile.Runner
	archive ReportArchive
	logger  *zap.Logger
}

// Result is the outcome of an on-demand pass.
type Result struct {
	Report   *reconcile.Report       `json:"report"`
	Summary  reconcile.ReportSummary `json:"summary"`
	DryRun   bool                    `json:"dry_run"`
	Archived string                  `json:"archived,omitempty"`
}

// NewService creates a proteins service. archive may be nil.
func NewService(store reconcile.RecordStore, runner *reconcile.Runner, archive ReportArchive, logger *zap.Logger) *Service {
	return &Service{store: store, runner: runner, archive: archive, logger: logger}
}

// Get returns one local record.
func (s *Service) Get(ctx context.Context, id reconcile.RecordID) (*reconcile.LocalRecord, error) {
	return s.store.Get(ctx, id)
}

// FindByAccession returns the records claiming accession as their canonical identity.
func (s *Service) FindByAccession(ctx context.Context, accession string) ([]*reconcile.LocalRecord, error) {
	return s.store.FindByXref(ctx, reconcile.DatabaseUniProt, reconcile.QualifierIdentity, accession)
}

// Reconcile runs one pass for accession. A dry run reports what would change
// without keeping any write.
func (s *Service) Reconcile(ctx context.Context, accession string, dryRun bool) (*Result, error) {
	l := logger.WithAccession(s.logger, accession)

	var (
		report *reconcile.Report
		err    error
	)
	if dryRun {
		report, err = s.runner.DryRun(ctx, accession)
	} else {
		report, err = s.runner.RunOne(ctx, accession)
	}
	if err != nil {
		return nil, err
	}

	res := &Result{Report: report, Summary: report.Summary(), DryRun: dryRun}
	l.Info("Pass finished", zap.Bool("dry_run", dryRun), zap.Any("summary", res.Summary))

	if !dryRun && s.archive != nil {
		object, err := s.archive.Put(ctx, report)
		if err != nil {
			// The pass is committed; a failed upload only loses the copy.
			l.Warn("Failed to archive report", zap.Error(err))
		} else {
			res.Archived = object
		}
	}
	return res, nil
}
