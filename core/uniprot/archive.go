package uniprot

import (
	"context"
	"errors"
	"path"

	"protein-updater/core/reconcile"
	"protein-updater/core/storage"

	"github.com/google/uuid"
)

// Archive stores pass reports in the object store, grouped by run.
type Archive struct {
	client storage.Client
	bucket string
	prefix string
	run    string
}

// RunSummary is the index written next to the reports of a run.
type RunSummary struct {
	Run    string                  `json:"run"`
	Passes []PassSummary           `json:"passes"`
	Totals reconcile.ReportSummary `json:"totals"`
}

// PassSummary is the outcome of one accession in a run.
type PassSummary struct {
	Accession string                   `json:"accession"`
	Error     string                   `json:"error,omitempty"`
	Summary   *reconcile.ReportSummary `json:"summary,omitempty"`
}

// NewArchive creates an archive for a new run with a random run id.
func NewArchive(client storage.Client, bucket string, cfg Config) *Archive {
	return &Archive{
		client: client,
		bucket: bucket,
		prefix: cfg.ReportPrefix,
		run:    uuid.NewString(),
	}
}

// Run returns the run id reports are grouped under.
func (a *Archive) Run() string {
	return a.run
}

// Put writes one report and returns its object name.
func (a *Archive) Put(ctx context.Context, report *reconcile.Report) (string, error) {
	object := path.Join(a.prefix, a.run, report.Accession+".json")
	if err := a.put(ctx, object, report); err != nil {
		return "", err
	}
	return object, nil
}

// PutResults writes the report of every successful pass plus a run summary.
func (a *Archive) PutResults(ctx context.Context, results []reconcile.PassResult) (*RunSummary, error) {
	summary := &RunSummary{Run: a.run, Passes: make([]PassSummary, 0, len(results))}
	for _, res := range results {
		ps := PassSummary{Accession: res.Accession}
		if res.Err != nil {
			ps.Error = res.Err.Error()
		}
		if res.Report != nil {
			if _, err := a.Put(ctx, res.Report); err != nil {
				return nil, err
			}
			s := res.Report.Summary()
			ps.Summary = &s
			summary.Totals = addSummaries(summary.Totals, s)
		}
		summary.Passes = append(summary.Passes, ps)
	}

	if err := a.put(ctx, path.Join(a.prefix, a.run, "summary.json"), summary); err != nil {
		return nil, err
	}
	return summary, nil
}

// Runs lists the ids of archived runs.
func (a *Archive) Runs(ctx context.Context) ([]string, error) {
	return storage.ListDirs(ctx, a.client, a.bucket, a.prefix)
}

// Remove deletes every object archived for run and returns how many were removed.
func (a *Archive) Remove(ctx context.Context, run string) (int, error) {
	if run == "" {
		return 0, errors.New("run id is required")
	}
	return storage.RemovePrefix(ctx, a.client, a.bucket, path.Join(a.prefix, run))
}

func (a *Archive) put(ctx context.Context, object string, v any) error {
	return storage.WriteJSON(ctx, a.client, a.bucket, object, v)
}

func addSummaries(a, b reconcile.ReportSummary) reconcile.ReportSummary {
	return reconcile.ReportSummary{
		Candidates:    a.Candidates + b.Candidates,
		ShiftedRanges: a.ShiftedRanges + b.ShiftedRanges,
		InvalidRanges: a.InvalidRanges + b.InvalidRanges,
		Merged:        a.Merged + b.Merged,
		Created:       a.Created + b.Created,
		Remapped:      a.Remapped + b.Remapped,
		Excluded:      a.Excluded + b.Excluded,
		Deleted:       a.Deleted + b.Deleted,
		Errors:        a.Errors + b.Errors,
	}
}
