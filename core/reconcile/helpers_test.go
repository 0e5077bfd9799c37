package reconcile_test

import (
	"context"
	"errors"
	"testing"

	"protein-updater/core/reconcile"
	"protein-updater/core/reconcile/arena"

	"github.com/stretchr/testify/require"
)

// seqS is the sequence most scenarios start from.
const seqS = "MKTAYIAKQRQISFVKSHFSRQ"

type fakeSource map[string]*reconcile.CanonicalRecord

var errSourceDown = errors.New("source unavailable")

func (f fakeSource) Fetch(_ context.Context, id string) (*reconcile.CanonicalRecord, error) {
	if id == "BROKEN" {
		return nil, errSourceDown
	}
	for _, c := range f {
		if c.HasID(id) {
			return c, nil
		}
	}
	return nil, nil
}

func identity(ac string) reconcile.CrossRef {
	return reconcile.CrossRef{Database: reconcile.DatabaseUniProt, Qualifier: reconcile.QualifierIdentity, Value: ac}
}

func certain(from, to int) *reconcile.Range {
	return &reconcile.Range{
		FromStatus: reconcile.StatusCertain, FromStart: from, FromEnd: from,
		ToStatus: reconcile.StatusCertain, ToStart: to, ToEnd: to,
	}
}

func link(interaction string, ranges ...*reconcile.Range) *reconcile.ActiveLink {
	return &reconcile.ActiveLink{
		InteractionID:    interaction,
		ExperimentalRole: "prey",
		BiologicalRole:   "unspecified role",
		Features:         []*reconcile.Feature{{ShortLabel: "region", Ranges: ranges}},
	}
}

func protein(ac, seq string, links ...*reconcile.ActiveLink) *reconcile.LocalRecord {
	return &reconcile.LocalRecord{
		ShortLabel: ac,
		Kind:       reconcile.KindProtein,
		Sequence:   seq,
		OrganismID: "9606",
		Xrefs:      []reconcile.CrossRef{identity(ac)},
		Links:      links,
	}
}

func transcript(ac, seq string, parent reconcile.RecordID, links ...*reconcile.ActiveLink) *reconcile.LocalRecord {
	rec := protein(ac, seq, links...)
	rec.Kind = reconcile.KindTranscript
	rec.Parents = []reconcile.ParentRef{{Kind: reconcile.ParentIsoform, Target: parent}}
	return rec
}

func seed(t *testing.T, s reconcile.RecordStore, records ...*reconcile.LocalRecord) {
	t.Helper()
	for _, rec := range records {
		require.NoError(t, s.Save(context.Background(), rec))
	}
}

func get(t *testing.T, s reconcile.RecordStore, id reconcile.RecordID) *reconcile.LocalRecord {
	t.Helper()
	rec, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	return rec
}

func countLinks(t *testing.T, s reconcile.RecordStore, ids ...reconcile.RecordID) int {
	t.Helper()
	total := 0
	for _, id := range ids {
		n, err := s.CountLinks(context.Background(), id)
		require.NoError(t, err)
		total += n
	}
	return total
}

func newEngine(cfg reconcile.Config, source fakeSource) *reconcile.Engine {
	return reconcile.NewEngine(cfg, source, nil)
}

var defaultConfig = reconcile.Config{SweepTranscripts: true, AllowDeprecated: true, Workers: 2}

// failingDeletes makes every record deletion fail, inside transactions as well.
type failingDeletes struct {
	*arena.Store
}

var errDeleteRefused = errors.New("delete refused")

func (f failingDeletes) Delete(context.Context, reconcile.RecordID) error {
	return errDeleteRefused
}

func (f failingDeletes) Transaction(ctx context.Context, fn func(reconcile.RecordStore) error) error {
	return f.Store.Transaction(ctx, func(s reconcile.RecordStore) error {
		return fn(refuseDeletes{s})
	})
}

type refuseDeletes struct {
	reconcile.RecordStore
}

func (refuseDeletes) Delete(context.Context, reconcile.RecordID) error {
	return errDeleteRefused
}
