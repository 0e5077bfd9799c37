package proteins

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"protein-updater/core/reconcile"
	"protein-updater/core/reconcile/arena"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sequence = "MKTAYIAKQRQISFVKSHFSRQ"

type staticSource map[string]*reconcile.CanonicalRecord

func (s staticSource) Fetch(_ context.Context, id string) (*reconcile.CanonicalRecord, error) {
	return s[id], nil
}

type memoryArchive struct {
	reports []*reconcile.Report
	err     error
}

func (m *memoryArchive) Put(_ context.Context, report *reconcile.Report) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.reports = append(m.reports, report)
	return "reports/run/" + report.Accession + ".json", nil
}

func protein(ac string) *reconcile.LocalRecord {
	return &reconcile.LocalRecord{
		ShortLabel: ac,
		Kind:       reconcile.KindProtein,
		Sequence:   sequence,
		Xrefs:      []reconcile.CrossRef{{Database: reconcile.DatabaseUniProt, Qualifier: reconcile.QualifierIdentity, Value: ac}},
		Links: []*reconcile.ActiveLink{{
			InteractionID: "EBI-1",
			Features: []*reconcile.Feature{{Ranges: []*reconcile.Range{{
				FromStatus: reconcile.StatusCertain, FromStart: 2, FromEnd: 2,
				ToStatus: reconcile.StatusCertain, ToStart: 5, ToEnd: 5,
			}}}},
		}},
	}
}

func setupTestApp(t *testing.T, archive ReportArchive) (*fiber.App, *arena.Store) {
	store := arena.New()
	source := staticSource{"P12345": {PrimaryID: "P12345", Sequence: "GG" + sequence}}
	runner := reconcile.NewRunner(reconcile.NewEngine(reconcile.Config{}, source, nil), store, 1)

	app := fiber.New()
	feature := NewFeature(store, runner, archive, zap.NewNop())
	require.True(t, feature.IsEnabled())
	require.NoError(t, feature.Load(app))
	return app, store
}

func decode(t *testing.T, app *fiber.App, method, target string) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(method, target, nil))
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestHandleGet(t *testing.T) {
	app, store := setupTestApp(t, nil)
	rec := protein("P12345")
	require.NoError(t, store.Save(context.Background(), rec))

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"Existing Record", "/proteins/" + rec.ID.String(), fiber.StatusOK},
		{"Missing Record", "/proteins/999", fiber.StatusNotFound},
		{"Invalid ID", "/proteins/abc", fiber.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := decode(t, app, "GET", tt.target)
			assert.Equal(t, tt.status, status)
			if status == fiber.StatusOK {
				assert.Equal(t, "P12345", body["short_label"])
			}
		})
	}
}

func TestHandleFind(t *testing.T) {
	app, store := setupTestApp(t, nil)
	require.NoError(t, store.Save(context.Background(), protein("P12345")))

	status, body := decode(t, app, "GET", "/proteins?accession=P12345")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["records"], 1)

	status, body = decode(t, app, "GET", "/proteins?accession=O00000")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, body["records"])

	status, _ = decode(t, app, "GET", "/proteins")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestHandleReconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("Dry Run Keeps Store Untouched", func(t *testing.T) {
		archive := &memoryArchive{}
		app, store := setupTestApp(t, archive)
		rec := protein("P12345")
		require.NoError(t, store.Save(ctx, rec))

		status, body := decode(t, app, "POST", "/reconcile/P12345?dry_run=true")
		assert.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, true, body["dry_run"])
		assert.Equal(t, 1.0, body["summary"].(map[string]any)["shifted_ranges"])

		got, err := store.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, sequence, got.Sequence)
		assert.Empty(t, archive.reports)
	})

	t.Run("Committed Pass Is Archived", func(t *testing.T) {
		archive := &memoryArchive{}
		app, store := setupTestApp(t, archive)
		rec := protein("P12345")
		require.NoError(t, store.Save(ctx, rec))

		status, body := decode(t, app, "POST", "/reconcile/P12345")
		assert.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, "reports/run/P12345.json", body["archived"])
		require.Len(t, archive.reports, 1)

		got, err := store.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, "GG"+sequence, got.Sequence)
		assert.Equal(t, 4, got.Links[0].Features[0].Ranges[0].FromStart)
	})

	t.Run("Archive Failure Does Not Fail The Pass", func(t *testing.T) {
		app, store := setupTestApp(t, &memoryArchive{err: assert.AnError})
		require.NoError(t, store.Save(ctx, protein("P12345")))

		status, body := decode(t, app, "POST", "/reconcile/P12345")
		assert.Equal(t, fiber.StatusOK, status)
		assert.Nil(t, body["archived"])
	})
}
