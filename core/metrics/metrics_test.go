package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"protein-updater/core/reconcile"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSink(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewSink(reg)

	sink.RangeShifted(reconcile.RangeShiftedEvent{})
	sink.RangeShifted(reconcile.RangeShiftedEvent{})
	sink.RecordDeleted(reconcile.RecordDeletedEvent{})
	sink.ProcessError(&reconcile.ProcessError{Kind: reconcile.KindDeadParent})

	sink.PassFinished(reconcile.PassResult{Report: &reconcile.Report{Found: true}, Duration: time.Second})
	sink.PassFinished(reconcile.PassResult{Report: &reconcile.Report{}})
	sink.PassFinished(reconcile.PassResult{Err: assert.AnError})

	assert.Equal(t, 2.0, testutil.ToFloat64(sink.events.WithLabelValues("range_shifted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.events.WithLabelValues("record_deleted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.errors.WithLabelValues("dead_parent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.passes.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.passes.WithLabelValues("stale")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.passes.WithLabelValues("failed")))
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewSink(reg)
	sink.RecordExcluded(reconcile.RecordExcludedEvent{})

	app := fiber.New()
	app.Get("/metrics", Handler(reg))

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `protein_updater_events_total{event="record_excluded"} 1`)
}
