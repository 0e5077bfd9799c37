package metrics

import (
	"protein-updater/core/reconcile"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "protein_updater"

// Sink counts reconciliation events and pass outcomes. It implements
// reconcile.EventSink and reconcile.PassObserver.
type Sink struct {
	events   *prometheus.CounterVec
	errors   *prometheus.CounterVec
	passes   *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewSink registers the reconciliation metrics with reg.
func NewSink(reg prometheus.Registerer) *Sink {
	factory := promauto.With(reg)
	return &Sink{
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Reconciliation events by kind",
		}, []string{"event"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "process_errors_total",
			Help:      "Non-fatal process errors by kind",
		}, []string{"kind"}),
		passes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passes_total",
			Help:      "Reconciliation passes by outcome",
		}, []string{"outcome"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Wall time of a reconciliation pass",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}),
	}
}

func (s *Sink) RangeShifted(reconcile.RangeShiftedEvent) {
	s.events.WithLabelValues("range_shifted").Inc()
}

func (s *Sink) RangeInvalid(reconcile.InvalidRange) {
	s.events.WithLabelValues("range_invalid").Inc()
}

func (s *Sink) DuplicatesFound(reconcile.DuplicatesFoundEvent) {
	s.events.WithLabelValues("duplicates_found").Inc()
}

func (s *Sink) TranscriptCreated(reconcile.TranscriptCreatedEvent) {
	s.events.WithLabelValues("transcript_created").Inc()
}

func (s *Sink) ParentRemapped(reconcile.ParentRemappedEvent) {
	s.events.WithLabelValues("parent_remapped").Inc()
}

func (s *Sink) RecordExcluded(reconcile.RecordExcludedEvent) {
	s.events.WithLabelValues("record_excluded").Inc()
}

func (s *Sink) RecordDeleted(reconcile.RecordDeletedEvent) {
	s.events.WithLabelValues("record_deleted").Inc()
}

func (s *Sink) ProcessError(e *reconcile.ProcessError) {
	s.errors.WithLabelValues(string(e.Kind)).Inc()
}

// PassFinished records the outcome and duration of a pass.
func (s *Sink) PassFinished(res reconcile.PassResult) {
	outcome := "ok"
	switch {
	case res.Err != nil:
		outcome = "failed"
	case res.Report != nil && !res.Report.Found:
		outcome = "stale"
	}
	s.passes.WithLabelValues(outcome).Inc()
	s.duration.Observe(res.Duration.Seconds())
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}
