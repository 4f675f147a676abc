// Package metrics exposes generation and delivery counters for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns its registry so tests and multiple runs do not collide on the
// global one. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	EmailsGenerated    *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	AIAttempts         *prometheus.CounterVec
	ProspectsSkipped   prometheus.Counter
	EmailsSent         *prometheus.CounterVec
	BatchesActive      prometheus.Gauge
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		EmailsGenerated: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outreach_emails_generated_total",
				Help: "Emails generated, by method and industry category",
			},
			[]string{"method", "category"},
		),
		GenerationDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "outreach_generation_duration_seconds",
				Help:    "Wall time from first AI attempt to final result",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 15, 30, 60, 90},
			},
			[]string{"method"},
		),
		AIAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outreach_ai_attempts_total",
				Help: "AI generation attempts, by tier and outcome",
			},
			[]string{"tier", "outcome"},
		),
		ProspectsSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "outreach_prospects_skipped_total",
			Help: "Prospects skipped because they failed validation",
		}),
		EmailsSent: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outreach_emails_sent_total",
				Help: "Send attempts, by transport and outcome",
			},
			[]string{"transport", "outcome"},
		),
		BatchesActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "outreach_batches_active",
			Help: "Batch runs currently in progress",
		}),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) ObserveGeneration(method, category string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.EmailsGenerated.WithLabelValues(method, category).Inc()
	r.GenerationDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (r *Recorder) ObserveAttempt(tier, outcome string) {
	if r == nil {
		return
	}
	r.AIAttempts.WithLabelValues(tier, outcome).Inc()
}

func (r *Recorder) ObserveSkipped() {
	if r == nil {
		return
	}
	r.ProspectsSkipped.Inc()
}

func (r *Recorder) ObserveSend(transport string, ok bool) {
	if r == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	r.EmailsSent.WithLabelValues(transport, outcome).Inc()
}

// BatchStarted increments the active gauge and returns the matching decrement.
func (r *Recorder) BatchStarted() func() {
	if r == nil {
		return func() {}
	}
	r.BatchesActive.Inc()
	return r.BatchesActive.Dec
}
