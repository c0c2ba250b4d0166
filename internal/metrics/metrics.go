// Package metrics exposes Prometheus collectors for droid runs.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/supremeagent/droidexec/pkg/executor/droid"
	"github.com/supremeagent/droidexec/pkg/sdk"
)

const namespace = "droidexec"

// Run outcomes used as the "outcome" label.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeTimeout = "timeout"
	OutcomeError   = "error"
)

// Metrics groups the collectors of one registry.
type Metrics struct {
	registry *prometheus.Registry

	runs        *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	events      *prometheus.CounterVec
	truncations *prometheus.CounterVec
	inFlight    prometheus.Gauge
}

// New creates the collectors on a fresh registry, so several instances can
// coexist in tests.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Droid runs by outcome.",
		}, []string{"outcome"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of droid runs.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		}, []string{"outcome"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_events_total",
			Help:      "Decoded droid stream events by type.",
		}, []string{"type"}),
		truncations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "truncations_total",
			Help:      "Runs whose buffers hit their size cap.",
		}, []string{"buffer"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_in_flight",
			Help:      "Droid runs currently executing.",
		}),
	}

	m.registry.MustRegister(
		m.runs,
		m.runDuration,
		m.events,
		m.truncations,
		m.inFlight,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Outcome classifies a finished run.
func Outcome(res *droid.Result, err error) string {
	switch {
	case err != nil || res == nil:
		return OutcomeError
	case res.TimedOut:
		return OutcomeTimeout
	case res.Success:
		return OutcomeSuccess
	}
	return OutcomeFailed
}

// RunStarted marks a run in flight.
func (m *Metrics) RunStarted() {
	m.inFlight.Inc()
}

// RunFinished records the outcome of a run.
func (m *Metrics) RunFinished(res *droid.Result, err error, elapsed time.Duration) {
	m.inFlight.Dec()

	outcome := Outcome(res, err)
	m.runs.WithLabelValues(outcome).Inc()
	m.runDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())

	if res == nil {
		return
	}
	if res.AgentMessagesTruncated {
		m.truncations.WithLabelValues("agent_messages").Inc()
	}
	if res.AllMessagesTruncated {
		m.truncations.WithLabelValues("all_messages").Inc()
	}
}

// EventDecoded counts one stream event.
func (m *Metrics) EventDecoded(evt droid.Event) {
	typ := string(evt.Type)
	if typ == "" {
		typ = "unknown"
	}
	m.events.WithLabelValues(typ).Inc()
}

// Hooks returns SDK hooks that feed the collectors. next, when set, is
// invoked after the metrics are recorded.
func (m *Metrics) Hooks(next sdk.Hooks) sdk.Hooks {
	return sdk.Hooks{
		OnRunStart: func(ctx context.Context, runID string, req droid.Request) {
			m.RunStarted()
			if next.OnRunStart != nil {
				next.OnRunStart(ctx, runID, req)
			}
		},
		OnEvent: func(ctx context.Context, runID string, evt droid.Event) {
			m.EventDecoded(evt)
			if next.OnEvent != nil {
				next.OnEvent(ctx, runID, evt)
			}
		},
		OnRunEnd: func(ctx context.Context, runID string, res *droid.Result, err error, elapsed time.Duration) {
			m.RunFinished(res, err, elapsed)
			if next.OnRunEnd != nil {
				next.OnRunEnd(ctx, runID, res, err, elapsed)
			}
		},
		OnStoreError: next.OnStoreError,
	}
}
