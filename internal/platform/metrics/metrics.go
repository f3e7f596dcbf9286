// Package metrics exposes gateway counters on a private Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"olink/go-backend/internal/ussd"
)

const namespace = "olink"

// Outcome labels for request counting.
const (
	OutcomeContinue  = "continue"
	OutcomeTerminate = "terminate"
	OutcomeRejected  = "rejected"
	OutcomeLimited   = "rate_limited"
	OutcomeFailed    = "failed"
)

type Registry struct {
	reg       *prometheus.Registry
	requests  *prometheus.CounterVec
	steps     *prometheus.CounterVec
	upstream  *prometheus.CounterVec
	durations prometheus.Histogram
	dropped   prometheus.Counter
}

func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Registry{
		reg: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ussd",
			Name:      "requests_total",
			Help:      "Dial events handled, by outcome.",
		}, []string{"outcome"}),
		steps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ussd",
			Name:      "flow_steps_total",
			Help:      "Reduced dialog steps, by flow and action.",
		}, []string{"flow", "step"}),
		upstream: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_failures_total",
			Help:      "Collaborator calls that failed.",
		}, []string{"collaborator"}),
		durations: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ussd",
			Name:      "request_duration_seconds",
			Help:      "Time to answer a dial event.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		dropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_dropped_total",
			Help:      "Notifications discarded because the send queue was full.",
		}),
	}
}

func (r *Registry) ObserveStep(flow ussd.Flow, action ussd.Action) {
	r.steps.WithLabelValues(string(flow), action.String()).Inc()
}

func (r *Registry) ObserveUpstreamFailure(collaborator string) {
	r.upstream.WithLabelValues(collaborator).Inc()
}

// ObserveRequest counts one answered dial event.
func (r *Registry) ObserveRequest(outcome string, elapsed time.Duration) {
	r.requests.WithLabelValues(outcome).Inc()
	r.durations.Observe(elapsed.Seconds())
}

func (r *Registry) NotificationDropped() {
	r.dropped.Inc()
}

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer is exposed for tests and embedding.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}
