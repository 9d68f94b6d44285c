// Package metrics exposes the gateway's Prometheus instruments on a private
// registry. A nil *Gateway is valid and records nothing, so tests and callers
// that do not care about metrics can pass nil.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "safeserve"

// Gateway holds the gateway instruments.
type Gateway struct {
	registry *prometheus.Registry

	calls        *prometheus.CounterVec
	failures     *prometheus.CounterVec
	breakerTrips prometheus.Counter
	duration     *prometheus.HistogramVec
	sessions     prometheus.Gauge
}

// NewGateway builds the instruments and registers them, together with the Go
// and process collectors, on a fresh registry.
func NewGateway() *Gateway {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{Namespace: namespace}),
		prometheus.NewGoCollector(),
	)

	g := &Gateway{
		registry: reg,
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "calls_total",
			Help:      "Gateway operations by outcome (success or fallback).",
		}, []string{"operation", "outcome"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "failures_total",
			Help:      "Operations that fell back, by the error kind that ended them.",
		}, []string{"operation", "kind"}),
		breakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "breaker_trips_total",
			Help:      "Times the quota breaker opened.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "call_duration_seconds",
			Help:      "Wall time of gateway operations, including retries.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"operation"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "active_sessions",
			Help:      "Chat sessions currently held in memory.",
		}),
	}
	reg.MustRegister(g.calls, g.failures, g.breakerTrips, g.duration, g.sessions)
	return g
}

// Outcome labels for ObserveCall.
const (
	OutcomeSuccess  = "success"
	OutcomeFallback = "fallback"
)

// ObserveCall records one completed operation.
func (g *Gateway) ObserveCall(op, outcome string, elapsed time.Duration) {
	if g == nil {
		return
	}
	g.calls.WithLabelValues(op, outcome).Inc()
	g.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveFailure records the error kind that ended an operation's remote call.
func (g *Gateway) ObserveFailure(op, kind string) {
	if g == nil {
		return
	}
	g.failures.WithLabelValues(op, kind).Inc()
}

// BreakerTripped counts a quota breaker trip.
func (g *Gateway) BreakerTripped() {
	if g == nil {
		return
	}
	g.breakerTrips.Inc()
}

// SetSessions reports the live chat session count.
func (g *Gateway) SetSessions(n int) {
	if g == nil {
		return
	}
	g.sessions.Set(float64(n))
}

// Registry exposes the underlying registry for tests.
func (g *Gateway) Registry() *prometheus.Registry {
	if g == nil {
		return nil
	}
	return g.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (g *Gateway) Handler() http.Handler {
	if g == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(g.registry, promhttp.HandlerOpts{Registry: g.registry})
}
