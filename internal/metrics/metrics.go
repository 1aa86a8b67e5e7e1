// Package metrics exposes Prometheus collectors for both relays, wired to
// the optional --metrics-addr side listener. It implements the
// backend.Recorder and frontend.Recorder interfaces so either relay can be
// instrumented without importing Prometheus types directly.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Backend instruments the Backend Relay: the target-connection-state gauge
// directly observes the "at most one target connection" invariant from the
// outside, and the request counter is labeled by outcome status code.
type Backend struct {
	targetConnectionOpen prometheus.Gauge
	requestsTotal        *prometheus.CounterVec
}

// NewBackend registers the Backend's collectors against reg.
func NewBackend(reg prometheus.Registerer) *Backend {
	factory := promauto.With(reg)
	return &Backend{
		targetConnectionOpen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "tunnel",
			Subsystem: "backend",
			Name:      "target_connection_open",
			Help:      "1 if the backend currently holds an open connection to the target, 0 otherwise.",
		}),
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tunnel",
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "SCGI requests handled, labeled by response status code.",
		}, []string{"status"}),
	}
}

// TargetConnectionOpen implements backend.Recorder.
func (b *Backend) TargetConnectionOpen(open bool) {
	if open {
		b.targetConnectionOpen.Set(1)
	} else {
		b.targetConnectionOpen.Set(0)
	}
}

// RequestHandled implements backend.Recorder.
func (b *Backend) RequestHandled(statusCode int) {
	b.requestsTotal.WithLabelValues(statusLabel(statusCode)).Inc()
}

func statusLabel(code int) string {
	switch code {
	case 200:
		return "200"
	case 400:
		return "400"
	case 413:
		return "413"
	case 502:
		return "502"
	default:
		return "other"
	}
}

// Frontend instruments the Frontend Relay: a gauge tracking the current
// adaptive-poll delay, which is monotone non-decreasing while idle per
// spec.md §8.
type Frontend struct {
	backoffSeconds prometheus.Gauge
}

// NewFrontend registers the Frontend's collectors against reg.
func NewFrontend(reg prometheus.Registerer) *Frontend {
	factory := promauto.With(reg)
	return &Frontend{
		backoffSeconds: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "tunnel",
			Subsystem: "frontend",
			Name:      "backoff_delay_seconds",
			Help:      "Current adaptive poll interval.",
		}),
	}
}

// BackoffDelay implements frontend.Recorder.
func (f *Frontend) BackoffDelay(d time.Duration) {
	f.backoffSeconds.Set(d.Seconds())
}
