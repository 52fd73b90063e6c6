package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	childSpawns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ptysup",
			Subsystem: "child",
			Name:      "spawns_total",
			Help:      "Number of successful child launches.",
		}, []string{"mode"}, // forked | prewarmed
	)
	childSpawnFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ptysup",
			Subsystem: "child",
			Name:      "spawn_failures_total",
			Help:      "Number of launches aborted by a fatal spawn error.",
		},
	)
	signalsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ptysup",
			Subsystem: "child",
			Name:      "signals_total",
			Help:      "Signals delivered to foreground process groups by the key translator.",
		}, []string{"signal"},
	)
	introspectionFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ptysup",
			Subsystem: "procinfo",
			Name:      "fallbacks_total",
			Help:      "Introspection queries that raced with process exit and used their documented fallback.",
		}, []string{"op"}, // cmdline | cwd | environ | groups
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{childSpawns, childSpawnFailures, signalsSent, introspectionFallbacks}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler exposes the default prometheus handler for embedding in a mux.
func Handler() http.Handler { return promhttp.Handler() }

func ChildSpawned(prewarmed bool) {
	mode := "forked"
	if prewarmed {
		mode = "prewarmed"
	}
	childSpawns.WithLabelValues(mode).Inc()
}

func ChildSpawnFailed() { childSpawnFailures.Inc() }

func SignalSent(name string) { signalsSent.WithLabelValues(name).Inc() }

func IntrospectionFallback(op string) { introspectionFallbacks.WithLabelValues(op).Inc() }
