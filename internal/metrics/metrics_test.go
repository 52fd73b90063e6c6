package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterIdempotent(t *testing.T) {
	r := prometheus.NewRegistry()
	if err := Register(r); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := Register(r); err != nil {
		t.Fatalf("second Register: %v", err)
	}
}

func TestCounters(t *testing.T) {
	r := prometheus.NewRegistry()
	if err := Register(r); err != nil {
		t.Fatalf("Register: %v", err)
	}

	forked := testutil.ToFloat64(childSpawns.WithLabelValues("forked"))
	warm := testutil.ToFloat64(childSpawns.WithLabelValues("prewarmed"))
	ChildSpawned(false)
	ChildSpawned(true)
	ChildSpawned(true)
	if got := testutil.ToFloat64(childSpawns.WithLabelValues("forked")); got != forked+1 {
		t.Fatalf("forked spawns: %v", got)
	}
	if got := testutil.ToFloat64(childSpawns.WithLabelValues("prewarmed")); got != warm+2 {
		t.Fatalf("prewarmed spawns: %v", got)
	}

	failures := testutil.ToFloat64(childSpawnFailures)
	ChildSpawnFailed()
	if got := testutil.ToFloat64(childSpawnFailures); got != failures+1 {
		t.Fatalf("spawn failures: %v", got)
	}

	sigint := testutil.ToFloat64(signalsSent.WithLabelValues("SIGINT"))
	SignalSent("SIGINT")
	if got := testutil.ToFloat64(signalsSent.WithLabelValues("SIGINT")); got != sigint+1 {
		t.Fatalf("signals: %v", got)
	}

	cwd := testutil.ToFloat64(introspectionFallbacks.WithLabelValues("cwd"))
	IntrospectionFallback("cwd")
	if got := testutil.ToFloat64(introspectionFallbacks.WithLabelValues("cwd")); got != cwd+1 {
		t.Fatalf("fallbacks: %v", got)
	}
}

func TestHandler(t *testing.T) {
	if Handler() == nil {
		t.Fatal("nil metrics handler")
	}
}
