package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()
	m.IncrementOutcome("FOUND", "EXACT")
	m.IncrementOutcome("FOUND", "EXACT")
	m.ObserveCacheLookup("url", true)
	m.ObserveCacheLookup("url", false)
	m.ObserveCollaborator("oracle", 10*time.Millisecond, nil)
	m.ObserveCollaborator("oracle", 20*time.Millisecond, errors.New("boom"))

	if got := testutil.ToFloat64(m.Outcomes.WithLabelValues("FOUND", "EXACT")); got != 2 {
		t.Fatalf("outcomes = %v", got)
	}
	if got := testutil.ToFloat64(m.CacheLookups.WithLabelValues("url", "hit")); got != 1 {
		t.Fatalf("cache hits = %v", got)
	}
	if got := testutil.ToFloat64(m.CollaboratorFailures.WithLabelValues("oracle")); got != 1 {
		t.Fatalf("failures = %v", got)
	}
	if got := testutil.CollectAndCount(m.CollaboratorLatency); got != 1 {
		t.Fatalf("latency series = %d", got)
	}
}

func TestInstancesDoNotShareRegistry(t *testing.T) {
	a, b := New(), New()
	a.IncrementOutcome("FOUND", "SLUG")
	if got := testutil.ToFloat64(b.Outcomes.WithLabelValues("FOUND", "SLUG")); got != 0 {
		t.Fatalf("second instance saw %v outcomes", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.IncrementOutcome("FOUND", "EXACT")
	m.ObserveCacheLookup("url", true)
	m.ObserveCollaborator("oracle", time.Second, nil)
	m.ObserveResolve(time.Second)
	if err := m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")); err != nil {
		t.Fatal(err)
	}
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.IncrementOutcome("AMBIGUOUS", "FUZZY")
	path := filepath.Join(t.TempDir(), "modanalyzer.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `modanalyzer_decision_outcomes_total{stage="FUZZY",status="AMBIGUOUS"} 1`) {
		t.Fatalf("unexpected textfile:\n%s", data)
	}
}
