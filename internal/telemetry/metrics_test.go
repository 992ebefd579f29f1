package telemetry

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"

	"alembic/internal/optimizer"
)

func TestMetricsObserveGeneration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg, "run-1")
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	m.ObserveGeneration(optimizer.GenerationStats{
		Generation:     1,
		BestConstraint: -4,
		BestFitness:    []float64{2.5, -1},
		FrontSize:      3,
		Duration:       20 * time.Millisecond,
	})
	m.ObserveGeneration(optimizer.GenerationStats{
		Generation:  2,
		BestFitness: []float64{3, -0.5},
		FrontSize:   5,
		Retries:     2,
		Duration:    10 * time.Millisecond,
	})
	// Each failed attempt behind the two retries of generation 2.
	m.ObserveFailure(1, errors.New("boom"))
	m.ObserveFailure(1, errors.New("boom"))
	m.ObserveSnapshot()

	checks := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"generations", m.generations.WithLabelValues("run-1"), 2},
		{"retries", m.retries.WithLabelValues("run-1"), 2},
		{"failures", m.failures.WithLabelValues("run-1"), 2},
		{"snapshots", m.snapshots.WithLabelValues("run-1"), 1},
		{"generation", m.generation.WithLabelValues("run-1"), 2},
		{"constraint", m.constraint.WithLabelValues("run-1"), 0},
		{"front size", m.frontSize.WithLabelValues("run-1"), 5},
		{"objective 0", m.bestObjective.WithLabelValues("run-1", "0"), 3},
		{"objective 1", m.bestObjective.WithLabelValues("run-1", "1"), -0.5},
	}
	for _, check := range checks {
		if got := testutil.ToFloat64(check.c); got != check.want {
			t.Errorf("%s = %v, want %v", check.name, got, check.want)
		}
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	hist := findFamily(families, "alembic_optimizer_generation_duration_seconds")
	if hist == nil || len(hist.GetMetric()) != 1 {
		t.Fatalf("expected one duration histogram, got %v", hist)
	}
	h := hist.GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 2 {
		t.Fatalf("histogram sample count = %d, want 2", h.GetSampleCount())
	}
	if sum := h.GetSampleSum(); sum < 0.0299 || sum > 0.0301 {
		t.Fatalf("histogram sample sum = %v, want 0.03", sum)
	}
}

func TestMetricsDuplicateRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewMetrics(reg, "a"); err != nil {
		t.Fatalf("first NewMetrics: %v", err)
	}
	if _, err := NewMetrics(reg, "b"); !errors.Is(err, ErrRegistrationFailed) {
		t.Fatalf("expected ErrRegistrationFailed, got %v", err)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg, "run-http")
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.ObserveGeneration(optimizer.GenerationStats{Generation: 7, FrontSize: 1})

	server := httptest.NewServer(Handler(reg))
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), `alembic_optimizer_generation{run="run-http"} 7`) {
		t.Fatalf("generation gauge missing from exposition:\n%s", body)
	}
}

func TestObserversFanOut(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, _ := NewMetrics(reg, "a")
	other := prometheus.NewRegistry()
	b, _ := NewMetrics(other, "b")

	var fan optimizer.Observer = Observers{a, b, optimizer.NopObserver{}}
	fan.ObserveGeneration(optimizer.GenerationStats{Generation: 1})
	fan.ObserveFailure(2, errors.New("x"))

	if testutil.ToFloat64(a.generations.WithLabelValues("a")) != 1 || testutil.ToFloat64(b.generations.WithLabelValues("b")) != 1 {
		t.Fatal("expected both observers to see the generation")
	}
	if testutil.ToFloat64(b.failures.WithLabelValues("b")) != 1 {
		t.Fatal("expected failure to fan out")
	}
}

func findFamily(families []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}
