package observe

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumInt(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: expected Sum[int64], got %T", m.Name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestRecordDocumentAndStrategy(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordDocument(ctx, "ok")
	m.RecordDocument(ctx, "ok")
	m.RecordDocument(ctx, "failed")
	m.RecordStrategy(ctx, "exact", 3*time.Millisecond, 2)
	m.RecordStrategy(ctx, "fuzzy", 40*time.Millisecond, 5)
	m.RecordSemanticUnavailable(ctx)

	rm := collect(t, reader)

	docs := findMetric(rm, "clichecounter.documents.processed")
	if docs == nil {
		t.Fatal("documents metric not found")
	}
	if got := sumInt(t, docs); got != 3 {
		t.Errorf("expected 3 documents, got %d", got)
	}

	occ := findMetric(rm, "clichecounter.occurrences")
	if occ == nil {
		t.Fatal("occurrences metric not found")
	}
	if got := sumInt(t, occ); got != 7 {
		t.Errorf("expected 7 occurrences, got %d", got)
	}

	dur := findMetric(rm, "clichecounter.detect.duration")
	if dur == nil {
		t.Fatal("duration metric not found")
	}
	hist, ok := dur.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected histogram, got %T", dur.Data)
	}
	if len(hist.DataPoints) != 2 {
		t.Errorf("expected one data point per strategy, got %d", len(hist.DataPoints))
	}

	sem := findMetric(rm, "clichecounter.semantic.unavailable")
	if sem == nil || sumInt(t, sem) != 1 {
		t.Error("expected one semantic-unavailable document")
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordDocument(ctx, "ok")
	m.RecordSemanticUnavailable(ctx)
	m.RecordStrategy(ctx, "exact", time.Second, 1)
}

func TestSnapshotLines(t *testing.T) {
	s := &Snapshot{
		Documents:           map[string]int64{"ok": 3, "failed": 1},
		SemanticUnavailable: 2,
		Occurrences:         map[string]int64{"fuzzy": 4, "exact": 5},
		DetectSeconds:       map[string]float64{"exact": 0.25, "fuzzy": 1.5},
	}
	want := []string{
		"documents failed: 1",
		"documents ok: 3",
		"semantic unavailable: 2",
		"exact: 5 occurrences in 0.250s",
		"fuzzy: 4 occurrences in 1.500s",
	}
	got := s.Lines()
	if len(got) != len(want) {
		t.Fatalf("Lines() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestInitProviderSnapshot(t *testing.T) {
	p, err := InitProvider()
	if err != nil {
		t.Fatalf("InitProvider: %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	ctx := context.Background()
	p.Metrics.RecordDocument(ctx, "ok")
	p.Metrics.RecordDocument(ctx, "failed")
	p.Metrics.RecordSemanticUnavailable(ctx)
	p.Metrics.RecordStrategy(ctx, "fuzzy", 500*time.Millisecond, 7)

	snap, err := p.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Documents["ok"] != 1 || snap.Documents["failed"] != 1 {
		t.Errorf("documents = %v", snap.Documents)
	}
	if snap.SemanticUnavailable != 1 {
		t.Errorf("semantic unavailable = %d, want 1", snap.SemanticUnavailable)
	}
	if snap.Occurrences["fuzzy"] != 7 {
		t.Errorf("fuzzy occurrences = %d, want 7", snap.Occurrences["fuzzy"])
	}
	if snap.DetectSeconds["fuzzy"] < 0.499 || snap.DetectSeconds["fuzzy"] > 0.501 {
		t.Errorf("fuzzy seconds = %v, want 0.5", snap.DetectSeconds["fuzzy"])
	}
}
