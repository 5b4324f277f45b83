package observe

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// Provider owns the MeterProvider of one CLI process. Its instruments are
// read back in two ways: a manual reader for the end-of-run summary, and
// the OTel Prometheus exporter whose registry can be written to a textfile
// for node_exporter's textfile collector.
type Provider struct {
	Metrics *Metrics

	mp       *sdkmetric.MeterProvider
	reader   *sdkmetric.ManualReader
	registry *prometheus.Registry
}

// InitProvider installs a global MeterProvider with both readers.
func InitProvider() (*Provider, error) {
	registry := prometheus.NewRegistry()
	exp, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, err
	}
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp), sdkmetric.WithReader(reader))
	otel.SetMeterProvider(mp)

	m, err := NewMetrics(mp)
	if err != nil {
		_ = mp.Shutdown(context.Background())
		return nil, err
	}
	return &Provider{Metrics: m, mp: mp, reader: reader, registry: registry}, nil
}

// Gatherer returns the registry the Prometheus exporter registers with.
func (p *Provider) Gatherer() prometheus.Gatherer {
	return p.registry
}

// WriteTextfile writes the current values in the Prometheus text format.
func (p *Provider) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, p.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}

// Shutdown flushes and stops the provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.mp.Shutdown(ctx)
}

// Snapshot is the cumulative state of the detection instruments.
type Snapshot struct {
	Documents           map[string]int64   // by status
	SemanticUnavailable int64              // documents without semantic results
	Occurrences         map[string]int64   // by strategy
	DetectSeconds       map[string]float64 // summed latency by strategy
}

// Snapshot collects the instruments through the manual reader.
func (p *Provider) Snapshot(ctx context.Context) (*Snapshot, error) {
	var rm metricdata.ResourceMetrics
	if err := p.reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("collecting metrics: %w", err)
	}

	s := &Snapshot{
		Documents:     make(map[string]int64),
		Occurrences:   make(map[string]int64),
		DetectSeconds: make(map[string]float64),
	}
	for _, sm := range rm.ScopeMetrics {
		if sm.Scope.Name != meterName {
			continue
		}
		for _, m := range sm.Metrics {
			switch m.Name {
			case "clichecounter.documents.processed":
				addByAttr(s.Documents, m.Data, "status")
			case "clichecounter.occurrences":
				addByAttr(s.Occurrences, m.Data, "strategy")
			case "clichecounter.semantic.unavailable":
				if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
					for _, dp := range sum.DataPoints {
						s.SemanticUnavailable += dp.Value
					}
				}
			case "clichecounter.detect.duration":
				if h, ok := m.Data.(metricdata.Histogram[float64]); ok {
					for _, dp := range h.DataPoints {
						v, _ := dp.Attributes.Value("strategy")
						s.DetectSeconds[v.AsString()] += dp.Sum
					}
				}
			}
		}
	}
	return s, nil
}

func addByAttr(dst map[string]int64, data metricdata.Aggregation, key string) {
	sum, ok := data.(metricdata.Sum[int64])
	if !ok {
		return
	}
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key(key))
		dst[v.AsString()] += dp.Value
	}
}

// Lines formats the snapshot for the CLI step summary, one line per
// status and strategy in name order.
func (s *Snapshot) Lines() []string {
	var lines []string
	for _, status := range sortedKeys(s.Documents) {
		lines = append(lines, fmt.Sprintf("documents %s: %d", status, s.Documents[status]))
	}
	if s.SemanticUnavailable > 0 {
		lines = append(lines, fmt.Sprintf("semantic unavailable: %d", s.SemanticUnavailable))
	}
	for _, strategy := range sortedKeys(s.Occurrences) {
		lines = append(lines, fmt.Sprintf("%s: %d occurrences in %.3fs",
			strategy, s.Occurrences[strategy], s.DetectSeconds[strategy]))
	}
	return lines
}

// String joins Lines with newlines.
func (s *Snapshot) String() string {
	return strings.Join(s.Lines(), "\n")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
