// Package observe provides OpenTelemetry metrics for detection runs and a
// Prometheus exporter bridge so they can be scraped from /metrics.
//
// Tests should use NewMetrics with a custom metric.MeterProvider; a nil
// *Metrics is valid and records nothing.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/TobiSchelling/ClicheCounter"

// Metrics holds the metric instruments of a detection run.
type Metrics struct {
	// DocumentsProcessed counts documents by status ("ok" or "failed").
	DocumentsProcessed metric.Int64Counter

	// SemanticUnavailable counts documents whose sentence embeddings failed.
	SemanticUnavailable metric.Int64Counter

	// Occurrences counts detected occurrences by strategy.
	Occurrences metric.Int64Counter

	// DetectDuration tracks per-document matcher latency by strategy.
	DetectDuration metric.Float64Histogram
}

var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30,
}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.DocumentsProcessed, err = m.Int64Counter("clichecounter.documents.processed",
		metric.WithDescription("Documents processed by detection status."),
	); err != nil {
		return nil, err
	}
	if met.SemanticUnavailable, err = m.Int64Counter("clichecounter.semantic.unavailable",
		metric.WithDescription("Documents whose semantic contribution was unavailable."),
	); err != nil {
		return nil, err
	}
	if met.Occurrences, err = m.Int64Counter("clichecounter.occurrences",
		metric.WithDescription("Detected phrase occurrences by strategy."),
	); err != nil {
		return nil, err
	}
	if met.DetectDuration, err = m.Float64Histogram("clichecounter.detect.duration",
		metric.WithDescription("Per-document matcher latency by strategy."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// RecordDocument counts one processed document.
func (m *Metrics) RecordDocument(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.DocumentsProcessed.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordSemanticUnavailable counts one document without semantic results.
func (m *Metrics) RecordSemanticUnavailable(ctx context.Context) {
	if m == nil {
		return
	}
	m.SemanticUnavailable.Add(ctx, 1)
}

// RecordStrategy records the latency and occurrence count of one matcher
// run on one document.
func (m *Metrics) RecordStrategy(ctx context.Context, strategy string, elapsed time.Duration, occurrences int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("strategy", strategy))
	m.DetectDuration.Record(ctx, elapsed.Seconds(), attrs)
	m.Occurrences.Add(ctx, int64(occurrences), attrs)
}
