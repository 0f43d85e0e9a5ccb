// Package observe provides observability primitives for Captor:
// OpenTelemetry metrics and the provider wiring that exposes them through a
// Prometheus /metrics endpoint.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A package-level
// default [Metrics] instance ([DefaultMetrics]) is provided for convenience;
// tests should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Captor metrics.
const meterName = "github.com/mediasmith/captor"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Counters ---

	// ChunksAppended counts media fragments accepted into chunk buffers.
	// Use with attribute.String("kind", ...).
	ChunksAppended metric.Int64Counter

	// BytesCaptured counts captured payload bytes.
	// Use with attribute.String("kind", ...).
	BytesCaptured metric.Int64Counter

	// CaptureFailures counts device/permission failures.
	// Use with attribute.String("reason", ...).
	CaptureFailures metric.Int64Counter

	// SizeLimitStops counts automatic stops triggered by the upload size
	// limit.
	SizeLimitStops metric.Int64Counter

	// Uploads counts terminal upload outcomes.
	// Use with attribute.String("outcome", ...).
	Uploads metric.Int64Counter

	// --- Histograms ---

	// UploadDuration tracks the wall time of one upload attempt.
	UploadDuration metric.Float64Histogram

	// CaptureDuration tracks the recorded length of finished captures.
	CaptureDuration metric.Float64Histogram

	// HTTPRequestDuration tracks control API request latencies.
	// Use with attribute.String("method", ...) and attribute.String("path", ...).
	HTTPRequestDuration metric.Float64Histogram

	// --- Gauges ---

	// ActiveSessions tracks sessions currently holding a device handle.
	ActiveSessions metric.Int64UpDownCounter
}

// uploadBuckets defines histogram bucket boundaries (in seconds) for upload
// latencies.
var uploadBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120,
}

// captureBuckets defines histogram bucket boundaries (in seconds) for
// recorded capture lengths.
var captureBuckets = []float64{
	1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Counters.
	if met.ChunksAppended, err = m.Int64Counter("captor.chunks.appended",
		metric.WithDescription("Total media fragments accepted by capture kind."),
	); err != nil {
		return nil, err
	}
	if met.BytesCaptured, err = m.Int64Counter("captor.bytes.captured",
		metric.WithDescription("Total captured payload bytes by capture kind."),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	if met.CaptureFailures, err = m.Int64Counter("captor.capture.failures",
		metric.WithDescription("Total device or permission failures by reason."),
	); err != nil {
		return nil, err
	}
	if met.SizeLimitStops, err = m.Int64Counter("captor.size_limit.stops",
		metric.WithDescription("Total automatic stops triggered by the upload size limit."),
	); err != nil {
		return nil, err
	}
	if met.Uploads, err = m.Int64Counter("captor.uploads",
		metric.WithDescription("Total terminal upload outcomes by classification."),
	); err != nil {
		return nil, err
	}

	// Histograms.
	if met.UploadDuration, err = m.Float64Histogram("captor.upload.duration",
		metric.WithDescription("Wall time of one upload attempt."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(uploadBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CaptureDuration, err = m.Float64Histogram("captor.capture.duration",
		metric.WithDescription("Recorded length of finished captures."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(captureBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("captor.http.request.duration",
		metric.WithDescription("Control API request latency."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("captor.active_sessions",
		metric.WithDescription("Sessions currently holding a capture device."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordUpload records a terminal upload outcome with its duration.
func (m *Metrics) RecordUpload(ctx context.Context, outcome string, seconds float64) {
	m.Uploads.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	m.UploadDuration.Record(ctx, seconds)
}
