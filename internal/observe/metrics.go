// Package observe provides application-wide observability primitives for
// Lexline: OpenTelemetry metrics and the provider setup that bridges them to
// a Prometheus /metrics endpoint.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A package-level
// default [Metrics] instance ([DefaultMetrics]) is provided for convenience;
// tests should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution. All recording helpers are nil-receiver safe so
// components constructed without metrics stay silent instead of panicking.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Lexline metrics.
const meterName = "github.com/lexline-ai/lexline"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// ActiveCalls tracks the number of live call sessions.
	ActiveCalls metric.Int64UpDownCounter

	// CallDuration tracks total call length from creation to teardown.
	CallDuration metric.Float64Histogram

	// FramesRelayed counts audio payloads forwarded between the telephony
	// and model connections. Attribute: direction ("to_model"/"to_caller").
	FramesRelayed metric.Int64Counter

	// FramesDropped counts payloads discarded because the destination
	// connection was absent or closed. Attribute: direction.
	FramesDropped metric.Int64Counter

	// CallerUtterances counts completed caller-speech transcriptions.
	CallerUtterances metric.Int64Counter

	// FieldsExtracted counts lead field values captured from transcript
	// text. Attribute: field.
	FieldsExtracted metric.Int64Counter

	// SettleFires counts settled-conversation determinations.
	// Attribute: reason ("timer"/"hangup"/"model_error").
	SettleFires metric.Int64Counter

	// LeadSaves counts persistence dispatch outcomes. Attribute: status
	// ("ok"/"error").
	LeadSaves metric.Int64Counter
}

// durationBuckets defines histogram bucket boundaries (in seconds) sized for
// phone-call lengths.
var durationBuckets = []float64{
	5, 15, 30, 60, 120, 300, 600, 1200, 1800, 3600,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ActiveCalls, err = m.Int64UpDownCounter("lexline.calls.active",
		metric.WithDescription("Number of live call sessions."),
	); err != nil {
		return nil, err
	}
	if met.CallDuration, err = m.Float64Histogram("lexline.call.duration",
		metric.WithDescription("Call length from creation to teardown."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.FramesRelayed, err = m.Int64Counter("lexline.relay.frames",
		metric.WithDescription("Audio payloads forwarded by direction."),
	); err != nil {
		return nil, err
	}
	if met.FramesDropped, err = m.Int64Counter("lexline.relay.dropped",
		metric.WithDescription("Audio payloads dropped because the destination was absent or closed."),
	); err != nil {
		return nil, err
	}
	if met.CallerUtterances, err = m.Int64Counter("lexline.transcript.utterances",
		metric.WithDescription("Completed caller-speech transcriptions."),
	); err != nil {
		return nil, err
	}
	if met.FieldsExtracted, err = m.Int64Counter("lexline.extract.fields",
		metric.WithDescription("Lead field values captured from transcript text, by field."),
	); err != nil {
		return nil, err
	}
	if met.SettleFires, err = m.Int64Counter("lexline.settle.fires",
		metric.WithDescription("Settled-conversation determinations by reason."),
	); err != nil {
		return nil, err
	}
	if met.LeadSaves, err = m.Int64Counter("lexline.leads.saves",
		metric.WithDescription("Persistence dispatch outcomes by status."),
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

// CallStarted records a new live call.
func (m *Metrics) CallStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveCalls.Add(ctx, 1)
}

// CallEnded records call teardown with its total duration.
func (m *Metrics) CallEnded(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.ActiveCalls.Add(ctx, -1)
	m.CallDuration.Record(ctx, d.Seconds())
}

// FrameRelayed records a successfully forwarded audio payload.
func (m *Metrics) FrameRelayed(ctx context.Context, direction string) {
	if m == nil {
		return
	}
	m.FramesRelayed.Add(ctx, 1, metric.WithAttributes(attribute.String("direction", direction)))
}

// FrameDropped records a payload discarded for want of a destination.
func (m *Metrics) FrameDropped(ctx context.Context, direction string) {
	if m == nil {
		return
	}
	m.FramesDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("direction", direction)))
}

// UtteranceRecorded records one completed caller transcription.
func (m *Metrics) UtteranceRecorded(ctx context.Context) {
	if m == nil {
		return
	}
	m.CallerUtterances.Add(ctx, 1)
}

// FieldExtracted records a captured lead field value.
func (m *Metrics) FieldExtracted(ctx context.Context, field string) {
	if m == nil {
		return
	}
	m.FieldsExtracted.Add(ctx, 1, metric.WithAttributes(attribute.String("field", field)))
}

// SettleFired records a settled-conversation determination.
func (m *Metrics) SettleFired(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.SettleFires.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// LeadSaved records the outcome of a persistence dispatch.
func (m *Metrics) LeadSaved(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.LeadSaves.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}
