package webmail

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/rbaliyan/webmail"
)

// otelInstrumentation holds OpenTelemetry instrumentation for the webmail service.
type otelInstrumentation struct {
	enabled bool

	// Tracing
	tracingEnabled bool
	tracer         trace.Tracer

	// Metrics
	metricsEnabled bool

	// Actor operations, keyed by an "operation" attribute
	// (e.g. "mailbox.create_email", "auth.login").
	opLatency metric.Float64Histogram
	opCount   metric.Int64Counter
	opErrors  metric.Int64Counter

	// Live actor instances
	actorsOpen metric.Int64UpDownCounter

	// Event publishing
	eventPublishErrors metric.Int64Counter
}

// newOtelInstrumentation creates new OTel instrumentation from options.
func newOtelInstrumentation(opts *options) (*otelInstrumentation, error) {
	o := &otelInstrumentation{
		enabled:        opts.tracingEnabled || opts.metricsEnabled,
		tracingEnabled: opts.tracingEnabled,
		metricsEnabled: opts.metricsEnabled,
	}

	if !o.enabled {
		return o, nil
	}

	if opts.tracingEnabled {
		tp := opts.tracerProvider
		if tp == nil {
			tp = otel.GetTracerProvider()
		}
		o.tracer = tp.Tracer(instrumentationName)
	}

	if opts.metricsEnabled {
		mp := opts.meterProvider
		if mp == nil {
			mp = otel.GetMeterProvider()
		}
		if err := o.initMetrics(mp); err != nil {
			return nil, err
		}
	}

	return o, nil
}

// initMetrics initializes all metric instruments.
func (o *otelInstrumentation) initMetrics(mp metric.MeterProvider) error {
	meter := mp.Meter(instrumentationName)

	var err error

	o.opLatency, err = meter.Float64Histogram(
		"webmail.operation.duration",
		metric.WithDescription("Duration of actor operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	o.opCount, err = meter.Int64Counter(
		"webmail.operation.count",
		metric.WithDescription("Number of actor operations"),
	)
	if err != nil {
		return err
	}

	o.opErrors, err = meter.Int64Counter(
		"webmail.operation.errors",
		metric.WithDescription("Number of failed actor operations"),
	)
	if err != nil {
		return err
	}

	o.actorsOpen, err = meter.Int64UpDownCounter(
		"webmail.actors.open",
		metric.WithDescription("Number of live actor instances"),
	)
	if err != nil {
		return err
	}

	o.eventPublishErrors, err = meter.Int64Counter(
		"webmail.events.publish_errors",
		metric.WithDescription("Number of failed event publishes"),
	)
	if err != nil {
		return err
	}

	return nil
}

// startSpan starts a new span if tracing is enabled.
// The returned func records the outcome and ends the span.
func (o *otelInstrumentation) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	if !o.tracingEnabled || o.tracer == nil {
		return ctx, func(error) {}
	}
	ctx, span := o.tracer.Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// recordOp records one actor operation.
func (o *otelInstrumentation) recordOp(ctx context.Context, operation string, duration time.Duration, err error) {
	if !o.metricsEnabled {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
	)

	o.opLatency.Record(ctx, duration.Seconds(), attrs)
	o.opCount.Add(ctx, 1, attrs)
	if err != nil {
		o.opErrors.Add(ctx, 1, attrs)
	}
}

// recordActorOpen tracks actor lifecycle. delta is +1 on open, -1 on close.
func (o *otelInstrumentation) recordActorOpen(ctx context.Context, kind string, delta int64) {
	if !o.metricsEnabled {
		return
	}
	o.actorsOpen.Add(ctx, delta, metric.WithAttributes(
		attribute.String("kind", kind),
	))
}

// recordEventPublishError counts a failed best-effort publish.
func (o *otelInstrumentation) recordEventPublishError(ctx context.Context, eventName string) {
	if !o.metricsEnabled {
		return
	}
	o.eventPublishErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", eventName),
	))
}
