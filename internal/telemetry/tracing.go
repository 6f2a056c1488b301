// Package telemetry wires OpenTelemetry spans and metrics and slog logging
// into the tracing and reversal passes.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer names used by the module's packages.
const (
	TracerTrace   = "github.com/born-ml/attribution/trace"
	TracerReverse = "github.com/born-ml/attribution/reverse"
)

// StartSpan starts a span on the global tracer provider.
//
// The caller must End the returned span.
//
// Example:
//
//	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerTrace, "trace.TraceModel",
//	    trace.WithAttributes(attribute.String("model", m.Name())),
//	)
//	defer span.End()
func StartSpan(ctx context.Context, tracerName, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, spanName, opts...)
}

// RecordError records err on span and marks the span as failed.
// Nil span or nil err is a no-op.
func RecordError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if span == nil || err == nil {
		return
	}
	opts := make([]trace.EventOption, 0, 1)
	if len(attrs) > 0 {
		opts = append(opts, trace.WithAttributes(attrs...))
	}
	span.RecordError(err, opts...)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanOK marks span as successful.
func SetSpanOK(span trace.Span) {
	if span == nil {
		return
	}
	span.SetStatus(codes.Ok, "")
}
