package otelhelper

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SetError records err against span and tags the execution it concerns.
// Resume and cancellation failures surface only here and in logs, never
// synchronously to a caller.
func SetError(span trace.Span, executionID string, err error, attrs ...attribute.KeyValue) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	attrs = append([]attribute.KeyValue{attribute.String(ExecutionIDKey, executionID)}, attrs...)
	span.AddEvent("execution_error", trace.WithAttributes(attrs...))
}
