// Package mopentelemetry wires request and posting-engine tracing,
// mirroring the teacher's common/mopentelemetry/otel.go.
package mopentelemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry carries the service-wide tracer name.
type Telemetry struct {
	ServiceName string
}

// Tracer returns the named tracer for this service.
func (t *Telemetry) Tracer() trace.Tracer {
	return otel.Tracer(t.ServiceName)
}

// Start begins a span, returning the span-carrying context and the span.
func (t *Telemetry) Start(ctx context.Context, spanName string) (context.Context, trace.Span) {
	return t.Tracer().Start(ctx, spanName)
}

// HandleSpanError records err on span, marks it as an error status, and
// returns err unchanged so callers can do `return mopentelemetry.HandleSpanError(span, err)`.
func HandleSpanError(span trace.Span, err error) error {
	if err == nil {
		return nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	return err
}
