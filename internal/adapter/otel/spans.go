package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "sitegrove"

// StartResolveSpan starts a span for a hostname resolution.
func StartResolveSpan(ctx context.Context, hostname string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "resolve",
		trace.WithAttributes(
			attribute.String("resolve.hostname", hostname),
		),
	)
}

// StartStatusSpan starts a span for a status evaluation.
func StartStatusSpan(ctx context.Context, tenantID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "status",
		trace.WithAttributes(
			attribute.String("tenant.id", tenantID),
		),
	)
}
