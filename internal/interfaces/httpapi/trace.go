package httpapi

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName        = "h2h-insight/internal/interfaces/httpapi"
	handlerSpanPrefix = "httpapi.Handler."
)

// Middleware and response helpers share the request span created by otelhttp;
// only handler methods get a child span of their own.
func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	parent := trace.SpanFromContext(ctx)
	if !parent.SpanContext().IsValid() || !shouldCreateHTTPAPISpan(name) {
		// Untraced routes such as /healthz must not produce root spans.
		return ctx, trace.SpanFromContext(context.Background())
	}
	return otel.Tracer(tracerName).Start(ctx, name)
}

func shouldCreateHTTPAPISpan(name string) bool {
	return strings.HasPrefix(name, handlerSpanPrefix)
}

// recordSpanError marks the active span failed with the envelope reason.
func recordSpanError(ctx context.Context, err error, reason string) {
	span := trace.SpanFromContext(ctx)
	if err == nil || !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, reason)
	span.SetAttributes(attribute.String("h2h.error_reason", reason))
}
