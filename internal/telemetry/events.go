package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TraceResolve opens a span for a feed cursor resolution
func TraceResolve(ctx context.Context, kind, mode, strategy string) (context.Context, trace.Span) {
	return Start(ctx, "feed.resolve",
		attribute.String("feed.kind", kind),
		attribute.String("feed.mode", mode),
		attribute.String("feed.strategy", strategy),
	)
}

// TraceInteraction opens a span for like, comment and follow mutations
func TraceInteraction(ctx context.Context, action, targetType, targetID string) (context.Context, trace.Span) {
	return Start(ctx, "social."+action,
		attribute.String("target.type", targetType),
		attribute.String("target.id", targetID),
	)
}

// End records err on span, if any, and ends it
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
