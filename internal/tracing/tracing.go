// Package tracing wraps the global OpenTelemetry tracer. Without an installed
// exporter the global provider is a no-op, so spans cost almost nothing.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/nextlevelbuilder/mcpgate"

// Start opens a span on the global tracer provider.
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// End records err (if any) on span and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// Attribute keys shared by the dispatcher, resolver and provider clients.
var (
	AttrUser      = attribute.Key("mcpgate.user")
	AttrModel     = attribute.Key("gen_ai.request.model")
	AttrSystem    = attribute.Key("gen_ai.system")
	AttrCommand   = attribute.Key("mcpgate.command")
	AttrErrorKind = attribute.Key("mcpgate.error_kind")
	AttrCacheHit  = attribute.Key("mcpgate.cache_hit")
)
