package oteltrace

import (
	"context"

	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type tracer struct{ t trace.Tracer }

// New returns a TraceCtx backed by the globally configured OTel provider.
// Without an SDK provider installed the spans are no-ops, which is the
// intended default for tests and local runs.
func New(name string) observability.TraceCtx {
	if name == "" {
		name = "canteen"
	}
	return &tracer{t: otel.Tracer(name)}
}

func (t *tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.t.Start(ctx, name, trace.WithAttributes(attrs...))
}
