// Copyright © 2024 The ELPS authors

package trace

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
)

var _ Annotator = &otelAnnotator{}

type otelAnnotator struct {
	config
	provider oteltrace.TracerProvider
}

// NewOpenTelemetryAnnotator returns an annotator recording spans through
// provider, or through the global provider when provider is nil.
func NewOpenTelemetryAnnotator(provider oteltrace.TracerProvider, opts ...Option) Annotator {
	return &otelAnnotator{config: *newConfig(opts...), provider: provider}
}

func (p *otelAnnotator) tracer(ctx context.Context) oteltrace.Tracer {
	name, ok := ctx.Value(ContextTracerKey).(string)
	if !ok {
		name = p.tracerName
	}
	provider := p.provider
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	return provider.Tracer(name)
}

func (p *otelAnnotator) Start(ctx context.Context, label string, attrs ...Attr) (context.Context, func()) {
	label, ok := p.label(label)
	if !ok {
		return ctx, func() {}
	}
	ctx, span := p.tracer(ctx).Start(ctx, label)
	if len(attrs) > 0 {
		span.SetAttributes(otelAttributes(attrs)...)
	}
	return ctx, func() { span.End() }
}

func otelAttributes(attrs []Attr) []attribute.KeyValue {
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		switch v := a.Value.(type) {
		case string:
			kvs = append(kvs, attribute.String(a.Key, v))
		case int:
			kvs = append(kvs, attribute.Int(a.Key, v))
		case bool:
			kvs = append(kvs, attribute.Bool(a.Key, v))
		default:
			kvs = append(kvs, attribute.String(a.Key, fmt.Sprint(v)))
		}
	}
	return kvs
}
