// Copyright © 2024 The ELPS authors

package trace

import (
	"context"
	"fmt"
	"log/slog"

	octrace "go.opencensus.io/trace"
)

var _ Annotator = &ocAnnotator{}

type ocAnnotator struct {
	config
}

// NewOpenCensusAnnotator returns an annotator recording spans through the
// registered OpenCensus exporters.
func NewOpenCensusAnnotator(opts ...Option) Annotator {
	return &ocAnnotator{config: *newConfig(opts...)}
}

func (p *ocAnnotator) Start(ctx context.Context, label string, attrs ...Attr) (context.Context, func()) {
	label, ok := p.label(label)
	if !ok {
		return ctx, func() {}
	}
	ctx, span := octrace.StartSpan(ctx, label)
	if len(attrs) > 0 {
		span.AddAttributes(ocAttributes(attrs)...)
	}
	return ctx, span.End
}

func ocAttributes(attrs []Attr) []octrace.Attribute {
	out := make([]octrace.Attribute, 0, len(attrs))
	for _, a := range attrs {
		switch v := a.Value.(type) {
		case string:
			out = append(out, octrace.StringAttribute(a.Key, v))
		case int:
			out = append(out, octrace.Int64Attribute(a.Key, int64(v)))
		case bool:
			out = append(out, octrace.BoolAttribute(a.Key, v))
		default:
			out = append(out, octrace.StringAttribute(a.Key, fmt.Sprint(v)))
		}
	}
	return out
}

// SlogExporter is an OpenCensus exporter writing finished spans to a
// structured logger at debug level.
type SlogExporter struct {
	Logger *slog.Logger
}

// ExportSpan implements octrace.Exporter.
func (e *SlogExporter) ExportSpan(sd *octrace.SpanData) {
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}
	args := []any{
		"span", sd.Name,
		"trace_id", sd.TraceID.String(),
		"duration", sd.EndTime.Sub(sd.StartTime),
	}
	for k, v := range sd.Attributes {
		args = append(args, k, v)
	}
	logger.Debug("span finished", args...)
}

// RegisterSlogExporter registers a SlogExporter and samples every span.
// The returned function unregisters it.
func RegisterSlogExporter(logger *slog.Logger) func() {
	exp := &SlogExporter{Logger: logger}
	octrace.ApplyConfig(octrace.Config{DefaultSampler: octrace.AlwaysSample()})
	octrace.RegisterExporter(exp)
	return func() { octrace.UnregisterExporter(exp) }
}
