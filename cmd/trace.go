// Copyright © 2024 The ELPS authors

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/luthersystems/flakes/trace"
)

// annotator builds the span annotator selected by --trace. The returned
// function flushes and releases it.
func (g *globals) annotator(ctx context.Context, mode, endpoint string) (trace.Annotator, func(), error) {
	switch mode {
	case "", "none":
		return nil, func() {}, nil
	case "opencensus":
		unregister := trace.RegisterSlogExporter(g.logger)
		return trace.NewOpenCensusAnnotator(), unregister, nil
	case "otel":
		tp, err := trace.NewOTLPProvider(ctx, endpoint, true)
		if err != nil {
			return nil, nil, err
		}
		shutdown := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				g.logger.Warn("trace shutdown failed", "error", err)
			}
		}
		return trace.NewOpenTelemetryAnnotator(tp), shutdown, nil
	default:
		return nil, nil, usageError(fmt.Errorf("invalid trace mode %q (want none, otel or opencensus)", mode))
	}
}
