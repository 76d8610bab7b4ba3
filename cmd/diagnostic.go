// Copyright © 2024 The ELPS authors

package cmd

import (
	"io"

	"github.com/luthersystems/flakes/diagnostic"
	"github.com/luthersystems/flakes/lint"
)

type outputFormat int

const (
	formatAnnotated outputFormat = iota
	formatPlain
	formatJSON
)

func (g *globals) newRenderer() *diagnostic.Renderer {
	return &diagnostic.Renderer{Color: g.color}
}

// writeDiagnostics reports diags in the requested format. Annotated output
// goes to stderr, the machine-readable formats to stdout.
func (g *globals) writeDiagnostics(stdout, stderr io.Writer, format outputFormat, diags []lint.Diagnostic) error {
	switch format {
	case formatJSON:
		return lint.FormatJSON(stdout, diags)
	case formatPlain:
		lint.FormatPlain(stdout, diags)
		return nil
	default:
		if len(diags) == 0 {
			return nil
		}
		return lint.FormatAnnotated(stderr, g.newRenderer(), diags)
	}
}
