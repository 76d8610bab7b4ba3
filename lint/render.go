// Copyright © 2024 The ELPS authors

package lint

import (
	"io"

	"github.com/luthersystems/flakes/diagnostic"
)

// Annotated converts d for the annotated source renderer.
func (d Diagnostic) Annotated() diagnostic.Diagnostic {
	sev := diagnostic.SeverityWarning
	switch d.Severity {
	case SeverityError:
		sev = diagnostic.SeverityError
	case SeverityInfo:
		sev = diagnostic.SeverityNote
	}
	span := diagnostic.Span{
		File: d.Pos.File,
		Line: d.Pos.Line,
		Col:  d.Pos.Col,
		Text: d.Name,
	}
	return diagnostic.Diagnostic{
		Severity: sev,
		Code:     d.Code,
		Message:  d.Message,
		Spans:    []diagnostic.Span{span},
		Notes:    d.Notes,
	}
}

// FormatAnnotated writes diagnostics as annotated source snippets followed
// by a summary line.
func FormatAnnotated(w io.Writer, r *diagnostic.Renderer, diags []Diagnostic) error {
	out := make([]diagnostic.Diagnostic, len(diags))
	for i, d := range diags {
		out[i] = d.Annotated()
	}
	if err := r.RenderAll(w, out); err != nil {
		return err
	}
	return r.RenderSummary(w, out)
}
