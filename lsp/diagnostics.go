// Copyright © 2024 The ELPS authors

package lsp

import (
	"errors"
	"time"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/luthersystems/flakes/ast"
	"github.com/luthersystems/flakes/lint"
	"github.com/luthersystems/flakes/parser"
)

const (
	debounceDelay    = 300 * time.Millisecond
	diagnosticSource = "flakes"
)

// textDocumentDidOpen handles the textDocument/didOpen notification.
func (s *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.captureNotify(ctx)
	doc := s.docs.Open(
		params.TextDocument.URI,
		int32(params.TextDocument.Version),
		params.TextDocument.Text,
	)
	s.analyzeAndPublish(doc)
	return nil
}

// textDocumentDidChange handles the textDocument/didChange notification.
func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	s.captureNotify(ctx)
	// With full sync, the last content change is the complete document.
	var content string
	for _, change := range params.ContentChanges {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			content = c.Text
		case protocol.TextDocumentContentChangeEvent:
			content = c.Text
		}
	}

	doc := s.docs.Change(
		params.TextDocument.URI,
		int32(params.TextDocument.Version),
		content,
	)

	s.debounceMu.Lock()
	if t, ok := s.debounce[doc.URI]; ok {
		t.Stop()
	}
	s.debounce[doc.URI] = time.AfterFunc(s.delay, func() {
		defer func() { _ = recover() }() // don't crash the server on analysis panic
		if d := s.docs.Get(doc.URI); d != nil {
			s.analyzeAndPublish(d)
		}
	})
	s.debounceMu.Unlock()
	return nil
}

// textDocumentDidSave handles the textDocument/didSave notification.
func (s *Server) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	s.captureNotify(ctx)
	s.cancelDebounce(params.TextDocument.URI)
	if doc := s.docs.Get(params.TextDocument.URI); doc != nil {
		s.analyzeAndPublish(doc)
	}
	return nil
}

// textDocumentDidClose handles the textDocument/didClose notification.
func (s *Server) textDocumentDidClose(_ *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.cancelDebounce(params.TextDocument.URI)

	// Clear diagnostics for the closed file.
	s.sendNotification(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []protocol.Diagnostic{},
	})

	s.docs.Close(params.TextDocument.URI)
	return nil
}

func (s *Server) cancelDebounce(uri string) {
	s.debounceMu.Lock()
	if t, ok := s.debounce[uri]; ok {
		t.Stop()
		delete(s.debounce, uri)
	}
	s.debounceMu.Unlock()
}

// analyzeAndPublish checks a document and publishes the resulting
// diagnostics to the client.
func (s *Server) analyzeAndPublish(doc *Document) {
	s.ensureAnalysis(doc)

	doc.mu.Lock()
	uri := doc.URI
	version := doc.Version
	diags := documentDiagnostics(doc)
	doc.mu.Unlock()

	v := protocol.UInteger(max(version, 0)) // #nosec G115 -- clamped non-negative
	s.sendNotification(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Version:     &v,
		Diagnostics: diags,
	})
}

// documentDiagnostics converts the document's findings. A parse failure
// replaces them with a single error. The caller holds doc.mu.
func documentDiagnostics(doc *Document) []protocol.Diagnostic {
	diags := []protocol.Diagnostic{}
	if doc.parseErr != nil {
		diags = append(diags, protocol.Diagnostic{
			Range:    parseErrorRange(doc.Content, doc.parseErr),
			Severity: severity(protocol.DiagnosticSeverityError),
			Source:   strPtr(diagnosticSource),
			Message:  doc.parseErr.Error(),
		})
		return diags
	}
	for _, d := range doc.diags {
		diags = append(diags, convertLintDiagnostic(doc.Content, d))
	}
	return diags
}

// convertLintDiagnostic converts a lint.Diagnostic to an LSP Diagnostic.
// The range covers the reported name when the diagnostic carries one.
func convertLintDiagnostic(content string, d lint.Diagnostic) protocol.Diagnostic {
	pos := ast.At(d.Pos.Line, max(d.Pos.Col-1, 0))
	var rng protocol.Range
	if d.Name != "" {
		rng = nameRange(content, pos, d.Name)
	} else {
		start := toLSPPosition(content, pos)
		rng = protocol.Range{Start: start, End: start}
	}
	sev := mapLintSeverity(d.Severity)
	diag := protocol.Diagnostic{
		Range:    rng,
		Severity: &sev,
		Source:   strPtr(diagnosticSource),
		Code:     &protocol.IntegerOrString{Value: d.Code},
		Message:  d.Message,
	}
	if d.Analyzer == lint.AnalyzerUnusedImport.Name {
		diag.Tags = []protocol.DiagnosticTag{protocol.DiagnosticTagUnnecessary}
	}
	for _, n := range d.Notes {
		diag.Message += "\n" + n
	}
	return diag
}

// mapLintSeverity converts a lint.Severity to a protocol.DiagnosticSeverity.
func mapLintSeverity(sev lint.Severity) protocol.DiagnosticSeverity {
	switch sev {
	case lint.SeverityError:
		return protocol.DiagnosticSeverityError
	case lint.SeverityWarning:
		return protocol.DiagnosticSeverityWarning
	case lint.SeverityInfo:
		return protocol.DiagnosticSeverityInformation
	default:
		return protocol.DiagnosticSeverityWarning
	}
}

func severity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity {
	return &s
}

// parseErrorRange extracts the source position from a parse error. The
// range is empty at the start of the document when none is known.
func parseErrorRange(content string, err error) protocol.Range {
	var pos ast.Pos
	var syn *parser.SyntaxError
	var unsup *parser.UnsupportedError
	switch {
	case errors.As(err, &syn):
		pos = syn.Pos
	case errors.As(err, &unsup):
		pos = unsup.Pos
	default:
		return protocol.Range{}
	}
	if pos.Line < 1 {
		return protocol.Range{}
	}
	start := toLSPPosition(content, pos)
	end := start
	end.Character++
	return protocol.Range{Start: start, End: end}
}

func strPtr(s string) *string {
	return &s
}
