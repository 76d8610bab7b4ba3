// Copyright © 2024 The ELPS authors

package lsp

import (
	"fmt"
	"strings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/luthersystems/flakes/analysis"
	"github.com/luthersystems/flakes/ast"
	"github.com/luthersystems/flakes/lint"
)

// textDocumentCodeAction handles the textDocument/codeAction request.
// It returns quick-fix actions for diagnostics in the requested range.
func (s *Server) textDocumentCodeAction(_ *glsp.Context, params *protocol.CodeActionParams) (any, error) {
	doc := s.docs.Get(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}

	// If the client only wants specific kinds, check we support them.
	if len(params.Context.Only) > 0 {
		if !slicesContains(params.Context.Only, protocol.CodeActionKindQuickFix) {
			return nil, nil
		}
	}

	s.ensureAnalysis(doc)

	doc.mu.Lock()
	defer doc.mu.Unlock()

	var actions []protocol.CodeAction
	for _, diag := range params.Context.Diagnostics {
		if diag.Source == nil || *diag.Source != diagnosticSource {
			continue
		}
		code := diagnosticCode(doc, diag)
		if code == "" {
			continue
		}
		if code == lint.AnalyzerUnusedImport.Code {
			if a, ok := removeImportAction(doc, diag); ok {
				actions = append(actions, a)
			}
		}
		actions = append(actions, suppressAction(doc, diag, code))
	}

	if len(actions) == 0 {
		return nil, nil
	}
	return actions, nil
}

// diagnosticCode returns the check code of a diagnostic the client sent
// back. The code field does not always survive decoding, so a diagnostic
// without a string code is matched against the document's own findings by
// range and message. It returns "" when nothing matches. The caller holds
// doc.mu.
func diagnosticCode(doc *Document, diag protocol.Diagnostic) string {
	if diag.Code != nil {
		if code, ok := diag.Code.Value.(string); ok && code != "" {
			return code
		}
	}
	for _, d := range doc.diags {
		own := convertLintDiagnostic(doc.Content, d)
		if own.Range == diag.Range && own.Message == diag.Message {
			return d.Code
		}
	}
	return ""
}

// suppressAction creates a code action that adds a "# noqa: CODE" comment
// to the diagnostic line. A selective directive that is the line's only
// comment is extended instead.
func suppressAction(doc *Document, diag protocol.Diagnostic, code string) protocol.CodeAction {
	line := int(diag.Range.Start.Line)
	text := lineText(doc.Content, line)

	start := protocol.Position{Line: diag.Range.Start.Line, Character: safeUint(utf16Col(text, len(text)))}
	edit := protocol.TextEdit{
		Range:   protocol.Range{Start: start, End: start},
		NewText: "  # noqa: " + code,
	}
	if doc.file != nil {
		if c, ok := doc.file.CommentAt(line + 1); ok && strings.Count(c.Text, "#") == 1 {
			if d := lint.ParseDirective(c.Text); d != nil && !d.All() {
				from := toLSPPosition(doc.Content, ast.At(c.Line, c.Col))
				edit = protocol.TextEdit{
					Range:   protocol.Range{Start: from, End: start},
					NewText: "# " + d.Keyword + ": " + strings.Join(append(d.Checks, code), ", "),
				}
			}
		}
	}

	kind := protocol.CodeActionKindQuickFix
	return protocol.CodeAction{
		Title:       "Suppress with # noqa: " + code,
		Kind:        &kind,
		Diagnostics: []protocol.Diagnostic{diag},
		Edit: &protocol.WorkspaceEdit{
			Changes: map[protocol.DocumentUri][]protocol.TextEdit{
				doc.URI: {edit},
			},
		},
	}
}

// removeImportAction deletes the line of an unused import when the
// statement binds only that one name and fits on the line.
func removeImportAction(doc *Document, diag protocol.Diagnostic) (protocol.CodeAction, bool) {
	if doc.result == nil {
		return protocol.CodeAction{}, false
	}
	name, at := wordAtPosition(doc.Content, diag.Range.Start)
	var imp *analysis.Binding
	for _, b := range allBindings(doc.result) {
		if b.Kind == analysis.Importation && b.Name == name && b.Pos.Line == at.Line {
			imp = b
			break
		}
	}
	if imp == nil || imp.Source == nil || len(imp.Source.List("names")) != 1 {
		return protocol.CodeAction{}, false
	}
	text := strings.TrimSpace(lineText(doc.Content, at.Line-1))
	if strings.HasSuffix(text, "(") || strings.HasSuffix(text, "\\") || strings.Contains(text, ";") {
		return protocol.CodeAction{}, false
	}

	kind := protocol.CodeActionKindQuickFix
	line := diag.Range.Start.Line
	return protocol.CodeAction{
		Title:       fmt.Sprintf("Remove unused import '%s'", name),
		Kind:        &kind,
		Diagnostics: []protocol.Diagnostic{diag},
		IsPreferred: boolPtr(true),
		Edit: &protocol.WorkspaceEdit{
			Changes: map[protocol.DocumentUri][]protocol.TextEdit{
				doc.URI: {{
					Range: protocol.Range{
						Start: protocol.Position{Line: line},
						End:   protocol.Position{Line: line + 1},
					},
					NewText: "",
				}},
			},
		},
	}, true
}

// slicesContains checks if a string slice contains a value.
func slicesContains(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}
