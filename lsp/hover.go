// Copyright © 2024 The ELPS authors

package lsp

import (
	"fmt"
	"strings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/luthersystems/flakes/analysis"
	"github.com/luthersystems/flakes/ast"
	"github.com/luthersystems/flakes/builtins"
)

// textDocumentHover handles the textDocument/hover request.
func (s *Server) textDocumentHover(_ *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc := s.docs.Get(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	s.ensureAnalysis(doc)

	doc.mu.Lock()
	defer doc.mu.Unlock()

	var content string
	if b, _ := symbolAtPosition(doc, params.Position); b != nil {
		content = buildHoverContent(doc, b)
	} else if word, _ := wordAtPosition(doc.Content, params.Position); word != "" && builtins.NewOracle(s.linter.Builtins...).IsDefined(word) {
		content = fmt.Sprintf("**builtin** `%s`", word)
	}
	if content == "" {
		return nil, nil
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: content,
		},
	}, nil
}

// buildHoverContent builds Markdown hover text for a binding: its kind,
// the line that introduced it and whether it has been read.
func buildHoverContent(doc *Document, b *analysis.Binding) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s** `%s`", bindingKindLabel(b), b.Name)

	if doc.file != nil {
		if src := strings.TrimSpace(doc.file.Line(b.Line())); src != "" {
			fmt.Fprintf(&sb, "\n\n```python\n%s\n```", src)
		}
	}

	fmt.Fprintf(&sb, "\n\n*Defined on line %d*", b.Line())
	if b.Kind == analysis.Importation && !b.IsUsed() {
		sb.WriteString(" (unused)")
	}
	return sb.String()
}

func bindingKindLabel(b *analysis.Binding) string {
	switch b.Kind {
	case analysis.Importation:
		return "import"
	case analysis.FunctionDefinition:
		return "function"
	}
	if b.Source == nil {
		return "variable"
	}
	switch b.Source.Kind {
	case ast.ClassDef:
		return "class"
	case ast.FunctionDef, ast.Lambda:
		return "parameter"
	case ast.Name:
		if b.Source.Ctx() == ast.Param {
			return "parameter"
		}
	}
	return "variable"
}
