// Copyright © 2024 The ELPS authors

package lsp

import (
	"strings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/luthersystems/flakes/analysis"
	"github.com/luthersystems/flakes/ast"
)

// textDocumentDocumentSymbol handles the textDocument/documentSymbol
// request. It reports the module-level bindings, nesting class attributes
// under their class.
func (s *Server) textDocumentDocumentSymbol(_ *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	doc := s.docs.Get(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	s.ensureAnalysis(doc)

	doc.mu.Lock()
	defer doc.mu.Unlock()
	if doc.result == nil {
		return nil, nil
	}

	classes := make(map[*ast.Node]*analysis.Scope)
	for _, sc := range doc.result.Scopes {
		if sc.Kind == analysis.ScopeClass {
			classes[sc.Node] = sc
		}
	}
	symbols := scopeSymbols(doc.Content, doc.result.Module(), classes)
	if symbols == nil {
		symbols = []protocol.DocumentSymbol{}
	}
	return symbols, nil
}

func scopeSymbols(content string, sc *analysis.Scope, classes map[*ast.Node]*analysis.Scope) []protocol.DocumentSymbol {
	if sc == nil {
		return nil
	}
	var symbols []protocol.DocumentSymbol
	for _, b := range sc.Bindings() {
		if b.Pos.Line < 1 {
			continue
		}
		r := nameRange(content, b.Pos, b.Name)
		sym := protocol.DocumentSymbol{
			Name:           b.Name,
			Detail:         symbolDetail(b),
			Kind:           mapSymbolKind(b),
			Range:          r,
			SelectionRange: r,
		}
		if b.Source != nil && b.Source.Kind == ast.ClassDef {
			if body, ok := classes[b.Source]; ok {
				sym.Children = scopeSymbols(content, body, classes)
			}
		}
		symbols = append(symbols, sym)
	}
	return symbols
}

// symbolDetail names the module an import binding came from.
func symbolDetail(b *analysis.Binding) *string {
	if b.Kind != analysis.Importation || b.Source == nil {
		return nil
	}
	var s string
	switch b.Source.Kind {
	case ast.ImportFrom:
		s = "from " + strings.Repeat(".", b.Source.Int("level")) + b.Source.Str("module")
	default:
		s = "import"
	}
	return &s
}
