// Copyright © 2024 The ELPS authors

package lsp

import (
	"strings"
	"unicode/utf8"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/luthersystems/flakes/builtins"
)

// textDocumentCompletion handles the textDocument/completion request. It
// offers the module-level names followed by the builtins that start with
// the identifier being typed.
func (s *Server) textDocumentCompletion(_ *glsp.Context, params *protocol.CompletionParams) (any, error) {
	doc := s.docs.Get(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	s.ensureAnalysis(doc)

	doc.mu.Lock()
	defer doc.mu.Unlock()

	prefix := completionPrefix(doc.Content, params.Position)
	seen := make(map[string]bool)
	items := []protocol.CompletionItem{}

	if doc.result != nil {
		for _, b := range doc.result.Module().Bindings() {
			if seen[b.Name] || !strings.HasPrefix(b.Name, prefix) {
				continue
			}
			seen[b.Name] = true
			kind := mapCompletionItemKind(b)
			items = append(items, protocol.CompletionItem{
				Label:  b.Name,
				Kind:   &kind,
				Detail: strPtr(bindingKindLabel(b)),
			})
		}
	}

	names := append(builtins.Names(), s.linter.Builtins...)
	kind := protocol.CompletionItemKindFunction
	for _, name := range names {
		if seen[name] || !strings.HasPrefix(name, prefix) {
			continue
		}
		seen[name] = true
		items = append(items, protocol.CompletionItem{
			Label:  name,
			Kind:   &kind,
			Detail: strPtr("builtin"),
		})
	}
	return items, nil
}

// completionPrefix returns the identifier characters immediately before
// the cursor.
func completionPrefix(content string, p protocol.Position) string {
	text := lineText(content, int(p.Line))
	col := byteCol(text, int(p.Character))
	start := col
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:start])
		if !isIdentRune(r) {
			break
		}
		start -= size
	}
	return text[start:col]
}
