// Copyright © 2024 The ELPS authors

package lsp

import (
	"fmt"
	"unicode"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/luthersystems/flakes/analysis"
)

// textDocumentPrepareRename validates that the name under the cursor is a
// binding in this document and returns its range.
func (s *Server) textDocumentPrepareRename(_ *glsp.Context, params *protocol.PrepareRenameParams) (any, error) {
	doc := s.docs.Get(params.TextDocument.URI)
	if doc == nil {
		return nil, nil // unknown document
	}
	s.ensureAnalysis(doc)

	doc.mu.Lock()
	defer doc.mu.Unlock()

	b, use := symbolAtPosition(doc, params.Position)
	if b == nil || !renameable(b) {
		// Builtins and undefined names are not renameable. Per LSP,
		// prepareRename returns null rather than an error.
		return nil, nil
	}
	rng := nameRange(doc.Content, b.Pos, b.Name)
	if use != nil {
		rng = nameRange(doc.Content, use.Pos, use.Name)
	}
	return &protocol.RangeWithPlaceholder{
		Range:       rng,
		Placeholder: b.Name,
	}, nil
}

// textDocumentRename handles the textDocument/rename request. It rewrites
// the binding and every read resolved to it.
func (s *Server) textDocumentRename(_ *glsp.Context, params *protocol.RenameParams) (*protocol.WorkspaceEdit, error) {
	doc := s.docs.Get(params.TextDocument.URI)
	if doc == nil {
		return nil, fmt.Errorf("document not found")
	}
	if !isIdentifier(params.NewName) {
		return nil, fmt.Errorf("invalid identifier: %q", params.NewName)
	}
	s.ensureAnalysis(doc)

	doc.mu.Lock()
	defer doc.mu.Unlock()

	b, _ := symbolAtPosition(doc, params.Position)
	if b == nil {
		return nil, fmt.Errorf("no renameable symbol at position")
	}
	if !renameable(b) {
		return nil, fmt.Errorf("cannot rename module import %s without an alias", b.Name)
	}

	uri := params.TextDocument.URI
	edits := []protocol.TextEdit{{
		Range:   nameRange(doc.Content, b.Pos, b.Name),
		NewText: params.NewName,
	}}
	for _, u := range usesOf(doc.result, b) {
		edits = append(edits, protocol.TextEdit{
			Range:   nameRange(doc.Content, u.Pos, u.Name),
			NewText: params.NewName,
		})
	}
	return &protocol.WorkspaceEdit{
		Changes: map[protocol.DocumentUri][]protocol.TextEdit{uri: edits},
	}, nil
}

// isIdentifier reports whether name is a valid Python identifier.
func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if !isIdentRune(r) || (i == 0 && unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}

// renameable reports whether b can be renamed in place. Renaming the name
// in "import os" or "from os import path" would change what is imported,
// so only aliased imports qualify.
func renameable(b *analysis.Binding) bool {
	if b.Kind != analysis.Importation || b.Source == nil {
		return true
	}
	for _, alias := range b.Source.List("names") {
		if alias.Str("asname") == b.Name {
			return true
		}
	}
	return false
}
