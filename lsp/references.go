// Copyright © 2024 The ELPS authors

package lsp

import (
	"sort"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/luthersystems/flakes/analysis"
)

// textDocumentReferences handles the textDocument/references request.
// References are the reads resolved to the same binding. Rebinding a
// name starts a new binding, so reads of the old one are not included.
func (s *Server) textDocumentReferences(_ *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	doc := s.docs.Get(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	s.ensureAnalysis(doc)

	doc.mu.Lock()
	defer doc.mu.Unlock()

	b, _ := symbolAtPosition(doc, params.Position)
	if b == nil {
		return nil, nil
	}

	var locs []protocol.Location
	if params.Context.IncludeDeclaration {
		locs = append(locs, protocol.Location{
			URI:   params.TextDocument.URI,
			Range: nameRange(doc.Content, b.Pos, b.Name),
		})
	}
	for _, u := range usesOf(doc.result, b) {
		locs = append(locs, protocol.Location{
			URI:   params.TextDocument.URI,
			Range: nameRange(doc.Content, u.Pos, u.Name),
		})
	}
	return locs, nil
}

// usesOf returns the reads that resolved to b, in source order.
func usesOf(res *analysis.Result, b *analysis.Binding) []analysis.Use {
	if res == nil {
		return nil
	}
	var out []analysis.Use
	for _, u := range res.Uses {
		if u.Binding == b {
			out = append(out, u)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Pos.Before(out[j].Pos) })
	return out
}
