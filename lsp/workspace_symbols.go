// Copyright © 2024 The ELPS authors

package lsp

import (
	"context"
	"strings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/luthersystems/flakes/analysis"
	"github.com/luthersystems/flakes/parser"
	"github.com/luthersystems/flakes/runner"
)

// workspaceSymbol handles the workspace/symbol request. It returns the
// module-level definitions of every Python file under the workspace root
// that match the query. Open documents are read from the editor buffer
// rather than from disk. An empty query returns all symbols.
func (s *Server) workspaceSymbol(_ *glsp.Context, params *protocol.WorkspaceSymbolParams) ([]protocol.SymbolInformation, error) {
	query := strings.ToLower(params.Query)
	results := []protocol.SymbolInformation{}

	open := make(map[string]bool)
	for _, doc := range s.docs.All() {
		open[uriToPath(doc.URI)] = true
		s.ensureAnalysis(doc)
		doc.mu.Lock()
		results = appendModuleSymbols(results, doc.URI, doc.Content, doc.result, query)
		doc.mu.Unlock()
	}

	if s.rootPath == "" {
		return results, nil
	}
	files, err := runner.ExpandArgs([]string{s.rootPath}, s.excludes)
	if err != nil {
		s.logger.Warn("workspace scan failed", "root", s.rootPath, "err", err)
		return results, nil
	}
	ctx := context.Background()
	for _, path := range files {
		if open[path] {
			continue
		}
		file, err := parser.ParseFile(ctx, path)
		if err != nil {
			s.logger.Debug("skipping unparseable file", "path", path, "err", err)
			continue
		}
		res, err := analysis.AnalyzeContext(ctx, file.Module, &analysis.Config{
			Filename: path,
			Builtins: s.linter.Builtins,
		})
		if err != nil {
			continue
		}
		results = appendModuleSymbols(results, pathToURI(path), string(file.Source), res, query)
	}
	return results, nil
}

// appendModuleSymbols appends the module-level function and class
// definitions of res that match the lower-cased query.
func appendModuleSymbols(out []protocol.SymbolInformation, uri, content string, res *analysis.Result, query string) []protocol.SymbolInformation {
	if res == nil {
		return out
	}
	for _, b := range res.Module().Bindings() {
		kind := mapSymbolKind(b)
		if kind != protocol.SymbolKindFunction && kind != protocol.SymbolKindClass {
			continue
		}
		if !matchesQuery(b.Name, query) {
			continue
		}
		out = append(out, protocol.SymbolInformation{
			Name: b.Name,
			Kind: kind,
			Location: protocol.Location{
				URI:   uri,
				Range: nameRange(content, b.Pos, b.Name),
			},
		})
	}
	return out
}

// matchesQuery performs case-insensitive substring matching. An empty query
// matches everything.
func matchesQuery(name, lowerQuery string) bool {
	if lowerQuery == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), lowerQuery)
}
