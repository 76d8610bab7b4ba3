// Copyright © 2024 The ELPS authors

package lsp

import (
	"context"
	"sort"
	"sync"

	"github.com/luthersystems/flakes/analysis"
	"github.com/luthersystems/flakes/lint"
	"github.com/luthersystems/flakes/parser"
)

// Document represents an open text document tracked by the LSP server.
type Document struct {
	mu      sync.Mutex
	URI     string
	Version int32
	Content string

	analyzed bool
	file     *parser.File
	result   *analysis.Result
	diags    []lint.Diagnostic
	parseErr error
}

// analyze parses the content and runs the checker and the linter over it.
// The previous analysis is kept when the new content does not parse so
// navigation keeps working while the user is mid-edit. The caller holds
// d.mu.
func (d *Document) analyze(ctx context.Context, linter *lint.Linter) {
	d.analyzed = true
	filename := uriToPath(d.URI)
	file, err := parser.Parse(ctx, []byte(d.Content), filename)
	if err != nil {
		d.parseErr = err
		d.diags = nil
		return
	}
	d.parseErr = nil
	res, err := analysis.AnalyzeContext(ctx, file.Module, &analysis.Config{
		Filename:  filename,
		Builtins:  linter.Builtins,
		Annotator: linter.Annotator,
		Logger:    linter.Logger,
	})
	if err != nil {
		d.parseErr = err
		d.diags = nil
		return
	}
	d.file = file
	d.result = res
	d.diags, err = linter.LintParsed(file, res)
	if err != nil {
		d.parseErr = err
	}
}

// DocumentStore manages open documents with thread-safe access.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

// NewDocumentStore creates an empty document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]*Document)}
}

// Open adds a document to the store. Analysis happens lazily.
func (s *DocumentStore) Open(uri string, version int32, content string) *Document {
	doc := &Document{
		URI:     uri,
		Version: version,
		Content: content,
	}
	s.mu.Lock()
	s.docs[uri] = doc
	s.mu.Unlock()
	return doc
}

// Change replaces a document's content (full sync) and invalidates its
// analysis.
func (s *DocumentStore) Change(uri string, version int32, content string) *Document {
	s.mu.Lock()
	doc, ok := s.docs[uri]
	if !ok {
		doc = &Document{URI: uri}
		s.docs[uri] = doc
	}
	s.mu.Unlock()

	doc.mu.Lock()
	doc.Version = version
	doc.Content = content
	doc.analyzed = false
	doc.mu.Unlock()
	return doc
}

// Close removes a document from the store.
func (s *DocumentStore) Close(uri string) {
	s.mu.Lock()
	delete(s.docs, uri)
	s.mu.Unlock()
}

// Get retrieves a document by URI. Returns nil if not found.
func (s *DocumentStore) Get(uri string) *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs[uri]
}

// All returns the open documents ordered by URI.
func (s *DocumentStore) All() []*Document {
	s.mu.RLock()
	docs := make([]*Document, 0, len(s.docs))
	for _, d := range s.docs {
		docs = append(docs, d)
	}
	s.mu.RUnlock()
	sort.Slice(docs, func(i, j int) bool { return docs[i].URI < docs[j].URI })
	return docs
}
