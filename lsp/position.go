// Copyright © 2024 The ELPS authors

package lsp

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/luthersystems/flakes/analysis"
	"github.com/luthersystems/flakes/ast"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// safeUint converts a non-negative int to protocol.UInteger, clamping
// negative values to zero.
func safeUint(n int) protocol.UInteger {
	if n < 0 {
		return 0
	}
	return protocol.UInteger(n) // #nosec G115 -- line/col are always small positive ints
}

// lineText returns the 0-based line of content without its line ending.
func lineText(content string, line int) string {
	if line < 0 {
		return ""
	}
	rest := content
	for i := 0; i < line; i++ {
		nl := strings.IndexByte(rest, '\n')
		if nl < 0 {
			return ""
		}
		rest = rest[nl+1:]
	}
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}
	return strings.TrimSuffix(rest, "\r")
}

// utf16Col converts a byte offset within text to UTF-16 code units, the
// unit LSP clients count characters in.
func utf16Col(text string, byteCol int) int {
	if byteCol > len(text) {
		byteCol = len(text)
	}
	n := 0
	for _, r := range text[:byteCol] {
		n += utf16.RuneLen(r)
	}
	return n
}

// byteCol converts a UTF-16 character offset within text to a byte offset.
func byteCol(text string, char int) int {
	units := 0
	for i, r := range text {
		if units >= char {
			return i
		}
		units += utf16.RuneLen(r)
	}
	return len(text)
}

// toLSPPosition converts a checker position (1-based line, 0-based byte
// column) to a 0-based LSP position.
func toLSPPosition(content string, pos ast.Pos) protocol.Position {
	line := pos.Line - 1
	return protocol.Position{
		Line:      safeUint(line),
		Character: safeUint(utf16Col(lineText(content, line), pos.Col)),
	}
}

// fromLSPPosition is the inverse of toLSPPosition.
func fromLSPPosition(content string, p protocol.Position) ast.Pos {
	line := int(p.Line)
	return ast.At(line+1, byteCol(lineText(content, line), int(p.Character)))
}

// nameRange returns the range covering the identifier name that starts at
// pos. Statement-level bindings such as def, class and import record the
// statement position, so the name is searched for as a whole word from
// pos onward. When it is not on that line the range starts at pos.
func nameRange(content string, pos ast.Pos, name string) protocol.Range {
	text := lineText(content, pos.Line-1)
	col := findWord(text, pos.Col, name)
	if col < 0 {
		col = pos.Col
	}
	start := toLSPPosition(content, ast.At(pos.Line, col))
	end := start
	end.Character += safeUint(utf16Col(name, len(name)))
	return protocol.Range{Start: start, End: end}
}

// findWord returns the byte offset of the first whole-word occurrence of
// word in text at or after from, or -1.
func findWord(text string, from int, word string) int {
	if word == "" || from < 0 || from > len(text) {
		return -1
	}
	for i := from; i <= len(text)-len(word); {
		j := strings.Index(text[i:], word)
		if j < 0 {
			return -1
		}
		at := i + j
		if isWordBoundary(text, at, at+len(word)) {
			return at
		}
		i = at + 1
	}
	return -1
}

func isWordBoundary(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if isIdentRune(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if isIdentRune(r) {
			return false
		}
	}
	return true
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// wordAtPosition extracts the identifier at the 0-based LSP position. The
// cursor may sit inside or just after the word.
func wordAtPosition(content string, p protocol.Position) (string, ast.Pos) {
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
	end := col
	for end < len(text) {
		r, size := utf8.DecodeRuneInString(text[end:])
		if !isIdentRune(r) {
			break
		}
		end += size
	}
	return text[start:end], ast.At(int(p.Line)+1, start)
}

// symbolAtPosition finds the binding under the cursor. It returns the
// binding and, when the cursor is on a read rather than the binding
// itself, the use that was hit.
func symbolAtPosition(doc *Document, p protocol.Position) (*analysis.Binding, *analysis.Use) {
	if doc == nil || doc.result == nil {
		return nil, nil
	}
	word, start := wordAtPosition(doc.Content, p)
	if word == "" {
		return nil, nil
	}
	for i := range doc.result.Uses {
		u := &doc.result.Uses[i]
		if u.Name == word && u.Pos == start {
			return u.Binding, u
		}
	}
	for _, b := range allBindings(doc.result) {
		if b.Name != word || b.Pos.Line != start.Line {
			continue
		}
		if col := findWord(lineText(doc.Content, start.Line-1), b.Pos.Col, b.Name); col == start.Col {
			return b, nil
		}
	}
	return nil, nil
}

// allBindings returns every binding the analysis saw, including those
// later rebound or deleted, in source order.
func allBindings(res *analysis.Result) []*analysis.Binding {
	seen := make(map[*analysis.Binding]bool)
	var out []*analysis.Binding
	add := func(b *analysis.Binding) {
		if b == nil || seen[b] || b.Kind == analysis.UnBinding {
			return
		}
		seen[b] = true
		out = append(out, b)
	}
	for _, s := range res.Scopes {
		for _, b := range s.Bindings() {
			add(b)
		}
	}
	for _, u := range res.Uses {
		add(u.Binding)
	}
	sortBindings(out)
	return out
}

func sortBindings(bs []*analysis.Binding) {
	sort.SliceStable(bs, func(i, j int) bool { return bs[i].Pos.Before(bs[j].Pos) })
}

// mapSymbolKind converts a binding to an LSP SymbolKind.
func mapSymbolKind(b *analysis.Binding) protocol.SymbolKind {
	switch b.Kind {
	case analysis.Importation:
		return protocol.SymbolKindModule
	case analysis.FunctionDefinition:
		return protocol.SymbolKindFunction
	}
	if b.Source != nil && b.Source.Kind == ast.ClassDef {
		return protocol.SymbolKindClass
	}
	return protocol.SymbolKindVariable
}

// mapCompletionItemKind converts a binding to an LSP CompletionItemKind.
func mapCompletionItemKind(b *analysis.Binding) protocol.CompletionItemKind {
	switch mapSymbolKind(b) {
	case protocol.SymbolKindModule:
		return protocol.CompletionItemKindModule
	case protocol.SymbolKindFunction:
		return protocol.CompletionItemKindFunction
	case protocol.SymbolKindClass:
		return protocol.CompletionItemKindClass
	}
	return protocol.CompletionItemKindVariable
}

// uriToPath converts a file:// URI to a filesystem path.
func uriToPath(uri string) string {
	if path, ok := strings.CutPrefix(uri, "file://"); ok {
		return path
	}
	return uri
}

// pathToURI converts a filesystem path to a file:// URI.
func pathToURI(path string) string {
	if strings.HasPrefix(path, "/") {
		return "file://" + path
	}
	return path
}
