// Copyright © 2024 The ELPS authors

// Package parser turns Python source into the syntax trees consumed by the
// checker. Parsing is done by tree-sitter; this package converts the
// concrete tree into ast nodes and collects the comments the lint layer
// needs for suppression directives.
package parser

import (
	"context"
	"fmt"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/luthersystems/flakes/ast"
)

// File is a parsed source file.
type File struct {
	Filename string
	Source   []byte
	Module   *ast.Node
	Comments []Comment
}

// Comment is a single # comment. Text includes the leading #.
type Comment struct {
	Line int
	Col  int
	Text string
}

// CommentAt returns the comment that starts on line, if any.
func (f *File) CommentAt(line int) (Comment, bool) {
	for _, c := range f.Comments {
		if c.Line == line {
			return c, true
		}
		if c.Line > line {
			break
		}
	}
	return Comment{}, false
}

// Line returns the text of the 1-based line, without its newline.
func (f *File) Line(line int) string {
	if line < 1 {
		return ""
	}
	rest := string(f.Source)
	for i := 1; i < line; i++ {
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

// SyntaxError reports source the grammar could not parse.
type SyntaxError struct {
	Filename string
	Pos      ast.Pos
	Msg      string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: syntax error: %s", e.Filename, e.Pos.Line, e.Pos.Col+1, e.Msg)
}

// UnsupportedError reports a construct that parses but has no syntax tree
// mapping, such as a match statement.
type UnsupportedError struct {
	Filename  string
	Pos       ast.Pos
	Construct string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s:%d:%d: unsupported construct %s", e.Filename, e.Pos.Line, e.Pos.Col+1, e.Construct)
}

// Language returns the tree-sitter grammar used for Python.
func Language() *sitter.Language {
	return python.GetLanguage()
}

// ParseFile reads and parses the file at path.
func ParseFile(ctx context.Context, path string) (*File, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(ctx, src, path)
}

// Parse parses src. The error is a *SyntaxError or *UnsupportedError for
// bad input, or the context's error if parsing was cancelled.
func Parse(ctx context.Context, src []byte, filename string) (*File, error) {
	p := sitter.NewParser()
	p.SetLanguage(Language())
	tree, err := p.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("%s: parse: %w", filename, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, syntaxError(root, src, filename)
	}

	c := &converter{src: src, filename: filename}
	mod, err := c.convertModule(root)
	if err != nil {
		return nil, err
	}
	comments, err := collectComments(root, src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return &File{Filename: filename, Source: src, Module: mod, Comments: comments}, nil
}

// syntaxError locates the first error or missing node under n.
func syntaxError(n *sitter.Node, src []byte, filename string) error {
	bad := firstError(n)
	if bad == nil {
		bad = n
	}
	msg := "invalid syntax"
	if bad.IsMissing() {
		msg = fmt.Sprintf("missing %q", bad.Type())
	} else if text := strings.TrimSpace(bad.Content(src)); text != "" && bad.Type() == "ERROR" {
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			text = text[:nl]
		}
		msg = fmt.Sprintf("unexpected %q", text)
	}
	return &SyntaxError{Filename: filename, Pos: pos(bad), Msg: msg}
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if bad := firstError(n.Child(i)); bad != nil {
			return bad
		}
	}
	return nil
}

const commentQuery = `(comment) @comment`

func collectComments(root *sitter.Node, src []byte) ([]Comment, error) {
	q, err := sitter.NewQuery([]byte(commentQuery), Language())
	if err != nil {
		return nil, fmt.Errorf("comment query: %w", err)
	}
	defer q.Close()

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(q, root)

	var comments []Comment
	for {
		match, ok := cursor.NextMatch()
		if !ok {
			break
		}
		for _, capture := range match.Captures {
			p := pos(capture.Node)
			comments = append(comments, Comment{Line: p.Line, Col: p.Col, Text: capture.Node.Content(src)})
		}
	}
	return comments, nil
}

func pos(n *sitter.Node) ast.Pos {
	p := n.StartPoint()
	return ast.At(int(p.Row)+1, int(p.Column))
}
