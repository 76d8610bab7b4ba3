// Copyright © 2024 The ELPS authors

// Package analysis checks the bindings of one Python module.
//
// The checker walks the syntax tree once, recording a Binding whenever a
// name is imported, assigned, defined or deleted and resolving every name
// that is read. Function bodies are not walked where they appear: each is
// queued with the scope stack visible at its definition and analyzed after
// the module body, so it observes the module's final bindings just as a
// Python closure does when it is eventually called. Once every queued body
// has run, each scope is swept for imports that were never read.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/luthersystems/flakes/ast"
	"github.com/luthersystems/flakes/trace"
)

// ErrMalformedTree is returned when the input tree violates the node schema.
var ErrMalformedTree = errors.New("malformed syntax tree")

// Config controls the behavior of the checker.
type Config struct {
	// Filename is the source file being analyzed. It is copied onto every
	// message.
	Filename string

	// Builtins are extra names treated as always defined.
	Builtins []string

	// Annotator, when set, receives a span per analysis phase.
	Annotator trace.Annotator

	// Logger receives debug output. Defaults to slog.Default().
	Logger *slog.Logger
}

// Use records a name read that resolved to a binding.
type Use struct {
	Name    string
	Pos     ast.Pos
	Scope   ScopeID // scope the read happened in
	Binding *Binding
}

// Result holds the output of one analysis run.
type Result struct {
	Filename string

	// Messages are the diagnostics in traversal order. UnusedImport
	// messages always come last.
	Messages []*Message

	// Scopes lists every scope in the order it was popped. The module
	// scope is last.
	Scopes []*Scope

	// Uses lists every resolved name read in traversal order.
	Uses []Use
}

// Module returns the module scope.
func (r *Result) Module() *Scope {
	if len(r.Scopes) == 0 {
		return nil
	}
	return r.Scopes[len(r.Scopes)-1]
}

// MessagesOf returns the messages of the given kind.
func (r *Result) MessagesOf(kind MessageKind) []*Message {
	var out []*Message
	for _, m := range r.Messages {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

// Analyze checks a Module tree. See AnalyzeContext.
func Analyze(tree *ast.Node, cfg *Config) (*Result, error) {
	return AnalyzeContext(context.Background(), tree, cfg)
}

// AnalyzeContext checks a Module tree. Diagnostics never abort the run; the
// only error is a tree that does not conform to the node schema, reported
// as an error wrapping both ErrMalformedTree and the *ast.Error.
func AnalyzeContext(ctx context.Context, tree *ast.Node, cfg *Config) (res *Result, err error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if tree == nil || tree.Kind != ast.Module {
		return nil, fmt.Errorf("%s: %w: root is %v, want Module", cfg.Filename, ErrMalformedTree, tree)
	}

	defer func() {
		if r := recover(); r != nil {
			aerr, ok := r.(*ast.Error)
			if !ok {
				panic(r)
			}
			res = nil
			err = fmt.Errorf("%s: %w: %w", cfg.Filename, ErrMalformedTree, aerr)
		}
	}()

	c := newChecker(cfg)
	c.run(ctx, tree)
	return c.result, nil
}
