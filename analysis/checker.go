// Copyright © 2024 The ELPS authors

package analysis

import (
	"context"
	"log/slog"

	"github.com/luthersystems/flakes/ast"
	"github.com/luthersystems/flakes/astutil"
	"github.com/luthersystems/flakes/builtins"
	"github.com/luthersystems/flakes/trace"
)

type checker struct {
	cfg    *Config
	log    *slog.Logger
	oracle *builtins.Oracle
	d      *astutil.Dispatcher

	scopes   []*Scope  // every scope ever created, indexed by ScopeID
	stack    []ScopeID // live scopes, module first
	dead     []ScopeID // popped scopes in pop order
	deferred []deferredJob

	// futuresAllowed stays true until the module body reaches a statement
	// other than an import or a leading docstring.
	futuresAllowed bool

	result *Result
}

func newChecker(cfg *Config) *checker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &checker{
		cfg:            cfg,
		log:            logger,
		oracle:         builtins.NewOracle(cfg.Builtins...),
		d:              astutil.NewDispatcher(),
		futuresAllowed: true,
		result:         &Result{Filename: cfg.Filename},
	}
	c.registerHandlers()
	return c
}

func (c *checker) visit(n *ast.Node) { c.d.Visit(n) }
func (c *checker) visitChildren(n *ast.Node) { c.d.VisitChildren(n) }
func (c *checker) visitSequence(ns []*ast.Node) { c.d.VisitSequence(ns) }

// run analyzes the module: top-level traversal, then the deferred function
// bodies, then the unused-import sweep.
func (c *checker) run(ctx context.Context, tree *ast.Node) {
	ctx, end := trace.Start(ctx, c.cfg.Annotator, "flakes.analyze", trace.String("code.filepath", c.cfg.Filename))
	defer end()

	_, endPhase := trace.Start(ctx, c.cfg.Annotator, "flakes.traverse")
	c.pushScope(ScopeModule, tree)
	c.visit(tree)
	endPhase()

	_, endPhase = trace.Start(ctx, c.cfg.Annotator, "flakes.deferred", trace.Int("jobs", len(c.deferred)))
	jobs := len(c.deferred)
	c.runDeferred()
	endPhase()

	_, endPhase = trace.Start(ctx, c.cfg.Annotator, "flakes.sweep")
	c.stack = c.stack[:1]
	c.popScope()
	c.checkDeadScopes()
	endPhase()

	for _, id := range c.dead {
		c.result.Scopes = append(c.result.Scopes, c.scopes[id])
	}
	c.log.Debug("analysis complete",
		"file", c.cfg.Filename,
		"messages", len(c.result.Messages),
		"scopes", len(c.scopes),
		"deferred", jobs)
}

func (c *checker) report(kind MessageKind, pos ast.Pos, name string, origLine int) *Message {
	m := &Message{
		Kind:     kind,
		Filename: c.cfg.Filename,
		Pos:      pos,
		Name:     name,
		OrigLine: origLine,
	}
	c.result.Messages = append(c.result.Messages, m)
	return m
}

// addBinding installs b in the current scope, reporting redefinitions
// first. An UnBinding removes the name instead.
func (c *checker) addBinding(pos ast.Pos, b *Binding) {
	cur := c.scope()
	if b.Kind == FunctionDefinition {
		if old := cur.Lookup(b.Name); old != nil && old.Kind == FunctionDefinition {
			c.report(RedefinedFunction, pos, b.Name, old.Line())
		}
	}
	// Rebinding an outer unused import from a class body is tolerated.
	if cur.Kind != ScopeClass {
		for i := len(c.stack) - 1; i >= 0; i-- {
			old := c.scopeAt(i).Lookup(b.Name)
			if old != nil && old.Kind == Importation && !old.IsUsed() {
				c.report(RedefinedWhileUnused, pos, b.Name, old.Line())
			}
		}
	}
	if b.Kind == UnBinding {
		if !cur.Unbind(b.Name) {
			c.report(UndefinedName, pos, b.Name, 0)
		}
		return
	}
	cur.Bind(b)
}

// resolve handles a read of name at pos: the current scope, then
// enclosing function and type parameter scopes (class scopes never close
// over their names),
// then the module scope, then the builtin oracle.
func (c *checker) resolve(name string, pos ast.Pos) {
	cur := c.scope()
	use := Usage{Scope: cur.ID, Pos: pos}

	importStarred := cur.ImportStarred
	if c.markUsed(cur, name, use) {
		return
	}
	for i := len(c.stack) - 2; i >= 1; i-- {
		s := c.scopeAt(i)
		importStarred = importStarred || s.ImportStarred
		if s.Kind == ScopeClass {
			continue
		}
		if c.markUsed(s, name, use) {
			return
		}
	}
	module := c.scopeAt(0)
	importStarred = importStarred || module.ImportStarred
	if c.markUsed(module, name, use) {
		return
	}
	if importStarred || c.oracle.IsDefined(name) {
		return
	}
	c.report(UndefinedName, pos, name, 0)
}

func (c *checker) markUsed(s *Scope, name string, use Usage) bool {
	if !s.SetUsed(name, use) {
		return false
	}
	c.result.Uses = append(c.result.Uses, Use{
		Name:    name,
		Pos:     use.Pos,
		Scope:   use.Scope,
		Binding: s.Lookup(name),
	})
	return true
}

// checkDeadScopes reports every import that was never read, scope by
// scope in pop order and in source order within a scope.
func (c *checker) checkDeadScopes() {
	for _, id := range c.dead {
		for _, b := range c.scopes[id].Bindings() {
			if b.Kind == Importation && !b.IsUsed() {
				c.report(UnusedImport, b.Pos, b.Name, 0)
			}
		}
	}
}
