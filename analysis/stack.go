// Copyright © 2024 The ELPS authors

package analysis

import "github.com/luthersystems/flakes/ast"

// deferredJob is a function body waiting to be analyzed under the scope
// stack captured at its definition.
type deferredJob struct {
	fn    func()
	stack []ScopeID
}

// newScope allocates a scope in the table without pushing it.
func (c *checker) newScope(kind ScopeKind, node *ast.Node) *Scope {
	s := NewScope(ScopeID(len(c.scopes)), kind, node)
	c.scopes = append(c.scopes, s)
	return s
}

// pushScope allocates a scope and makes it the innermost live scope.
func (c *checker) pushScope(kind ScopeKind, node *ast.Node) *Scope {
	s := c.newScope(kind, node)
	c.stack = append(c.stack, s.ID)
	return s
}

// popScope removes the innermost scope. A popped scope is dead and is only
// consulted again by the unused-import sweep.
func (c *checker) popScope() {
	id := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	c.dead = append(c.dead, id)
}

// scope returns the innermost live scope.
func (c *checker) scope() *Scope {
	return c.scopes[c.stack[len(c.stack)-1]]
}

// scopeAt returns the i'th scope of the live stack; 0 is the module.
func (c *checker) scopeAt(i int) *Scope {
	return c.scopes[c.stack[i]]
}

// deferFunction queues fn to run after the module body under a copy of the
// current stack extended with extra. The copy holds scope IDs, so bindings
// added to those scopes later are visible when fn runs.
func (c *checker) deferFunction(fn func(), extra ...ScopeID) {
	stack := make([]ScopeID, 0, len(c.stack)+len(extra))
	stack = append(stack, c.stack...)
	stack = append(stack, extra...)
	c.deferred = append(c.deferred, deferredJob{fn: fn, stack: stack})
}

// runDeferred drains the queue in FIFO order. Jobs may queue further jobs
// (nested function bodies); those run after every job queued before them.
func (c *checker) runDeferred() {
	for i := 0; i < len(c.deferred); i++ {
		job := c.deferred[i]
		c.stack = job.stack
		job.fn()
	}
	c.deferred = nil
}
