// Copyright © 2024 The ELPS authors

package repl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luthersystems/flakes/lint"
)

func TestSessionSubmit(t *testing.T) {
	ctx := context.Background()
	sess := NewSession(&lint.Linter{Analyzers: lint.DefaultAnalyzers()})

	diags, err := sess.Submit(ctx, "import os")
	require.NoError(t, err)
	assert.Empty(t, diags, "unused imports wait for :check")

	diags, err = sess.Submit(ctx, "def f():\n    return os.getcwd()")
	require.NoError(t, err)
	assert.Empty(t, diags)

	diags, err = sess.Submit(ctx, "print(f(), missing)")
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "F821", diags[0].Code)
	assert.Equal(t, 4, diags[0].Pos.Line)

	// Already reported problems are not repeated.
	diags, err = sess.Submit(ctx, "x = 1")
	require.NoError(t, err)
	assert.Empty(t, diags)

	assert.Equal(t, []string{"f", "os", "x"}, sess.Names())
	assert.Equal(t, "import os\ndef f():\n    return os.getcwd()\nprint(f(), missing)\nx = 1\n", sess.Source())
}

func TestSessionRejectsSyntaxError(t *testing.T) {
	ctx := context.Background()
	sess := NewSession(&lint.Linter{Analyzers: lint.DefaultAnalyzers()})
	_, err := sess.Submit(ctx, "y = 2")
	require.NoError(t, err)

	_, err = sess.Submit(ctx, "def broken(:")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax error")
	assert.Equal(t, "y = 2\n", sess.Source())
}

func TestSessionCheckAndReset(t *testing.T) {
	ctx := context.Background()
	sess := NewSession(&lint.Linter{Analyzers: lint.DefaultAnalyzers()})
	_, err := sess.Submit(ctx, "import sys")
	require.NoError(t, err)

	diags, err := sess.Check(ctx)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "F401", diags[0].Code)

	sess.Reset()
	assert.Empty(t, sess.Source())
	assert.Empty(t, sess.Names())
	diags, err = sess.Check(ctx)
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestOpensBlock(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"def f():", true},
		{"for x in y:  # loop", true},
		{"x = (1,", true},
		{"x = 1 + \\", true},
		{"x = ':'", false},
		{"print('(')", false},
		{"x = 1  # note:", false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, opensBlock(tc.line), tc.line)
	}
}

func TestBracketDepth(t *testing.T) {
	assert.Equal(t, 1, bracketDepth("f(a, [b]"))
	assert.Equal(t, 0, bracketDepth("f(a)\n"))
	assert.Equal(t, 0, bracketDepth("s = '(' # ("))
}
