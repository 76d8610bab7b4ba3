// Copyright © 2024 The ELPS authors

package runner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustExcludes(t *testing.T, patterns ...string) *Excludes {
	t.Helper()
	ex, err := NewExcludes(patterns)
	require.NoError(t, err)
	return ex
}

func TestFilterExcludes_ByName(t *testing.T) {
	paths := []string{"src/main.py", "src/settings_local.py", "lib/utils.py"}
	result := mustExcludes(t, "settings_local.py").Filter(paths)
	assert.Equal(t, []string{"src/main.py", "lib/utils.py"}, result)
}

func TestFilterExcludes_ByDirectory(t *testing.T) {
	paths := []string{"src/main.py", "build/output.py", "build/sub/deep.py", "lib/utils.py"}
	result := mustExcludes(t, "build").Filter(paths)
	assert.Equal(t, []string{"src/main.py", "lib/utils.py"}, result)
}

func TestFilterExcludes_GlobPattern(t *testing.T) {
	paths := []string{"src/main.py", "src/api_pb2.py", "src/model_pb2.py", "lib/utils.py"}
	result := mustExcludes(t, "*_pb2.py").Filter(paths)
	assert.Equal(t, []string{"src/main.py", "lib/utils.py"}, result)
}

func TestFilterExcludes_MultiplePatterns(t *testing.T) {
	paths := []string{"src/main.py", "build/output.py", "src/conftest.py", "lib/utils.py"}
	result := mustExcludes(t, "build", "conftest.py").Filter(paths)
	assert.Equal(t, []string{"src/main.py", "lib/utils.py"}, result)
}

func TestFilterExcludes_NoMatches(t *testing.T) {
	paths := []string{"src/main.py", "lib/utils.py"}
	assert.Equal(t, paths, mustExcludes(t, "nonexistent").Filter(paths))
}

func TestFilterExcludes_EmptyExcludes(t *testing.T) {
	paths := []string{"src/main.py"}
	assert.Equal(t, paths, mustExcludes(t).Filter(paths))
	var ex *Excludes
	assert.Equal(t, paths, ex.Filter(paths))
}

func TestExcludesMatch(t *testing.T) {
	ex := mustExcludes(t, "src/*.py", "migrations/**", ".venv")
	assert.True(t, ex.Match("src/main.py"))
	assert.True(t, ex.Match("./src/main.py"))
	assert.False(t, ex.Match("src/pkg/main.py"))
	assert.True(t, ex.Match("migrations/0001_initial.py"))
	assert.True(t, ex.Match("app/.venv/lib/site.py"))
	assert.False(t, ex.Match("lib/main.py"))
}

func TestNewExcludesInvalid(t *testing.T) {
	_, err := NewExcludes([]string{"[unclosed"})
	assert.Error(t, err)
}

func TestIsPython(t *testing.T) {
	assert.True(t, IsPython("a/b.py"))
	assert.True(t, IsPython("stubs.pyi"))
	assert.False(t, IsPython("README.md"))
	assert.False(t, IsPython("py"))
}

func makeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestExpandArgs(t *testing.T) {
	root := makeTree(t, map[string]string{
		"pkg/__init__.py":     "",
		"pkg/mod.py":          "",
		"pkg/build/gen.py":    "",
		"pkg/notes.txt":       "",
		"scripts/tool":        "",
		"scripts/sub/deep.py": "",
	})
	ex := mustExcludes(t, "build")

	got, err := ExpandArgs([]string{
		filepath.Join(root, "pkg") + "/...",
		filepath.Join(root, "scripts"),
		filepath.Join(root, "scripts", "tool"),
	}, ex)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "pkg", "__init__.py"),
		filepath.Join(root, "pkg", "mod.py"),
		filepath.Join(root, "scripts", "sub", "deep.py"),
		filepath.Join(root, "scripts", "tool"),
	}, got)
}

func TestExpandArgsMissing(t *testing.T) {
	_, err := ExpandArgs([]string{filepath.Join(t.TempDir(), "nope.py")}, nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
