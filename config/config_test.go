// Copyright © 2024 The ELPS authors

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleProject = `
[project]
name = "sample"

[tool.black]
line-length = 100

[tool.flakes]
builtins = ["_", "request"]
checks = ["F401", "undefined-name"]
exclude = ["build/**", "*_pb2.py"]
cache-dir = ".flakes-cache"
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadPyproject(t *testing.T) {
	path := filepath.Join(t.TempDir(), PyprojectName)
	writeFile(t, path, sampleProject)

	s, err := LoadPyproject(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"_", "request"}, s.Builtins)
	assert.Equal(t, []string{"F401", "undefined-name"}, s.Checks)
	assert.Equal(t, []string{"build/**", "*_pb2.py"}, s.Exclude)
	assert.Equal(t, ".flakes-cache", s.CacheDir)
	assert.False(t, s.NoCache)
	assert.Equal(t, path, s.Source)
}

func TestLoadPyprojectNoTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), PyprojectName)
	writeFile(t, path, "[project]\nname = \"x\"\n")
	s, err := LoadPyproject(path)
	require.NoError(t, err)
	assert.Empty(t, s.Builtins)
}

func TestLoadPyprojectUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), PyprojectName)
	writeFile(t, path, "[tool.flakes]\nbuiltin = [\"_\"]\n")
	_, err := LoadPyproject(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown settings: tool.flakes.builtin")
}

func TestLoadPyprojectBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), PyprojectName)
	writeFile(t, path, "[tool.flakes\n")
	_, err := LoadPyproject(path)
	assert.Error(t, err)
}

func TestFindPyproject(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, PyprojectName), sampleProject)
	nested := filepath.Join(root, "pkg", "sub")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	want, err := filepath.Abs(filepath.Join(root, PyprojectName))
	require.NoError(t, err)
	assert.Equal(t, want, FindPyproject(nested))
	assert.Equal(t, want, FindPyproject(root))
}

func TestLoadOverrides(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, PyprojectName), sampleProject)

	v := viper.New()
	v.Set(KeyBuiltins, []string{"gettext,ngettext"})
	v.Set(KeyNoCache, true)

	s, err := Load(v, root)
	require.NoError(t, err)
	assert.Equal(t, []string{"gettext", "ngettext"}, s.Builtins)
	assert.Equal(t, []string{"F401", "undefined-name"}, s.Checks)
	assert.True(t, s.NoCache)
}

func TestLoadWithoutViper(t *testing.T) {
	s, err := Load(nil, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, &Settings{}, s)
}

func TestNewViperEnv(t *testing.T) {
	t.Setenv("FLAKES_CACHE_DIR", "/tmp/flakes")
	t.Chdir(t.TempDir())
	v, err := NewViper("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/flakes", v.GetString(KeyCacheDir))
}

func TestNewViperConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flakes.yaml")
	writeFile(t, path, "builtins:\n  - _\nchecks: [F821]\n")
	v, err := NewViper(path)
	require.NoError(t, err)
	s, err := Load(v, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, []string{"_"}, s.Builtins)
	assert.Equal(t, []string{"F821"}, s.Checks)

	_, err = NewViper(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SplitList([]string{"a, b", "c"}))
	assert.Empty(t, SplitList(nil))
}
