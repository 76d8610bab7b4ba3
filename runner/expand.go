// Copyright © 2024 The ELPS authors

package runner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// Excludes matches paths against exclude patterns. A pattern matches when
// it matches the slash-separated path, the base name, or any directory
// component, so "build" skips everything under a build directory and
// "*_pb2.py" skips generated modules anywhere.
type Excludes struct {
	patterns []string
	globs    []glob.Glob
}

// NewExcludes compiles patterns.
func NewExcludes(patterns []string) (*Excludes, error) {
	ex := &Excludes{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g, err := glob.Compile(filepath.ToSlash(p), '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		ex.patterns = append(ex.patterns, p)
		ex.globs = append(ex.globs, g)
	}
	return ex, nil
}

// Match reports whether path is excluded.
func (ex *Excludes) Match(path string) bool {
	if ex == nil || len(ex.globs) == 0 {
		return false
	}
	slashed := filepath.ToSlash(filepath.Clean(path))
	slashed = strings.TrimPrefix(slashed, "./")
	parts := strings.Split(slashed, "/")
	for _, g := range ex.globs {
		if g.Match(slashed) {
			return true
		}
		for _, part := range parts {
			if g.Match(part) {
				return true
			}
		}
	}
	return false
}

// Filter returns the paths that are not excluded, preserving order.
func (ex *Excludes) Filter(paths []string) []string {
	var out []string
	for _, p := range paths {
		if !ex.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

// IsPython reports whether path names a Python source file.
func IsPython(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".py" || ext == ".pyi"
}

// ExpandArgs resolves command line arguments into files. A directory, or a
// pattern ending in "/...", expands to every Python file below it, skipping
// excluded directories without descending into them. Plain file arguments
// pass through even when they are not .py files; excluded ones are dropped.
func ExpandArgs(args []string, ex *Excludes) ([]string, error) {
	var out []string
	for _, arg := range args {
		dir, recursive := strings.CutSuffix(arg, "/...")
		if recursive && dir == "" {
			dir = "."
		}
		if !recursive {
			fi, err := os.Stat(arg)
			if err != nil {
				return nil, err
			}
			if !fi.IsDir() {
				if !ex.Match(arg) {
					out = append(out, arg)
				}
				continue
			}
			dir = arg
		}
		files, err := findPythonFiles(dir, ex)
		if err != nil {
			return nil, fmt.Errorf("expanding %s: %w", arg, err)
		}
		out = append(out, files...)
	}
	return out, nil
}

func findPythonFiles(root string, ex *Excludes) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && ex.Match(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && IsPython(path) {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}
