// Copyright © 2024 The ELPS authors

package repl

import (
	"sort"
	"strings"

	"github.com/luthersystems/flakes/builtins"
)

// nameCompleter implements readline.AutoCompleter over the names bound in
// the session and the builtins.
type nameCompleter struct {
	session *Session
	extra   []string
}

func (c *nameCompleter) Do(line []rune, pos int) ([][]rune, int) {
	start := pos
	for start > 0 && isNameRune(line[start-1]) {
		start--
	}
	prefix := string(line[start:pos])
	if prefix == "" {
		return nil, 0
	}

	candidates := c.collectNames(prefix)
	if len(candidates) == 0 {
		return nil, 0
	}

	// Each entry is the suffix to append.
	result := make([][]rune, 0, len(candidates))
	for _, name := range candidates {
		result = append(result, []rune(name[len(prefix):]))
	}
	return result, len([]rune(prefix))
}

func (c *nameCompleter) collectNames(prefix string) []string {
	seen := make(map[string]bool)
	var result []string
	add := func(names []string) {
		for _, name := range names {
			if name != prefix && strings.HasPrefix(name, prefix) && !seen[name] {
				seen[name] = true
				result = append(result, name)
			}
		}
	}
	if c.session != nil {
		add(c.session.Names())
	}
	add(builtins.Names())
	add(c.extra)
	sort.Strings(result)
	return result
}

func isNameRune(r rune) bool {
	return r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r > 127
}
