// Copyright © 2024 The ELPS authors

package lint

import (
	"strings"

	parsec "github.com/prataprc/goparsec"
)

// Directive is a parsed suppression comment.
//
//	directive := keyword [':' checks]
//	keyword   := /noqa|nolint/i
//	checks    := check (',' check)*
//	check     := /[A-Za-z][A-Za-z0-9_-]*/
//
// A check is an analyzer name or a flake8 code. Codes match by prefix, so
// "F4" suppresses F401 and F403.
type Directive struct {
	Keyword string
	// Checks is empty for a blanket directive.
	Checks []string
}

// All reports whether the directive suppresses every check.
func (d *Directive) All() bool {
	return len(d.Checks) == 0
}

// Suppresses reports whether diag is silenced by the directive.
func (d *Directive) Suppresses(diag Diagnostic) bool {
	if d.All() {
		return true
	}
	for _, c := range d.Checks {
		if strings.EqualFold(c, diag.Analyzer) {
			return true
		}
		if diag.Code != "" && strings.HasPrefix(strings.ToUpper(diag.Code), strings.ToUpper(c)) {
			return true
		}
	}
	return false
}

// ParseDirective finds a suppression directive in the text of a comment,
// which may hold several #-separated parts (e.g. "# type: ignore # noqa").
// It returns nil when the comment carries none.
func ParseDirective(comment string) *Directive {
	parts := strings.Split(comment, "#")
	for _, part := range parts[1:] {
		root, _ := directiveParser(parsec.NewScanner([]byte(part)))
		if d, ok := root.(*Directive); ok {
			return d
		}
	}
	return nil
}

var directiveParser = newDirectiveParser()

func newDirectiveParser() parsec.Parser {
	keyword := parsec.Token(`\s*(?i:noqa|nolint)\b`, "KEYWORD")
	colon := parsec.Token(`\s*:`, "COLON")
	comma := parsec.Token(`\s*,`, "COMMA")
	check := parsec.Token(`\s*[A-Za-z][A-Za-z0-9_-]*`, "CHECK")
	checks := parsec.Kleene(nil, check, comma)
	selective := parsec.And(directiveNode, keyword, colon, checks)
	blanket := parsec.And(directiveNode, keyword)
	return parsec.OrdChoice(firstNode, selective, blanket)
}

// firstNode unwraps the single alternative OrdChoice matched.
func firstNode(nodes []parsec.ParsecNode) parsec.ParsecNode {
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

func directiveNode(nodes []parsec.ParsecNode) parsec.ParsecNode {
	d := &Directive{}
	for _, t := range terminals(nodes) {
		value := strings.TrimSpace(t.Value)
		switch t.Name {
		case "KEYWORD":
			d.Keyword = strings.ToLower(value)
		case "CHECK":
			d.Checks = append(d.Checks, value)
		}
	}
	return d
}

func terminals(nodes []parsec.ParsecNode) []*parsec.Terminal {
	var out []*parsec.Terminal
	for _, n := range nodes {
		switch n := n.(type) {
		case *parsec.Terminal:
			out = append(out, n)
		case []parsec.ParsecNode:
			out = append(out, terminals(n)...)
		}
	}
	return out
}
