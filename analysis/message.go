// Copyright © 2024 The ELPS authors

package analysis

import (
	"fmt"
	"strings"

	"github.com/luthersystems/flakes/ast"
)

// MessageKind identifies a diagnostic reported by the checker.
type MessageKind int

const (
	UndefinedName MessageKind = iota + 1
	UnusedImport
	RedefinedWhileUnused
	RedefinedFunction
	ImportStarUsed
	ImportShadowedByLoopVar
	DuplicateArgument
	LateFutureImport
)

// MessageKinds lists every kind in declaration order.
func MessageKinds() []MessageKind {
	return []MessageKind{
		UndefinedName,
		UnusedImport,
		RedefinedWhileUnused,
		RedefinedFunction,
		ImportStarUsed,
		ImportShadowedByLoopVar,
		DuplicateArgument,
		LateFutureImport,
	}
}

func (k MessageKind) String() string {
	switch k {
	case UndefinedName:
		return "UndefinedName"
	case UnusedImport:
		return "UnusedImport"
	case RedefinedWhileUnused:
		return "RedefinedWhileUnused"
	case RedefinedFunction:
		return "RedefinedFunction"
	case ImportStarUsed:
		return "ImportStarUsed"
	case ImportShadowedByLoopVar:
		return "ImportShadowedByLoopVar"
	case DuplicateArgument:
		return "DuplicateArgument"
	case LateFutureImport:
		return "LateFutureImport"
	default:
		return "Unknown"
	}
}

// Code returns the flake8-compatible code for the kind.
func (k MessageKind) Code() string {
	switch k {
	case UndefinedName:
		return "F821"
	case UnusedImport:
		return "F401"
	case RedefinedWhileUnused, RedefinedFunction:
		return "F811"
	case ImportStarUsed:
		return "F403"
	case ImportShadowedByLoopVar:
		return "F402"
	case DuplicateArgument:
		return "F831"
	case LateFutureImport:
		return "F404"
	default:
		return ""
	}
}

// Message is a single diagnostic event.
type Message struct {
	Kind     MessageKind
	Filename string
	Pos      ast.Pos

	// Name is the subject of the message: the offending identifier, or the
	// module for ImportStarUsed.
	Name string

	// Names lists the future features of a LateFutureImport.
	Names []string

	// OrigLine is the line of the earlier binding for redefinition and
	// shadowing messages.
	OrigLine int
}

// Text returns the message without its location.
func (m *Message) Text() string {
	switch m.Kind {
	case UndefinedName:
		return fmt.Sprintf("undefined name '%s'", m.Name)
	case UnusedImport:
		return fmt.Sprintf("'%s' imported but unused", m.Name)
	case RedefinedWhileUnused:
		return fmt.Sprintf("redefinition of unused '%s' from line %d", m.Name, m.OrigLine)
	case RedefinedFunction:
		return fmt.Sprintf("redefinition of function '%s' from line %d", m.Name, m.OrigLine)
	case ImportStarUsed:
		return fmt.Sprintf("'from %s import *' used; unable to detect undefined names", m.Name)
	case ImportShadowedByLoopVar:
		return fmt.Sprintf("import '%s' from line %d shadowed by loop variable", m.Name, m.OrigLine)
	case DuplicateArgument:
		return fmt.Sprintf("duplicate argument '%s' in function definition", m.Name)
	case LateFutureImport:
		quoted := make([]string, len(m.Names))
		for i, n := range m.Names {
			quoted[i] = "'" + n + "'"
		}
		return fmt.Sprintf("future import(s) %s after other statements", strings.Join(quoted, ", "))
	default:
		return m.Kind.String()
	}
}

// String renders the message as filename:line: text.
func (m *Message) String() string {
	return fmt.Sprintf("%s:%d: %s", m.Filename, m.Pos.Line, m.Text())
}
