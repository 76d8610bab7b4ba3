// Copyright © 2024 The ELPS authors

// Package diagnostic renders findings as annotated source snippets in the
// style of the Rust compiler. It has no dependency on the checker so any
// command can use it for parse errors as well as lint findings.
package diagnostic

// Severity indicates the severity level of a diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityNote
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityNote:
		return "note"
	default:
		return "unknown"
	}
}

// Span identifies a region of source code to highlight in the diagnostic.
type Span struct {
	File   string // path for reading source; display name if unreadable
	Line   int    // 1-based line number
	Col    int    // 1-based start column
	EndCol int    // 1-based end column (0 = auto-detect from source)

	// Text, when set, is the identifier to underline. The renderer looks
	// for it at or after Col so a statement position still marks the name.
	Text string

	Label string // text shown under the underline
}

// Diagnostic represents a single error, warning, or note with optional
// source annotations and trailing notes.
type Diagnostic struct {
	Severity Severity
	Code     string // shown in brackets after the severity, e.g. error[F821]
	Message  string
	Spans    []Span
	Notes    []string // "= note:" lines
}
