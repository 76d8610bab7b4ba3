// Copyright © 2024 The ELPS authors

package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ergochat/readline"

	"github.com/luthersystems/flakes/diagnostic"
	"github.com/luthersystems/flakes/lint"
)

type config struct {
	stdin   io.ReadCloser
	stderr  io.Writer
	linter  *lint.Linter
	color   diagnostic.ColorMode
	history string
	noHist  bool
}

func newConfig(opts ...Option) *config {
	config := &config{}
	for _, opt := range opts {
		opt(config)
	}
	if config.linter == nil {
		config.linter = &lint.Linter{Analyzers: lint.DefaultAnalyzers()}
	}
	if config.stderr == nil {
		config.stderr = os.Stderr
	}
	if config.history == "" && !config.noHist {
		config.history = historyPath()
	}
	return config
}

type Option func(*config)

// WithStdin allows overriding the input to the REPL.
func WithStdin(stdin io.ReadCloser) Option {
	return func(c *config) {
		c.stdin = stdin
	}
}

// WithStderr allows overriding the output to the REPL.
func WithStderr(stderr io.Writer) Option {
	return func(c *config) {
		c.stderr = stderr
	}
}

// WithLinter sets the checks run on each input.
func WithLinter(l *lint.Linter) Option {
	return func(c *config) {
		c.linter = l
	}
}

// WithColor sets the color mode used for diagnostics.
func WithColor(mode diagnostic.ColorMode) Option {
	return func(c *config) {
		c.color = mode
	}
}

// WithHistoryFile sets the readline history file. An empty path disables
// history.
func WithHistoryFile(path string) Option {
	return func(c *config) {
		c.history = path
		c.noHist = path == ""
	}
}

const helpText = `Enter Python source to check it against everything entered so far.
A line ending in ':' or with unclosed brackets starts a block; finish it
with an empty line.

Commands:
  :check   report every problem in the session, including unused imports
  :checks  list the available checks
  :show    print the session source
  :reset   forget the session
  :help    print this message
`

// RunRepl reads Python source interactively and reports the problems
// each input introduces. It returns when input is exhausted.
func RunRepl(prompt string, opts ...Option) error {
	cfg := newConfig(opts...)
	cont := strings.Repeat(".", len(strings.TrimRight(prompt, " ")))
	if len(prompt) > len(cont) {
		cont += strings.Repeat(" ", len(prompt)-len(cont))
	}

	sess := NewSession(cfg.linter)
	ensureHistoryFilePermissions(cfg.history)
	rlCfg := &readline.Config{
		Stdout:            cfg.stderr,
		Stderr:            cfg.stderr,
		Prompt:            prompt,
		HistoryFile:       cfg.history,
		HistorySearchFold: true,
		AutoComplete:      &nameCompleter{session: sess, extra: cfg.linter.Builtins},
	}
	if cfg.stdin != nil {
		rlCfg.Stdin = cfg.stdin
	}
	rl, err := readline.NewEx(rlCfg)
	if err != nil {
		return fmt.Errorf("repl: %w", err)
	}
	defer rl.Close() //nolint:errcheck // best-effort cleanup

	r := &repl{cfg: cfg, session: sess, out: cfg.stderr}
	var block []string
	for {
		if len(block) > 0 {
			rl.SetPrompt(cont)
		} else {
			rl.SetPrompt(prompt)
		}
		line, err := rl.ReadLine()
		if errors.Is(err, readline.ErrInterrupt) {
			block = nil
			continue
		}
		if err != nil {
			if len(block) > 0 {
				r.submit(strings.Join(block, "\n"))
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if len(block) == 0 {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			if strings.HasPrefix(trimmed, ":") {
				r.command(trimmed)
				continue
			}
			if opensBlock(line) {
				block = append(block, line)
				continue
			}
			r.submit(line)
			continue
		}

		if strings.TrimSpace(line) == "" && bracketDepth(strings.Join(block, "\n")) <= 0 {
			r.submit(strings.Join(block, "\n"))
			block = nil
			continue
		}
		block = append(block, line)
	}
}

type repl struct {
	cfg     *config
	session *Session
	out     io.Writer
}

func (r *repl) renderer() *diagnostic.Renderer {
	src := []byte(r.session.Source())
	return &diagnostic.Renderer{
		Color: r.cfg.color,
		SourceReader: func(string) ([]byte, error) {
			return src, nil
		},
	}
}

func (r *repl) submit(chunk string) {
	diags, err := r.session.Submit(context.Background(), chunk)
	if err != nil {
		errlnf(r.out, "%v", err)
		return
	}
	r.report(diags)
}

func (r *repl) report(diags []lint.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	out := make([]diagnostic.Diagnostic, len(diags))
	for i, d := range diags {
		out[i] = d.Annotated()
	}
	if err := r.renderer().RenderAll(r.out, out); err != nil {
		errlnf(r.out, "%v", err)
	}
}

func (r *repl) command(cmd string) {
	switch strings.Fields(cmd)[0] {
	case ":help":
		errf(r.out, "%s", helpText)
	case ":reset":
		r.session.Reset()
		errlnf(r.out, "session cleared")
	case ":show":
		errf(r.out, "%s", r.session.Source())
	case ":checks":
		for _, a := range r.cfg.linter.Analyzers {
			errlnf(r.out, "%s  %-28s %s", a.Code, a.Name, a.Summary())
		}
	case ":check":
		diags, err := r.session.Check(context.Background())
		if err != nil {
			errlnf(r.out, "%v", err)
			return
		}
		if len(diags) == 0 {
			errlnf(r.out, "no problems")
			return
		}
		if err := lint.FormatAnnotated(r.out, r.renderer(), diags); err != nil {
			errlnf(r.out, "%v", err)
		}
	default:
		errlnf(r.out, "unknown command %s (try :help)", cmd)
	}
}

// opensBlock reports whether line needs continuation lines.
func opensBlock(line string) bool {
	code := stripComment(line)
	trimmed := strings.TrimRight(code, " \t")
	return strings.HasSuffix(trimmed, ":") ||
		strings.HasSuffix(trimmed, "\\") ||
		bracketDepth(code) > 0
}

// bracketDepth counts unclosed brackets outside string literals.
func bracketDepth(src string) int {
	depth := 0
	var quote rune
	escaped := false
	for _, ch := range src {
		switch {
		case escaped:
			escaped = false
		case quote != 0:
			if ch == '\\' && quote != '\n' {
				escaped = true
			} else if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == '#':
			// Comments run to the end of the line.
			quote = '\n'
		case ch == '(' || ch == '[' || ch == '{':
			depth++
		case ch == ')' || ch == ']' || ch == '}':
			depth--
		}
	}
	return depth
}

func stripComment(line string) string {
	var quote rune
	for i, ch := range line {
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == '#':
			return line[:i]
		}
	}
	return line
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".flakes_history")
}

// ensureHistoryFilePermissions creates path if needed and restricts it to
// the owner.
func ensureHistoryFilePermissions(path string) {
	if path == "" {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o600) //nolint:gosec // user history file
	if err != nil {
		return
	}
	_ = f.Close()
	_ = os.Chmod(path, 0o600)
}

func errlnf(w io.Writer, format string, v ...interface{}) {
	if strings.HasSuffix(format, "\n") {
		errf(w, format, v...)
		return
	}
	errf(w, format+"\n", v...)
}

func errf(w io.Writer, format string, v ...interface{}) {
	fmt.Fprintf(w, format, v...) //nolint:errcheck // best-effort REPL output
}
