// Copyright © 2024 The ELPS authors

package cmd

import "github.com/luthersystems/flakes/lint"

// Option configures NewRootCommand.
type Option func(*cmdConfig)

type cmdConfig struct {
	builtins  []string
	analyzers []*lint.Analyzer
}

func newCmdConfig(opts ...Option) *cmdConfig {
	c := &cmdConfig{}
	for _, o := range opts {
		o(c)
	}
	return c
}

// WithBuiltins adds names that are always defined, such as the globals an
// embedding application injects into the scripts it runs. They are merged
// with any builtins from the settings.
func WithBuiltins(names ...string) Option {
	return func(c *cmdConfig) { c.builtins = append(c.builtins, names...) }
}

// WithAnalyzers adds analyzers that run after the selected built-in
// checks.
func WithAnalyzers(analyzers ...*lint.Analyzer) Option {
	return func(c *cmdConfig) { c.analyzers = append(c.analyzers, analyzers...) }
}

// linter builds the linter described by settings and the options.
func (c *cmdConfig) linter(checks, builtins []string) (*lint.Linter, error) {
	analyzers, err := lint.Select(checks)
	if err != nil {
		return nil, usageError(err)
	}
	return &lint.Linter{
		Analyzers: append(analyzers, c.analyzers...),
		Builtins:  append(append([]string(nil), builtins...), c.builtins...),
	}, nil
}
