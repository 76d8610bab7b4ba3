// Copyright © 2024 The ELPS authors

// Package trace annotates checker work with spans. An Annotator wraps a
// tracing backend (OpenTelemetry or OpenCensus); the checker and linter
// call Start around each phase and file they process.
package trace

import (
	"context"
	"fmt"
)

type contextKey string

// ContextTracerKey is the context key carrying the tracer name to use.
const ContextTracerKey contextKey = "flakesTracer"

const defaultTracerName = "flakes"

// Attr is a span attribute.
type Attr struct {
	Key   string
	Value any
}

// String returns a string attribute.
func String(key, value string) Attr { return Attr{Key: key, Value: value} }

// Int returns an integer attribute.
func Int(key string, value int) Attr { return Attr{Key: key, Value: value} }

func (a Attr) String() string {
	return fmt.Sprintf("%s=%v", a.Key, a.Value)
}

// Annotator opens spans. The returned function ends the span; it is never
// nil.
type Annotator interface {
	Start(ctx context.Context, label string, attrs ...Attr) (context.Context, func())
}

// Start opens a span on a, tolerating a nil annotator.
func Start(ctx context.Context, a Annotator, label string, attrs ...Attr) (context.Context, func()) {
	if a == nil {
		return ctx, func() {}
	}
	return a.Start(ctx, label, attrs...)
}

// SkipFilter decides whether a label is traced at all.
type SkipFilter func(label string) bool

// Labeler rewrites span labels.
type Labeler func(label string) string

type config struct {
	tracerName string
	skip       SkipFilter
	labeler    Labeler
}

// Option configures an annotator.
type Option func(*config)

// WithTracerName sets the tracer name used when the context carries none.
func WithTracerName(name string) Option {
	return func(c *config) { c.tracerName = name }
}

// WithSkipFilter drops spans whose label matches.
func WithSkipFilter(fn SkipFilter) Option {
	return func(c *config) { c.skip = fn }
}

// WithLabeler rewrites labels before a span is opened.
func WithLabeler(fn Labeler) Option {
	return func(c *config) { c.labeler = fn }
}

func newConfig(opts ...Option) *config {
	c := &config{tracerName: defaultTracerName}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// label returns the label to trace and whether to trace it.
func (c *config) label(label string) (string, bool) {
	if c.skip != nil && c.skip(label) {
		return "", false
	}
	if c.labeler != nil {
		if l := c.labeler(label); l != "" {
			label = l
		}
	}
	return label, true
}

type noop struct{}

func (noop) Start(ctx context.Context, _ string, _ ...Attr) (context.Context, func()) {
	return ctx, func() {}
}

// Noop is an annotator that records nothing.
var Noop Annotator = noop{}
