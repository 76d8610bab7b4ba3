// Copyright © 2024 The ELPS authors

// Package watch re-runs a callback when Python files under a set of
// directories change. Bursts of events are debounced into one call.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/luthersystems/flakes/metrics"
	"github.com/luthersystems/flakes/runner"
)

// DefaultDebounce is used when Options.Debounce is zero.
const DefaultDebounce = 200 * time.Millisecond

// Options configure a Watcher. OnChange is required.
type Options struct {
	Debounce time.Duration
	Excludes *runner.Excludes
	Metrics  *metrics.Metrics
	Logger   *slog.Logger

	// OnChange receives the sorted, de-duplicated paths changed since the
	// previous call. Calls never overlap.
	OnChange func(ctx context.Context, paths []string)
}

// Watcher watches directory trees for Python file changes.
type Watcher struct {
	fsw  *fsnotify.Watcher
	opts Options

	callbackMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]struct{}
	timer     *time.Timer
}

// New creates a watcher. Call Add, then Run.
func New(opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Watcher{fsw: fsw, opts: opts, pending: make(map[string]struct{})}, nil
}

// Add watches each root directory and every non-excluded directory below
// it. A file root watches its parent directory.
func (w *Watcher) Add(roots ...string) error {
	for _, root := range roots {
		fi, err := os.Stat(root)
		if err != nil {
			return err
		}
		if !fi.IsDir() {
			if err := w.fsw.Add(filepath.Dir(root)); err != nil {
				return err
			}
			continue
		}
		if err := w.watchRecursive(root); err != nil {
			return err
		}
	}
	return nil
}

// WatchList returns the watched directories.
func (w *Watcher) WatchList() []string {
	list := w.fsw.WatchList()
	sort.Strings(list)
	return list
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.opts.Excludes.Match(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// Run processes events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.Close() //nolint:errcheck // shutdown path
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.opts.Logger.ErrorContext(ctx, "watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	w.opts.Metrics.ObserveWatchEvent()
	if event.Has(fsnotify.Create) {
		if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
			if w.opts.Excludes.Match(event.Name) {
				return
			}
			if err := w.watchRecursive(event.Name); err != nil {
				w.opts.Logger.WarnContext(ctx, "failed to watch new directory", "path", event.Name, "error", err)
				return
			}
			w.enqueueExisting(ctx, event.Name)
			return
		}
	}
	if !runner.IsPython(event.Name) || w.opts.Excludes.Match(event.Name) {
		return
	}
	if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.scheduleChange(ctx, event.Name)
	}
}

func (w *Watcher) enqueueExisting(ctx context.Context, root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if runner.IsPython(path) && !w.opts.Excludes.Match(path) {
			w.scheduleChange(ctx, path)
		}
		return nil
	})
}

func (w *Watcher) scheduleChange(ctx context.Context, path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.opts.Debounce, func() {
		w.flushChanges(ctx)
	})
}

func (w *Watcher) flushChanges(ctx context.Context) {
	w.pendingMu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	if len(paths) == 0 || ctx.Err() != nil {
		return
	}
	sort.Strings(paths)

	w.callbackMu.Lock()
	defer w.callbackMu.Unlock()
	done := w.opts.Metrics.TrackRun()
	defer done()
	w.opts.OnChange(ctx, paths)
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	return w.fsw.Close()
}
