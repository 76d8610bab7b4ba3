// Copyright © 2024 The ELPS authors

// Package metrics instruments lint runs with Prometheus collectors.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// File results recorded by ObserveFile.
const (
	ResultClean    = "clean"
	ResultFindings = "findings"
	ResultError    = "error"
)

// Metrics holds the collectors for one process. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	FilesChecked    *prometheus.CounterVec
	Diagnostics     *prometheus.CounterVec
	CacheLookups    *prometheus.CounterVec
	CheckDuration   prometheus.Histogram
	WatchEvents     prometheus.Counter
	WatchRunsActive prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		FilesChecked: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flakes_files_checked_total",
			Help: "Total number of files checked, by result.",
		}, []string{"result"}),
		Diagnostics: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flakes_diagnostics_total",
			Help: "Total number of diagnostics reported, by check.",
		}, []string{"check"}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flakes_cache_lookups_total",
			Help: "Total number of result cache lookups, by outcome.",
		}, []string{"outcome"}),
		CheckDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "flakes_check_seconds",
			Help:    "Time spent parsing and checking a single file.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		WatchEvents: f.NewCounter(prometheus.CounterOpts{
			Name: "flakes_watch_events_total",
			Help: "Total number of file system events received by the watcher.",
		}),
		WatchRunsActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "flakes_watch_runs_active",
			Help: "Number of watcher-triggered lint runs in progress.",
		}),
	}
}

// ObserveFile records one checked file.
func (m *Metrics) ObserveFile(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.FilesChecked.WithLabelValues(result).Inc()
	m.CheckDuration.Observe(elapsed.Seconds())
}

// ObserveDiagnostic records a diagnostic from the named check.
func (m *Metrics) ObserveDiagnostic(check string) {
	if m == nil {
		return
	}
	m.Diagnostics.WithLabelValues(check).Inc()
}

// ObserveCache records a cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.CacheLookups.WithLabelValues(outcome).Inc()
}

// ObserveWatchEvent records a file system event.
func (m *Metrics) ObserveWatchEvent() {
	if m == nil {
		return
	}
	m.WatchEvents.Inc()
}

// TrackRun marks a watcher run as active until the returned function is
// called.
func (m *Metrics) TrackRun() func() {
	if m == nil {
		return func() {}
	}
	m.WatchRunsActive.Inc()
	return m.WatchRunsActive.Dec
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// WriteTextfile writes the registry to path for the node exporter's
// textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}

// Server exposes /metrics over HTTP.
type Server struct {
	addr    string
	metrics *Metrics
	server  *http.Server
}

// NewServer returns a server for m listening on addr.
func NewServer(addr string, m *Metrics) *Server {
	return &Server{addr: addr, metrics: m}
}

// Start begins serving in the background.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.InfoContext(ctx, "metrics server starting", "addr", s.addr)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "error", err)
		}
	}()
	return nil
}

// Stop shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
