// Package metrics exposes Prometheus instrumentation for a checker run.
// Collectors are always recorded regardless of whether an HTTP endpoint
// is exposed; Serve is purely optional and wiring it in never changes
// the outcome of a run, only what an operator can observe about it.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors groups the counters and histograms one run updates.
type Collectors struct {
	registry *prometheus.Registry

	inodesChecked   prometheus.Counter
	zonesReconciled prometheus.Counter
	repairsApplied  prometheus.Counter
	errorsFound     prometheus.Counter
	runDuration     prometheus.Histogram
}

// New builds a fresh, independently-registered Collectors so concurrent
// runs (or repeated runs in one process, as in tests) never collide on
// the default global registry.
func New() *Collectors {
	reg := prometheus.NewRegistry()
	return &Collectors{
		registry: reg,
		inodesChecked: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "mfsck",
			Name:      "inodes_checked_total",
			Help:      "Inodes visited during directory traversal.",
		}),
		zonesReconciled: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "mfsck",
			Name:      "zones_reconciled_total",
			Help:      "Zones compared against the allocation bitmap during reconciliation.",
		}),
		repairsApplied: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "mfsck",
			Name:      "repairs_applied_total",
			Help:      "Operator prompts answered yes and applied to the image.",
		}),
		errorsFound: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "mfsck",
			Name:      "errors_found_total",
			Help:      "Inconsistencies observed, repaired or not.",
		}),
		runDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: "mfsck",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of a complete check-and-repair run.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}
}

func (c *Collectors) IncInodesChecked()   { c.inodesChecked.Inc() }
func (c *Collectors) IncZonesReconciled() { c.zonesReconciled.Inc() }
func (c *Collectors) IncRepairsApplied()  { c.repairsApplied.Inc() }
func (c *Collectors) IncErrorsFound()     { c.errorsFound.Inc() }

// ObserveDuration records the wall-clock length of a run that started at
// start.
func (c *Collectors) ObserveDuration(start time.Time) {
	c.runDuration.Observe(time.Since(start).Seconds())
}

// Server exposes Collectors over HTTP, independent of the core checker.
type Server struct {
	http *http.Server
}

// Serve starts a background HTTP listener on addr exposing /metrics for
// this Collectors set. It never blocks the caller and never touches
// checker state; a listener failure is reported to the returned channel
// rather than aborting the run.
func (c *Collectors) Serve(addr string) (*Server, <-chan error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}
	errCh := make(chan error, 1)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics listener: %w", err)
			return
		}
		errCh <- nil
	}()

	return &Server{http: srv}, errCh
}

// Close shuts the metrics listener down.
func (s *Server) Close(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
