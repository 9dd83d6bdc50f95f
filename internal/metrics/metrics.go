// Package metrics exposes verification outcomes as Prometheus metrics.
package metrics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Akanyi/AkayiRawjsonweb/internal/verify"
)

// Recorder collects run outcomes on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	runs        *prometheus.CounterVec
	stepLatency *prometheus.HistogramVec
	lastSuccess prometheus.Gauge
	lastRun     prometheus.Gauge
}

// NewRecorder creates a recorder with a private registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verify_runs_total",
			Help: "Total number of verification runs by outcome",
		}, []string{"outcome", "failed_step"}),
		stepLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "verify_step_duration_seconds",
			Help:    "Verification step latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"step"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "verify_last_run_success",
			Help: "1 if the last verification run passed, 0 otherwise",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "verify_last_run_timestamp_seconds",
			Help: "Unix time the last verification run started",
		}),
	}
	r.registry.MustRegister(r.runs, r.stepLatency, r.lastSuccess, r.lastRun)
	return r
}

// Registry returns the registry the recorder writes to.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Observe records one run.
func (r *Recorder) Observe(res *verify.Result) {
	outcome := "success"
	if !res.Success {
		outcome = "failure"
	}
	r.runs.WithLabelValues(outcome, res.FailedStep).Inc()

	for _, s := range res.Steps {
		r.stepLatency.WithLabelValues(s.Name).Observe(s.Duration.Seconds())
	}

	if res.Success {
		r.lastSuccess.Set(1)
	} else {
		r.lastSuccess.Set(0)
	}
	r.lastRun.Set(float64(res.StartedAt.Unix()))
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

// Sink observes each run and, when path is set, rewrites the textfile.
func (r *Recorder) Sink(path string) verify.Sink {
	return verify.SinkFunc(func(ctx context.Context, res *verify.Result) error {
		r.Observe(res)
		if path == "" {
			return nil
		}
		return r.WriteTextfile(path)
	})
}
