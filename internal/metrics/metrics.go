// Package metrics exports the outcome of a backup run in the Prometheus
// textfile format, for node_exporter's textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"bckt-go/internal/bckt"
	"bckt-go/internal/model"
)

// Recorder holds the gauges describing the latest run.
type Recorder struct {
	registry *prometheus.Registry

	runTimestamp   prometheus.Gauge
	runDuration    prometheus.Gauge
	runFailures    prometheus.Gauge
	runPushed      prometheus.Gauge
	outcomes       *prometheus.GaugeVec
	targetOutcome  *prometheus.GaugeVec
	archiveSize    *prometheus.GaugeVec
	agedDeleted    *prometheus.GaugeVec
	targetFailures *prometheus.GaugeVec
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bckt_run_finished_timestamp_seconds",
			Help: "Unix time the latest run finished",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bckt_run_duration_seconds",
			Help: "Wall time of the latest run",
		}),
		runFailures: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bckt_run_failures",
			Help: "Targets whose archive or push step failed in the latest run",
		}),
		runPushed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bckt_run_pushed",
			Help: "Archives uploaded in the latest run",
		}),
		outcomes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bckt_run_targets",
			Help: "Targets per outcome in the latest run",
		}, []string{"outcome"}),
		targetOutcome: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bckt_target_outcome",
			Help: "1 for the outcome and reason of each target in the latest run",
		}, []string{"target", "outcome", "reason"}),
		archiveSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bckt_target_archive_size_bytes",
			Help: "Size of the archive created for the target in the latest run",
		}, []string{"target"}),
		agedDeleted: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bckt_target_aged_deleted",
			Help: "Aged remote objects deleted for the target in the latest run",
		}, []string{"target"}),
		targetFailures: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bckt_target_failed",
			Help: "1 when the target's archive or push step failed in the latest run",
		}, []string{"target", "step"}),
	}

	r.registry.MustRegister(r.runTimestamp, r.runDuration, r.runFailures, r.runPushed,
		r.outcomes, r.targetOutcome, r.archiveSize, r.agedDeleted, r.targetFailures)
	return r
}

// Registry returns the registry holding the run gauges.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Observe replaces the gauges with the results of summary.
func (r *Recorder) Observe(summary *bckt.RunSummary) {
	r.outcomes.Reset()
	r.targetOutcome.Reset()
	r.archiveSize.Reset()
	r.agedDeleted.Reset()
	r.targetFailures.Reset()

	r.runTimestamp.Set(float64(summary.FinishedAt.Unix()))
	r.runDuration.Set(summary.FinishedAt.Sub(summary.StartedAt).Seconds())
	r.runFailures.Set(float64(summary.Failures))
	r.runPushed.Set(float64(summary.Pushed))

	for _, o := range model.Outcomes {
		r.outcomes.WithLabelValues(string(o)).Set(float64(summary.Counts[o]))
	}

	for _, res := range summary.Results {
		r.targetOutcome.WithLabelValues(res.Target, string(res.Outcome), string(res.Reason)).Set(1)
		r.archiveSize.WithLabelValues(res.Target).Set(float64(res.SizeKB * 1024))
		r.agedDeleted.WithLabelValues(res.Target).Set(float64(res.AgedDeleted))
		r.targetFailures.WithLabelValues(res.Target, "archive").Set(boolGauge(res.Error != ""))
		r.targetFailures.WithLabelValues(res.Target, "push").Set(boolGauge(res.PushError != ""))
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// WriteTextfile writes the gauges to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
