// Package metrics holds the Prometheus collectors of the pipeline. They are
// served on /metrics by the API and pushed to a Pushgateway after a CLI run.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	// Run metrics
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "featureprep_runs_total",
			Help: "Total number of pipeline runs by final status",
		},
		[]string{"status"},
	)

	LastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "featureprep_last_run_timestamp_seconds",
			Help: "Unix time the last pipeline run finished",
		},
	)

	// Stage metrics
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "featureprep_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	RecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "featureprep_records_total",
			Help: "Records handled per stage and outcome",
		},
		[]string{"stage", "outcome"},
	)

	// Validation metrics
	ValidationViolations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "featureprep_validation_violations_total",
			Help: "Total number of validation violation messages reported",
		},
	)

	// Split metrics
	SplitRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "featureprep_split_rows",
			Help: "Rows assigned per split for the last finalized version",
		},
		[]string{"split"},
	)

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "featureprep_http_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"route", "status"},
	)
)

// Push sends the default registry to a Pushgateway under job.
func Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(prometheus.DefaultGatherer).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
