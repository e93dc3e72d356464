package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	urbanAnalysis = "urban_analysis"

	// Job metrics
	jobsSubmittedTotal = "jobs_submitted_total"
	jobsCompletedTotal = "jobs_completed_total"
	jobDurationSeconds = "job_duration_seconds"

	// Labels
	jobTypeLabel   = "type"
	jobStatusLabel = "status"
)

var jobsSubmittedLabels = []string{
	jobTypeLabel,
}

var jobsCompletedLabels = []string{
	jobTypeLabel,
	jobStatusLabel,
}

/**
* Metrics definition
**/
var jobsSubmittedTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: urbanAnalysis,
		Name:      jobsSubmittedTotal,
		Help:      "number of analysis jobs submitted",
	},
	jobsSubmittedLabels,
)

var jobsCompletedTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: urbanAnalysis,
		Name:      jobsCompletedTotal,
		Help:      "number of analysis jobs reaching a terminal state",
	},
	jobsCompletedLabels,
)

var jobDurationSecondsMetric = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Subsystem: urbanAnalysis,
		Name:      jobDurationSeconds,
		Help:      "time spent computing an analysis job",
		Buckets:   []float64{10, 30, 60, 120, 300, 600, 900},
	},
	jobsSubmittedLabels,
)

func IncreaseJobsSubmittedTotalMetric(jobType string) {
	labels := prometheus.Labels{
		jobTypeLabel: jobType,
	}
	jobsSubmittedTotalMetric.With(labels).Inc()
}

func IncreaseJobsCompletedTotalMetric(jobType string, status string) {
	labels := prometheus.Labels{
		jobTypeLabel:   jobType,
		jobStatusLabel: status,
	}
	jobsCompletedTotalMetric.With(labels).Inc()
}

func ObserveJobDurationMetric(jobType string, d time.Duration) {
	labels := prometheus.Labels{
		jobTypeLabel: jobType,
	}
	jobDurationSecondsMetric.With(labels).Observe(d.Seconds())
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(jobsSubmittedTotalMetric)
	prometheus.MustRegister(jobsCompletedTotalMetric)
	prometheus.MustRegister(jobDurationSecondsMetric)
}
