package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "airquality"

// Metrics holds the Prometheus collectors for the ingestion, aggregation
// and alerting jobs.
type Metrics struct {
	// Ingestion.
	ReadingsWritten   *prometheus.CounterVec // labels: provider, outcome={saved,duplicate,error}
	CandidatesDropped *prometheus.CounterVec // labels: provider, reason={unresolved,unknown_pollutant,invalid}
	ProviderFailures  *prometheus.CounterVec // labels: provider, stage={fetch,normalize,write}
	ProviderDuration  *prometheus.HistogramVec

	// Aggregation.
	DailyStatsWritten *prometheus.CounterVec // labels: outcome={created,updated,error}

	// Alerting.
	AlertEvaluations *prometheus.CounterVec // labels: outcome={notified,suppressed,not_met,stale,invalid,failed,error}
	Notifications    *prometheus.CounterVec // labels: channel, outcome={success,error}

	// Scheduler.
	JobRuns     *prometheus.CounterVec // labels: job, outcome={success,error,skipped}
	JobDuration *prometheus.HistogramVec
	JobRunning  *prometheus.GaugeVec
}

func newMetrics() *Metrics {
	return &Metrics{
		ReadingsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_written_total",
			Help:      "Readings submitted to the store by provider and outcome.",
		}, []string{"provider", "outcome"}),
		CandidatesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_dropped_total",
			Help:      "Reading candidates dropped before storage.",
		}, []string{"provider", "reason"}),
		ProviderFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_failures_total",
			Help:      "Provider batches that failed, by stage.",
		}, []string{"provider", "stage"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_batch_duration_seconds",
			Help:      "Duration of one provider's fetch, normalize and write cycle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"provider"}),
		DailyStatsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "daily_stats_written_total",
			Help:      "Daily statistic rows written by outcome.",
		}, []string{"outcome"}),
		AlertEvaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_evaluations_total",
			Help:      "Alert evaluations by outcome.",
		}, []string{"outcome"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification attempts by channel and outcome.",
		}, []string{"channel", "outcome"}),
		JobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Scheduled job invocations by outcome.",
		}, []string{"job", "outcome"}),
		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of scheduled job runs.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300},
		}, []string{"job"}),
		JobRunning: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "job_running",
			Help:      "1 while a job is running, 0 otherwise.",
		}, []string{"job"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.ReadingsWritten,
		m.CandidatesDropped,
		m.ProviderFailures,
		m.ProviderDuration,
		m.DailyStatsWritten,
		m.AlertEvaluations,
		m.Notifications,
		m.JobRuns,
		m.JobDuration,
		m.JobRunning,
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, so
// tests can build as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
