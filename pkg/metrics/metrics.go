package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Scheduler loop metrics
	SchedulerLoopDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "resobserver_scheduler_loop_duration_seconds",
			Help:    "Time taken to run every enabled observer once",
			Buckets: prometheus.DefBuckets,
		},
	)

	SchedulerLoopsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "resobserver_scheduler_loops_total",
			Help: "Total number of completed scheduler loop iterations",
		},
	)

	ObserversUnhealthyTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "resobserver_observers_unhealthy",
			Help: "Number of observers currently marked unhealthy and skipped",
		},
	)

	// Per-observer metrics
	ObserverRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resobserver_observer_run_duration_seconds",
			Help:    "Time taken by a single observer's Observe+Report cycle",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"observer"},
	)

	ObserverRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resobserver_observer_runs_total",
			Help: "Total number of observer runs by outcome",
		},
		[]string{"observer", "outcome"},
	)

	ObserverTimeoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resobserver_observer_timeouts_total",
			Help: "Total number of observer runs that exceeded their timeout",
		},
		[]string{"observer"},
	)

	// Evaluation pipeline metrics
	EvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resobserver_evaluations_total",
			Help: "Total number of threshold evaluations by metric and resulting health state",
		},
		[]string{"metric", "state"},
	)

	StateTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resobserver_state_transitions_total",
			Help: "Total number of health state transitions by correlation code",
		},
		[]string{"code"},
	)

	// Health report sink metrics
	ReportsEmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resobserver_reports_emitted_total",
			Help: "Total number of health reports emitted by sink",
		},
		[]string{"sink"},
	)

	SinkErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resobserver_sink_errors_total",
			Help: "Total number of sink write failures (never propagated to the scheduler)",
		},
		[]string{"sink"},
	)

	// Cluster query client metrics
	ClusterQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resobserver_cluster_query_duration_seconds",
			Help:    "Time taken by cluster query RPCs",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	ClusterQueryErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resobserver_cluster_query_errors_total",
			Help: "Total number of cluster query RPC failures after retry exhaustion",
		},
		[]string{"method"},
	)

	ClusterQueryRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resobserver_cluster_query_retries_total",
			Help: "Total number of cluster query retry attempts",
		},
		[]string{"method"},
	)

	// Dump writer metrics
	DumpsWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resobserver_dumps_written_total",
			Help: "Total number of process dumps written by kind",
		},
		[]string{"kind"},
	)

	DumpsSuppressedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resobserver_dumps_suppressed_total",
			Help: "Total number of dump requests suppressed by budget or disk guard",
		},
		[]string{"reason"},
	)

	// Config reload metrics
	ConfigReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resobserver_config_reloads_total",
			Help: "Total number of configuration file reloads by file and outcome",
		},
		[]string{"file", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(SchedulerLoopDuration)
	prometheus.MustRegister(SchedulerLoopsTotal)
	prometheus.MustRegister(ObserversUnhealthyTotal)
	prometheus.MustRegister(ObserverRunDuration)
	prometheus.MustRegister(ObserverRunsTotal)
	prometheus.MustRegister(ObserverTimeoutsTotal)
	prometheus.MustRegister(EvaluationsTotal)
	prometheus.MustRegister(StateTransitionsTotal)
	prometheus.MustRegister(ReportsEmittedTotal)
	prometheus.MustRegister(SinkErrorsTotal)
	prometheus.MustRegister(ClusterQueryDuration)
	prometheus.MustRegister(ClusterQueryErrorsTotal)
	prometheus.MustRegister(ClusterQueryRetriesTotal)
	prometheus.MustRegister(DumpsWrittenTotal)
	prometheus.MustRegister(DumpsSuppressedTotal)
	prometheus.MustRegister(ConfigReloadsTotal)
}

// Handler returns the Prometheus HTTP handler for the agent's own /metrics
// endpoint (spec.md §6, C14). This never serves workload metrics collected
// by the observers themselves, only the agent's operational health.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
