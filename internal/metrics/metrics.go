package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry        *prometheus.Registry
	claims          *prometheus.CounterVec
	actions         *prometheus.CounterVec
	taskDuration    prometheus.Histogram
	runDuration     *prometheus.HistogramVec
	tasksIncomplete *prometheus.CounterVec
	dlqSinkError    prometheus.Counter
	lastRunNanos    atomic.Int64
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	claims := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "submitguard_claims_total",
		Help: "Claim attempts by store and outcome",
	}, []string{"store", "outcome"})

	actions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "submitguard_actions_total",
		Help: "Guarded action executions by store and outcome",
	}, []string{"store", "outcome"})

	taskDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "submitguard_task_duration_seconds",
		Help:    "Duration of a single dispatched task in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	})

	runDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "submitguard_run_duration_seconds",
		Help:    "Duration of a workload run in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"store"})

	tasksIncomplete := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "submitguard_tasks_incomplete_total",
		Help: "Tasks still running when a workload run stopped waiting",
	}, []string{"store"})

	dlqSinkError := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "submitguard_dlq_sink_error_total",
		Help: "Total number of dead-letter sink publish failures",
	})

	reg.MustRegister(claims, actions, taskDuration, runDuration, tasksIncomplete, dlqSinkError)

	return &Metrics{
		registry:        reg,
		claims:          claims,
		actions:         actions,
		taskDuration:    taskDuration,
		runDuration:     runDuration,
		tasksIncomplete: tasksIncomplete,
		dlqSinkError:    dlqSinkError,
	}
}

func (m *Metrics) RecordClaim(store, outcome string) {
	m.claims.WithLabelValues(store, outcome).Inc()
}

func (m *Metrics) RecordAction(store, outcome string) {
	m.actions.WithLabelValues(store, outcome).Inc()
}

func (m *Metrics) RecordTaskDuration(seconds float64) {
	m.taskDuration.Observe(seconds)
}

func (m *Metrics) RecordRun(store string, total, completed int, seconds float64) {
	m.runDuration.WithLabelValues(store).Observe(seconds)
	if missing := total - completed; missing > 0 {
		m.tasksIncomplete.WithLabelValues(store).Add(float64(missing))
	}
	m.lastRunNanos.Store(time.Now().UnixNano())
}

func (m *Metrics) RecordDLQSinkError() {
	m.dlqSinkError.Inc()
}

// LastRunTime is the zero time until the first run is recorded.
func (m *Metrics) LastRunTime() time.Time {
	n := m.lastRunNanos.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
