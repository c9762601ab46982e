package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Fetch outcomes recorded by RecordFetch.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics exposes Prometheus collectors for the sync jobs.
type Metrics struct {
	runs      *prometheus.CounterVec
	failures  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	fetches   *prometheus.CounterVec
	checkouts prometheus.Counter
	batches   prometheus.Counter
	upserts   *prometheus.CounterVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against the provided registerer. When the
// registerer is nil the default Prometheus registerer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker provides lifecycle instrumentation helpers for a single job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track spawns a tracker for the given job name.
func (m *Metrics) Track(job string) *Tracker {
	if m == nil {
		return &Tracker{job: job, start: time.Now()}
	}
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End finalises the tracker, recording duration, success/failure counts and
// returning the provided error untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		t.metrics.failures.WithLabelValues(t.job).Inc()
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// RecordFetch counts one availability lookup with the given outcome.
func (m *Metrics) RecordFetch(outcome string) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(outcome).Inc()
}

// AddCheckouts increments the inferred checkout counter.
func (m *Metrics) AddCheckouts(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.checkouts.Add(float64(count))
}

// BatchCommitted counts one persisted inventory batch.
func (m *Metrics) BatchCommitted() {
	if m == nil {
		return
	}
	m.batches.Inc()
}

// AddUpserts counts rows written by a job.
func (m *Metrics) AddUpserts(job string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.upserts.WithLabelValues(job).Add(float64(count))
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shelfwatch_jobs_total",
		Help: "Total job executions partitioned by job name and status.",
	}, []string{"job_name", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shelfwatch_jobs_failures_total",
		Help: "Total failures observed for sync jobs.",
	}, []string{"job_name"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shelfwatch_job_duration_seconds",
		Help:    "Duration in seconds of sync job executions.",
		Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600},
	}, []string{"job_name"})
	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shelfwatch_inventory_fetches_total",
		Help: "Availability lookups partitioned by outcome.",
	}, []string{"outcome"})
	checkouts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shelfwatch_checkouts_inferred_total",
		Help: "Checkout events inferred from availability decreases.",
	})
	batches := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shelfwatch_inventory_batches_total",
		Help: "Inventory batches committed to the store.",
	})
	upserts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shelfwatch_rows_written_total",
		Help: "Rows upserted or updated per job.",
	}, []string{"job_name"})
	registerer.MustRegister(runs, failures, duration, fetches, checkouts, batches, upserts)
	return &Metrics{
		runs:      runs,
		failures:  failures,
		duration:  duration,
		fetches:   fetches,
		checkouts: checkouts,
		batches:   batches,
		upserts:   upserts,
	}
}
