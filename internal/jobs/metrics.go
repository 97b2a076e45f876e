package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for report runs.
type Metrics struct {
	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	rows     *prometheus.CounterVec
	units    *prometheus.GaugeVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the run metrics against the provided registerer. When the
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

// Tracker provides lifecycle instrumentation helpers for a single run.
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

// RowCounts is the size of each sheet in a finished report.
type RowCounts struct {
	Summary   int
	Breakdown int
	Serials   int
}

// ObserveReport records sheet sizes and the latest unit totals for a vendor.
func (m *Metrics) ObserveReport(vendor string, rows RowCounts, sellThru, warehouse int64) {
	if m == nil {
		return
	}
	m.rows.WithLabelValues(vendor, "summary").Add(float64(rows.Summary))
	m.rows.WithLabelValues(vendor, "sales_breakdown").Add(float64(rows.Breakdown))
	m.rows.WithLabelValues(vendor, "imei").Add(float64(rows.Serials))
	m.units.WithLabelValues(vendor, "sell_thru").Set(float64(sellThru))
	m.units.WithLabelValues(vendor, "warehouse").Set(float64(warehouse))
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sellthru_jobs_total",
		Help: "Total report runs partitioned by job name and status.",
	}, []string{"job", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sellthru_jobs_failures_total",
		Help: "Total failures observed for report runs.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sellthru_job_duration_seconds",
		Help:    "Duration in seconds of report runs.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sellthru_report_rows_total",
		Help: "Rows written to report sheets grouped by vendor and sheet.",
	}, []string{"vendor", "sheet"})
	units := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sellthru_report_units",
		Help: "Unit totals of the most recent report per vendor.",
	}, []string{"vendor", "measure"})
	registerer.MustRegister(runs, failures, duration, rows, units)
	return &Metrics{runs: runs, failures: failures, duration: duration, rows: rows, units: units}
}
