package metrics

import "github.com/prometheus/client_golang/prometheus"

// PipelineMetrics exposes counters/histograms for upstream calls and report runs.
type PipelineMetrics struct {
	upstreamTotal   *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	upstreamRetries *prometheus.CounterVec
	droppedRecords  *prometheus.CounterVec
	blockedRemoved  *prometheus.CounterVec
	reportDuration  *prometheus.HistogramVec
	reportsTotal    *prometheus.CounterVec
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		upstreamTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "occupancy",
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Total scheduling API requests",
		}, []string{"endpoint", "status"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "occupancy",
			Subsystem: "upstream",
			Name:      "request_seconds",
			Help:      "Latency of scheduling API requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		upstreamRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "occupancy",
			Subsystem: "upstream",
			Name:      "retries_total",
			Help:      "Retried scheduling API requests",
		}, []string{"endpoint"}),
		droppedRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "occupancy",
			Subsystem: "pipeline",
			Name:      "dropped_records_total",
			Help:      "Records dropped during normalization and resolution",
		}, []string{"reason"}),
		blockedRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "occupancy",
			Subsystem: "pipeline",
			Name:      "blocked_removed_total",
			Help:      "Records removed by schedule blocks",
		}, []string{"origin"}),
		reportDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "occupancy",
			Subsystem: "report",
			Name:      "duration_seconds",
			Help:      "Time to assemble an occupancy report",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"type"}),
		reportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "occupancy",
			Subsystem: "report",
			Name:      "runs_total",
			Help:      "Report runs by outcome",
		}, []string{"type", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.upstreamTotal,
		m.upstreamLatency,
		m.upstreamRetries,
		m.droppedRecords,
		m.blockedRemoved,
		m.reportDuration,
		m.reportsTotal,
	)
	return m
}

// ObserveUpstream records one completed request. status 0 means a transport failure.
func (m *PipelineMetrics) ObserveUpstream(endpoint string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.upstreamTotal.WithLabelValues(endpoint, statusLabel(status)).Inc()
	m.upstreamLatency.WithLabelValues(endpoint).Observe(seconds)
}

func (m *PipelineMetrics) ObserveUpstreamRetry(endpoint string) {
	if m == nil {
		return
	}
	m.upstreamRetries.WithLabelValues(endpoint).Inc()
}

func (m *PipelineMetrics) ObserveDropped(reason string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.droppedRecords.WithLabelValues(reason).Add(float64(count))
}

func (m *PipelineMetrics) ObserveBlocked(origin string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.blockedRemoved.WithLabelValues(origin).Add(float64(count))
}

func (m *PipelineMetrics) ObserveReport(reportType, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.reportDuration.WithLabelValues(reportType).Observe(seconds)
	m.reportsTotal.WithLabelValues(reportType, outcome).Inc()
}

func statusLabel(status int) string {
	switch {
	case status <= 0:
		return "error"
	case status < 300:
		return "2xx"
	case status < 500:
		if status == 429 {
			return "429"
		}
		return "4xx"
	default:
		return "5xx"
	}
}
