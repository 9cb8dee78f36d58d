package observability

import (
	"net/http"
	"sync"
	"time"
)

// MetricsRegistry holds all registered metrics and renders them in
// Prometheus text format.
type MetricsRegistry struct {
	mu       sync.RWMutex
	counters map[string]*Counter
	gauges   map[string]*Gauge
	histos   map[string]*Histogram
}

// Counter is a monotonically increasing metric.
type Counter struct {
	name  string
	help  string
	value float64
	mu    sync.Mutex
}

// Gauge is a metric that can go up or down.
type Gauge struct {
	name  string
	help  string
	value float64
	mu    sync.Mutex
}

// Histogram tracks the distribution of observed values.
type Histogram struct {
	name    string
	help    string
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
	mu      sync.Mutex
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		counters: make(map[string]*Counter),
		gauges:   make(map[string]*Gauge),
		histos:   make(map[string]*Histogram),
	}
}

// NewCounter creates and registers a counter.
func (r *MetricsRegistry) NewCounter(name, help string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := &Counter{name: name, help: help}
	r.counters[name] = c
	return c
}

// NewGauge creates and registers a gauge.
func (r *MetricsRegistry) NewGauge(name, help string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()
	g := &Gauge{name: name, help: help}
	r.gauges[name] = g
	return g
}

// NewHistogram creates and registers a histogram. Nil buckets use the
// default latency buckets.
func (r *MetricsRegistry) NewHistogram(name, help string, buckets []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()
	if buckets == nil {
		buckets = DefaultBuckets()
	}
	h := &Histogram{
		name:    name,
		help:    help,
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
	r.histos[name] = h
	return h
}

// DefaultBuckets returns latency buckets in seconds.
func DefaultBuckets() []float64 {
	return []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
}

// Inc increments a counter by 1.
func (c *Counter) Inc() { c.Add(1) }

// Add adds a value to the counter.
func (c *Counter) Add(v float64) {
	c.mu.Lock()
	c.value += v
	c.mu.Unlock()
}

// Value returns the counter value.
func (c *Counter) Value() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Set sets the gauge value.
func (g *Gauge) Set(v float64) {
	g.mu.Lock()
	g.value = v
	g.mu.Unlock()
}

// Inc increments the gauge by 1.
func (g *Gauge) Inc() { g.Add(1) }

// Dec decrements the gauge by 1.
func (g *Gauge) Dec() { g.Add(-1) }

// Add adds a value to the gauge.
func (g *Gauge) Add(v float64) {
	g.mu.Lock()
	g.value += v
	g.mu.Unlock()
}

// Value returns the gauge value.
func (g *Gauge) Value() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}

// Observe records a value in the histogram.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sum += v
	h.count++
	for i, bound := range h.buckets {
		if v <= bound {
			h.counts[i]++
		}
	}
}

// ObserveDuration records the seconds elapsed since start.
func (h *Histogram) ObserveDuration(start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

// Handler serves the registry in Prometheus text format.
func (r *MetricsRegistry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		r.WritePrometheus(w)
	})
}

// WritePrometheus writes all metrics in Prometheus text format.
func (r *MetricsRegistry) WritePrometheus(w http.ResponseWriter) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.counters {
		c.mu.Lock()
		writeMetric(w, c.name, "counter", c.help, c.value)
		c.mu.Unlock()
	}
	for _, g := range r.gauges {
		g.mu.Lock()
		writeMetric(w, g.name, "gauge", g.help, g.value)
		g.mu.Unlock()
	}
	for _, h := range r.histos {
		h.mu.Lock()
		writeHistogram(w, h)
		h.mu.Unlock()
	}
}

func writeMetric(w http.ResponseWriter, name, metricType, help string, value float64) {
	w.Write([]byte("# HELP " + name + " " + help + "\n"))
	w.Write([]byte("# TYPE " + name + " " + metricType + "\n"))
	w.Write([]byte(name + " " + formatFloat(value) + "\n"))
}

func writeHistogram(w http.ResponseWriter, h *Histogram) {
	w.Write([]byte("# HELP " + h.name + " " + h.help + "\n"))
	w.Write([]byte("# TYPE " + h.name + " histogram\n"))

	var cumulative uint64
	for i, bound := range h.buckets {
		cumulative += h.counts[i]
		w.Write([]byte(h.name + "_bucket{le=\"" + formatFloat(bound) + "\"} "))
		w.Write([]byte(formatUint(cumulative) + "\n"))
	}
	w.Write([]byte(h.name + "_bucket{le=\"+Inf\"} " + formatUint(h.count) + "\n"))
	w.Write([]byte(h.name + "_sum " + formatFloat(h.sum) + "\n"))
	w.Write([]byte(h.name + "_count " + formatUint(h.count) + "\n"))
}

func formatFloat(v float64) string {
	if v == float64(int64(v)) {
		return formatUint(uint64(v))
	}
	intPart := int64(v)
	fracPart := int64((v - float64(intPart)) * 1000000)
	if fracPart < 0 {
		fracPart = -fracPart
	}
	return formatUint(uint64(intPart)) + "." + padZeros(fracPart, 6)
}

func formatUint(v uint64) string {
	if v == 0 {
		return "0"
	}
	var digits [20]byte
	i := len(digits)
	for v > 0 {
		i--
		digits[i] = byte('0' + v%10)
		v /= 10
	}
	return string(digits[i:])
}

func padZeros(v int64, width int) string {
	s := formatUint(uint64(v))
	for len(s) < width {
		s = "0" + s
	}
	for len(s) > 1 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	return s
}

// FAQMetrics contains the service's metrics.
type FAQMetrics struct {
	Registry *MetricsRegistry

	QueriesTotal  *Counter
	AnswersTotal  *Counter
	RefusalsTotal *Counter
	NoInfoTotal   *Counter
	QueryDuration *Histogram

	LLMRequestsTotal   *Counter
	LLMErrorsTotal     *Counter
	LLMRequestDuration *Histogram

	IngestRunsTotal   *Counter
	IngestChunksTotal *Counter
	IngestFailedSrcs  *Counter
	IngestDuration    *Histogram

	IndexedDocuments *Gauge
}

// NewFAQMetrics creates the service metrics.
func NewFAQMetrics() *FAQMetrics {
	r := NewMetricsRegistry()
	return &FAQMetrics{
		Registry: r,

		QueriesTotal:  r.NewCounter("fundfaq_queries_total", "Total queries received"),
		AnswersTotal:  r.NewCounter("fundfaq_answers_total", "Total grounded answers produced"),
		RefusalsTotal: r.NewCounter("fundfaq_refusals_total", "Total queries refused as advice seeking"),
		NoInfoTotal:   r.NewCounter("fundfaq_no_info_total", "Total queries with no relevant documents"),
		QueryDuration: r.NewHistogram("fundfaq_query_duration_seconds", "End-to-end query latency", nil),

		LLMRequestsTotal:   r.NewCounter("fundfaq_llm_requests_total", "Total LLM API requests"),
		LLMErrorsTotal:     r.NewCounter("fundfaq_llm_errors_total", "Total LLM errors"),
		LLMRequestDuration: r.NewHistogram("fundfaq_llm_request_duration_seconds", "LLM request duration", nil),

		IngestRunsTotal:   r.NewCounter("fundfaq_ingest_runs_total", "Total ingestion runs"),
		IngestChunksTotal: r.NewCounter("fundfaq_ingest_chunks_total", "Total chunks indexed"),
		IngestFailedSrcs:  r.NewCounter("fundfaq_ingest_failed_sources_total", "Total sources that failed to ingest"),
		IngestDuration:    r.NewHistogram("fundfaq_ingest_duration_seconds", "Ingestion run duration", []float64{1, 5, 10, 30, 60, 120, 300, 600}),

		IndexedDocuments: r.NewGauge("fundfaq_indexed_documents", "Documents currently in the index"),
	}
}

// RecordQuery records one completed query.
func (m *FAQMetrics) RecordQuery(duration time.Duration, refused, noInfo bool) {
	m.QueriesTotal.Inc()
	m.QueryDuration.Observe(duration.Seconds())
	switch {
	case refused:
		m.RefusalsTotal.Inc()
	case noInfo:
		m.NoInfoTotal.Inc()
	default:
		m.AnswersTotal.Inc()
	}
}

// RecordIngest records one ingestion run.
func (m *FAQMetrics) RecordIngest(duration time.Duration, chunks, failedSources int) {
	m.IngestRunsTotal.Inc()
	m.IngestDuration.Observe(duration.Seconds())
	m.IngestChunksTotal.Add(float64(chunks))
	m.IngestFailedSrcs.Add(float64(failedSources))
}

// Handler returns the metrics HTTP handler.
func (m *FAQMetrics) Handler() http.Handler {
	return m.Registry.Handler()
}

var (
	globalMetrics *FAQMetrics
	metricsOnce   sync.Once
)

// Metrics returns the process-wide metrics instance.
func Metrics() *FAQMetrics {
	metricsOnce.Do(func() {
		globalMetrics = NewFAQMetrics()
	})
	return globalMetrics
}
