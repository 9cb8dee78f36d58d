package observability

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCounterAndGauge(t *testing.T) {
	r := NewMetricsRegistry()
	c := r.NewCounter("test_total", "test counter")
	g := r.NewGauge("test_gauge", "test gauge")

	c.Inc()
	c.Add(2)
	if got := c.Value(); got != 3 {
		t.Errorf("counter = %v, want 3", got)
	}

	g.Set(10)
	g.Dec()
	if got := g.Value(); got != 9 {
		t.Errorf("gauge = %v, want 9", got)
	}
}

func TestHistogramBuckets(t *testing.T) {
	r := NewMetricsRegistry()
	h := r.NewHistogram("test_seconds", "test histogram", []float64{0.1, 1, 10})

	h.Observe(0.05)
	h.Observe(0.5)
	h.Observe(5)
	h.Observe(50)

	if h.count != 4 {
		t.Errorf("count = %d, want 4", h.count)
	}
	want := []uint64{1, 2, 3}
	for i, w := range want {
		if h.counts[i] != w {
			t.Errorf("bucket %d = %d, want %d", i, h.counts[i], w)
		}
	}
}

func TestRecordQuery(t *testing.T) {
	m := NewFAQMetrics()

	m.RecordQuery(time.Millisecond, false, false)
	m.RecordQuery(time.Millisecond, true, false)
	m.RecordQuery(time.Millisecond, false, true)

	if got := m.QueriesTotal.Value(); got != 3 {
		t.Errorf("queries = %v", got)
	}
	if got := m.AnswersTotal.Value(); got != 1 {
		t.Errorf("answers = %v", got)
	}
	if got := m.RefusalsTotal.Value(); got != 1 {
		t.Errorf("refusals = %v", got)
	}
	if got := m.NoInfoTotal.Value(); got != 1 {
		t.Errorf("no-info = %v", got)
	}
}

func TestPrometheusOutput(t *testing.T) {
	m := NewFAQMetrics()
	m.RecordQuery(10*time.Millisecond, false, false)
	m.RecordIngest(time.Second, 42, 0)
	m.IndexedDocuments.Set(42)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type = %q", ct)
	}
	for _, want := range []string{
		"# TYPE fundfaq_queries_total counter",
		"fundfaq_queries_total 1",
		"fundfaq_indexed_documents 42",
		"fundfaq_ingest_chunks_total 42",
		"fundfaq_query_duration_seconds_count 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("output missing %q", want)
		}
	}
}
