package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthEndpoint(t *testing.T) {
	s := NewHealthServer(&HealthConfig{Version: "0.1.0"})
	s.RegisterCheck("vector-store", VectorStoreHealthChecker(func(ctx context.Context) error {
		return nil
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != HealthStatusHealthy {
		t.Errorf("status = %s", resp.Status)
	}
	if resp.Version != "0.1.0" {
		t.Errorf("version = %q", resp.Version)
	}
	if len(resp.Checks) != 1 || resp.Checks[0].Name != "vector-store" {
		t.Errorf("checks = %+v", resp.Checks)
	}
}

func TestHealthEndpoint_UnhealthyCheck(t *testing.T) {
	s := NewHealthServer(nil)
	s.RegisterCheck("vector-store", VectorStoreHealthChecker(func(ctx context.Context) error {
		return errors.New("connection refused")
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestHealthEndpoint_DegradedCatalog(t *testing.T) {
	s := NewHealthServer(nil)
	s.RegisterCheck("catalog", CatalogHealthChecker(func(ctx context.Context) error {
		return errors.New("neo4j down")
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	// degraded still serves traffic
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp HealthResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Status != HealthStatusDegraded {
		t.Errorf("status = %s, want degraded", resp.Status)
	}
}

func TestReadyEndpoint_TracksReadiness(t *testing.T) {
	s := NewHealthServer(nil)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("initial ready status = %d, want 503", rec.Code)
	}

	ready := false
	s.SetReadiness(func() bool { return ready })

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("not-ready status = %d, want 503", rec.Code)
	}

	ready = true
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("ready status = %d, want 200", rec.Code)
	}
}

func TestLiveEndpoint(t *testing.T) {
	s := NewHealthServer(nil)

	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("live status = %d", rec.Code)
	}

	s.SetLive(false)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("not-live status = %d, want 503", rec.Code)
	}
}
