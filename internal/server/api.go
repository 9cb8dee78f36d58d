// Package server provides the HTTP API, health endpoints, and graceful
// shutdown handling.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fundfaq/fundfaq/internal/agents/classifier"
	"github.com/fundfaq/fundfaq/internal/agents/generator"
	"github.com/fundfaq/fundfaq/internal/catalog"
	"github.com/fundfaq/fundfaq/internal/index"
	"github.com/fundfaq/fundfaq/internal/ingest"
	"github.com/fundfaq/fundfaq/internal/observability"
	"github.com/fundfaq/fundfaq/internal/pipeline"
)

// Query length bounds, in characters.
const (
	MinQueryLen = 1
	MaxQueryLen = 500
)

// ChatRequest is the POST /api/chat body.
type ChatRequest struct {
	Query string `json:"query"`
}

// ChatResponse is the answer payload.
type ChatResponse struct {
	Query          string  `json:"query"`
	Answer         string  `json:"answer"`
	Citation       *string `json:"citation"`
	Classification string  `json:"classification"`
}

// ErrorResponse carries an API error message.
type ErrorResponse struct {
	Error string `json:"error"`
}

// IngestRequest is the POST /api/ingest body.
type IngestRequest struct {
	Reset bool `json:"reset"`
}

// APIServer serves the FAQ endpoints.
type APIServer struct {
	orchestrator *pipeline.Orchestrator
	ingest       *ingest.Service
	store        *index.Store
	catalog      catalog.Repository
	metrics      *observability.FAQMetrics
	audit        *observability.AuditLogger
	collection   string
	location     string
	logger       *slog.Logger
}

// NewAPIServer wires the API handlers.
func NewAPIServer(orch *pipeline.Orchestrator, ing *ingest.Service, store *index.Store, cat catalog.Repository, metrics *observability.FAQMetrics, audit *observability.AuditLogger, collection, location string, logger *slog.Logger) *APIServer {
	if cat == nil {
		cat = catalog.NoopRepository{}
	}
	if metrics == nil {
		metrics = observability.Metrics()
	}
	if audit == nil {
		audit = observability.NewDisabledAuditLogger()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &APIServer{
		orchestrator: orch,
		ingest:       ing,
		store:        store,
		catalog:      cat,
		metrics:      metrics,
		audit:        audit,
		collection:   collection,
		location:     location,
		logger:       logger,
	}
}

// Handler returns the API routes.
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/sources", s.handleSources)
	mux.HandleFunc("POST /api/ingest", s.handleIngest)
	mux.Handle("GET /metrics", s.metrics.Handler())
	return mux
}

// Server builds the http.Server for the API. Startup and shutdown are
// driven by the caller.
func (s *APIServer) Server(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second,
	}
}

func (s *APIServer) handleChat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	query := strings.TrimSpace(req.Query)
	queryLen := utf8.RuneCountInString(query)
	if queryLen < MinQueryLen {
		s.writeError(w, http.StatusBadRequest, "query must not be empty")
		return
	}
	if queryLen > MaxQueryLen {
		s.writeError(w, http.StatusBadRequest, "query must be at most 500 characters")
		return
	}

	if s.store.State() != index.StateReady {
		s.writeError(w, http.StatusServiceUnavailable, "index not ready; run ingestion first")
		return
	}

	s.audit.LogQueryReceived(queryLen)

	ctx, span := observability.StartQuerySpan(r.Context(), queryLen)
	defer span.End()

	state := s.orchestrator.Process(ctx, query)

	duration := time.Since(start)
	refused := state.Classification == classifier.ClassOpinion
	noInfo := state.Answer == generator.NoInfoAnswer
	s.metrics.RecordQuery(duration, refused, noInfo)
	if refused {
		s.audit.LogQueryRefused(duration)
	} else {
		s.audit.LogQueryAnswered(duration, len(state.Candidates), state.Citation != nil)
	}

	s.writeJSON(w, http.StatusOK, ChatResponse{
		Query:          query,
		Answer:         state.Answer,
		Citation:       state.Citation,
		Classification: string(state.Classification),
	})
}

func (s *APIServer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context(), s.collection, s.location)
	if err != nil {
		s.logger.Error("stats failed", "error", err)
		s.writeError(w, http.StatusBadGateway, "vector store unavailable")
		return
	}
	s.metrics.IndexedDocuments.Set(float64(stats.Count))
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *APIServer) handleSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.catalog.ListSources(r.Context())
	if err != nil {
		s.logger.Error("list sources failed", "error", err)
		s.writeError(w, http.StatusBadGateway, "catalog unavailable")
		return
	}
	if sources == nil {
		sources = []catalog.SourceRecord{}
	}
	s.writeJSON(w, http.StatusOK, sources)
}

func (s *APIServer) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	report, err := s.ingest.Run(r.Context(), ingest.Options{Reset: req.Reset})
	switch {
	case errors.Is(err, ingest.ErrInProgress):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ingest.ErrIndexNotEmpty):
		s.writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		s.logger.Error("ingestion failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "ingestion failed")
	default:
		s.writeJSON(w, http.StatusOK, report)
	}
}

func (s *APIServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *APIServer) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, ErrorResponse{Error: msg})
}
