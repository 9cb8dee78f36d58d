// Package ingest runs the document ingestion flow: download sources,
// extract and chunk their text, embed, and index. Only one run may be
// active at a time.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/fundfaq/fundfaq/internal/catalog"
	"github.com/fundfaq/fundfaq/internal/docs"
	"github.com/fundfaq/fundfaq/internal/index"
	"github.com/fundfaq/fundfaq/internal/observability"
)

var (
	// ErrIndexNotEmpty is returned when the index already holds documents
	// and the run was not asked to reset it first.
	ErrIndexNotEmpty = errors.New("index not empty; re-run with reset to rebuild")

	// ErrInProgress is returned when another ingestion run holds the lock.
	ErrInProgress = errors.New("ingestion already in progress")

	// ErrNoChunks is returned when no source produced any usable text.
	ErrNoChunks = errors.New("no chunks produced from any source")
)

// Preparer turns source URLs into chunks.
type Preparer interface {
	Prepare(ctx context.Context, sources []string) ([]docs.Chunk, []docs.SourceFailure)
}

// Indexer is the slice of the index store ingestion drives.
type Indexer interface {
	Add(ctx context.Context, chunks []docs.Chunk) error
	Reset(ctx context.Context, dimension int) error
	Count(ctx context.Context) (uint64, error)
	SetState(index.State)
}

// Options tune a single run.
type Options struct {
	// Reset drops and recreates the collection before indexing.
	Reset bool
}

// Report summarizes a completed ingestion run.
type Report struct {
	Sources       int           `json:"sources"`
	FailedSources []string      `json:"failed_sources,omitempty"`
	Chunks        int           `json:"chunks"`
	Duration      time.Duration `json:"duration"`
	CompletedAt   time.Time     `json:"completed_at"`
}

// Service orchestrates ingestion runs.
type Service struct {
	preparer  Preparer
	store     Indexer
	catalog   catalog.Repository
	audit     *observability.AuditLogger
	metrics   *observability.FAQMetrics
	sources   []string
	dimension int
	logger    *slog.Logger

	mu sync.Mutex
}

// NewService creates an ingestion service. The catalog may be nil to skip
// provenance recording.
func NewService(preparer Preparer, store Indexer, cat catalog.Repository, audit *observability.AuditLogger, metrics *observability.FAQMetrics, sources []string, dimension int, logger *slog.Logger) *Service {
	if cat == nil {
		cat = catalog.NoopRepository{}
	}
	if audit == nil {
		audit = observability.NewDisabledAuditLogger()
	}
	if metrics == nil {
		metrics = observability.Metrics()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		preparer:  preparer,
		store:     store,
		catalog:   cat,
		audit:     audit,
		metrics:   metrics,
		sources:   sources,
		dimension: dimension,
		logger:    logger,
	}
}

// Run executes one ingestion pass over the configured sources.
func (s *Service) Run(ctx context.Context, opts Options) (*Report, error) {
	if !s.mu.TryLock() {
		return nil, ErrInProgress
	}
	defer s.mu.Unlock()

	ctx, span := observability.StartIngestSpan(ctx, len(s.sources))
	defer span.End()

	start := time.Now()
	s.audit.LogIngestStart(len(s.sources), opts.Reset)
	s.logger.Info("ingestion started", "sources", len(s.sources), "reset", opts.Reset)

	count, err := s.store.Count(ctx)
	if err != nil {
		return s.fail(span, fmt.Errorf("check index: %w", err))
	}
	if count > 0 && !opts.Reset {
		return s.fail(span, ErrIndexNotEmpty)
	}
	if opts.Reset {
		if err := s.store.Reset(ctx, s.dimension); err != nil {
			return s.fail(span, fmt.Errorf("reset index: %w", err))
		}
	}

	s.store.SetState(index.StateInProgress)

	chunks, failures := s.preparer.Prepare(ctx, s.sources)
	if len(chunks) == 0 {
		s.store.SetState(index.StateNotStarted)
		return s.fail(span, ErrNoChunks)
	}

	if err := s.store.Add(ctx, chunks); err != nil {
		s.store.SetState(index.StateNotStarted)
		return s.fail(span, fmt.Errorf("index chunks: %w", err))
	}

	s.store.SetState(index.StateReady)
	s.recordCatalog(ctx, chunks, failures)

	duration := time.Since(start)
	s.metrics.RecordIngest(duration, len(chunks), len(failures))
	if indexed, err := s.store.Count(ctx); err == nil {
		s.metrics.IndexedDocuments.Set(float64(indexed))
	}
	s.audit.LogIngestComplete(duration, len(chunks), len(failures))
	s.logger.Info("ingestion complete", "chunks", len(chunks), "failed_sources", len(failures), "duration", duration)

	report := &Report{
		Sources:     len(s.sources),
		Chunks:      len(chunks),
		Duration:    duration,
		CompletedAt: time.Now().UTC(),
	}
	for _, f := range failures {
		report.FailedSources = append(report.FailedSources, f.URL)
	}
	return report, nil
}

func (s *Service) fail(span trace.Span, err error) (*Report, error) {
	observability.RecordError(span, err)
	s.audit.LogIngestError(err)
	s.logger.Error("ingestion failed", "error", err)
	return nil, err
}

// recordCatalog stores per-source provenance for sources that yielded
// chunks. Catalog failures are logged, not fatal.
func (s *Service) recordCatalog(ctx context.Context, chunks []docs.Chunk, failures []docs.SourceFailure) {
	failed := make(map[string]bool, len(failures))
	for _, f := range failures {
		failed[f.URL] = true
	}

	perSource := make(map[string]int)
	for _, c := range chunks {
		perSource[c.Source]++
	}

	now := time.Now().UTC()
	for _, url := range s.sources {
		if failed[url] || perSource[url] == 0 {
			continue
		}
		rec := catalog.SourceRecord{
			URL:        url,
			Pages:      docs.PageCount(chunks, url),
			Chunks:     perSource[url],
			IngestedAt: now,
		}
		if err := s.catalog.RecordSource(ctx, rec); err != nil {
			s.logger.Warn("catalog record failed", "url", url, "error", err)
		}
	}
}
