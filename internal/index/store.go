// Package index ties the embedder and the vector repository together into
// the searchable document index.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/fundfaq/fundfaq/internal/docs"
	"github.com/fundfaq/fundfaq/internal/embedding"
	"github.com/fundfaq/fundfaq/internal/vector"
)

// State tracks whether the index can serve queries.
type State int

const (
	StateNotStarted State = iota
	StateInProgress
	StateReady
)

func (s State) String() string {
	switch s {
	case StateInProgress:
		return "in_progress"
	case StateReady:
		return "ready"
	default:
		return "not_started"
	}
}

// ErrNotReady is returned by Query before ingestion has completed.
var ErrNotReady = errors.New("index not ready")

// writeBatchSize caps how many points a single upsert carries.
const writeBatchSize = 100

// Candidate is a retrieved chunk. Distance is 1 - cosine similarity, so
// smaller means closer; results are ordered ascending by distance.
type Candidate struct {
	Text     string
	Source   string
	Distance float32
	Metadata map[string]string
}

// Stats describes the current index contents.
type Stats struct {
	Count      uint64 `json:"count"`
	Collection string `json:"collection"`
	Location   string `json:"location"`
	State      string `json:"state"`
}

// Store is the document index. A Store starts not-ready; it becomes ready
// once an ingestion run completes, or when MarkReady observes existing
// documents from a previous run.
type Store struct {
	embedder embedding.Embedder
	repo     vector.Repository
	logger   *slog.Logger

	mu    sync.RWMutex
	state State
}

// NewStore creates an index store over the given embedder and repository.
func NewStore(embedder embedding.Embedder, repo vector.Repository, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		embedder: embedder,
		repo:     repo,
		logger:   logger,
	}
}

// State returns the current readiness state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SetState transitions the readiness gate.
func (s *Store) SetState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// MarkReadyIfPopulated flips the store to ready when the backing collection
// already holds documents, so a restart does not force re-ingestion.
func (s *Store) MarkReadyIfPopulated(ctx context.Context) error {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		s.SetState(StateReady)
	}
	return nil
}

// Add embeds chunks and writes them to the repository. Point ids are the
// chunk ordinals within this call, starting at zero; re-adding without a
// prior Reset overwrites earlier ordinals instead of appending.
func (s *Store) Add(ctx context.Context, chunks []docs.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: got %d vectors for %d chunks", embedding.ErrCountMismatch, len(vectors), len(chunks))
	}

	records := make([]vector.Document, len(chunks))
	for i, c := range chunks {
		records[i] = vector.Document{
			ID:      uint64(i),
			Content: c.Text,
			Vector:  vectors[i],
			Metadata: map[string]string{
				"source":       c.Source,
				"page":         strconv.Itoa(c.Page),
				"chunk_index":  strconv.Itoa(c.Index),
				"total_chunks": strconv.Itoa(c.TotalChunks),
			},
		}
	}

	for start := 0; start < len(records); start += writeBatchSize {
		end := start + writeBatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := s.repo.Upsert(ctx, records[start:end]); err != nil {
			return fmt.Errorf("upsert batch %d..%d: %w", start, end, err)
		}
	}

	s.logger.Info("indexed chunks", "count", len(records))
	return nil
}

// Query embeds the query text and returns up to topK candidates ordered by
// ascending distance. An empty index yields an empty slice, not an error.
func (s *Store) Query(ctx context.Context, query string, topK int) ([]Candidate, error) {
	if s.State() != StateReady {
		return nil, ErrNotReady
	}

	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := s.repo.Search(ctx, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	candidates := make([]Candidate, len(results))
	for i, r := range results {
		candidates[i] = Candidate{
			Text:     r.Content,
			Source:   r.Metadata["source"],
			Distance: 1 - r.Score,
			Metadata: r.Metadata,
		}
	}
	return candidates, nil
}

// Count returns the number of indexed documents.
func (s *Store) Count(ctx context.Context) (uint64, error) {
	return s.repo.Count(ctx)
}

// Reset drops the collection and recreates it empty with the given
// dimension. The store returns to not-started.
func (s *Store) Reset(ctx context.Context, dimension int) error {
	if err := s.repo.Drop(ctx); err != nil {
		return fmt.Errorf("drop collection: %w", err)
	}
	if err := s.repo.EnsureCollection(ctx, dimension); err != nil {
		return fmt.Errorf("recreate collection: %w", err)
	}
	s.SetState(StateNotStarted)
	return nil
}

// Stats reports the document count and backend identity.
func (s *Store) Stats(ctx context.Context, collection, location string) (Stats, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Count:      count,
		Collection: collection,
		Location:   location,
		State:      s.State().String(),
	}, nil
}
