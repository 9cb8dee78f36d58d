// Package retriever performs semantic search over the document index.
package retriever

import (
	"context"
	"log/slog"

	"github.com/fundfaq/fundfaq/internal/index"
)

// DefaultTopK is the number of candidates fetched per query.
const DefaultTopK = 3

// Searcher is the slice of the index store the retriever needs.
type Searcher interface {
	Query(ctx context.Context, query string, topK int) ([]index.Candidate, error)
}

// Retriever fetches candidate chunks for a query. Retrieval failures
// degrade to an empty candidate list so the pipeline can answer with the
// no-information message instead of surfacing an internal error.
type Retriever struct {
	store  Searcher
	topK   int
	logger *slog.Logger
}

// New creates a Retriever. topK <= 0 uses DefaultTopK.
func New(store Searcher, topK int, logger *slog.Logger) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{store: store, topK: topK, logger: logger}
}

// Retrieve returns up to topK candidates ordered by ascending distance.
// It never returns an error.
func (r *Retriever) Retrieve(ctx context.Context, query string) []index.Candidate {
	candidates, err := r.store.Query(ctx, query, r.topK)
	if err != nil {
		r.logger.Warn("retrieval failed", "error", err)
		return nil
	}
	return candidates
}
