// Package embedding defines the asymmetric text-embedding contract used by
// the index store: documents and queries may be embedded with different
// task hints, so the two operations are kept distinct.
package embedding

import (
	"context"

	"github.com/fundfaq/fundfaq/internal/llm"
)

// Embedder converts text into fixed-length vectors.
type Embedder interface {
	// EmbedDocuments embeds texts in bulk with the document task hint.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQuery embeds a single query with the query task hint.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// Name returns the embedder identifier.
	Name() string
}

// ProviderEmbedder adapts an llm.Provider to the Embedder interface for
// OpenAI-compatible backends, which embed documents and queries identically.
type ProviderEmbedder struct {
	provider llm.Provider
}

// NewProviderEmbedder wraps an LLM provider's embedding endpoint.
func NewProviderEmbedder(provider llm.Provider) *ProviderEmbedder {
	return &ProviderEmbedder{provider: provider}
}

func (e *ProviderEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return e.provider.Embed(ctx, texts)
}

func (e *ProviderEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.provider.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return vectors[0], nil
}

func (e *ProviderEmbedder) Name() string { return e.provider.Name() }

var _ Embedder = (*ProviderEmbedder)(nil)
