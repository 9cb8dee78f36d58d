package vector

import "context"

// Document represents an indexed chunk of text with its embedding.
type Document struct {
	ID       uint64
	Content  string
	Vector   []float32
	Metadata map[string]string
}

// SearchResult is a single match from a similarity search. Score is the
// backend similarity (higher = closer for cosine).
type SearchResult struct {
	ID       uint64
	Score    float32
	Content  string
	Metadata map[string]string
}

// Repository provides vector storage and similarity search.
type Repository interface {
	// EnsureCollection creates the backing collection if missing.
	EnsureCollection(ctx context.Context, dimension int) error
	// Upsert inserts or updates documents.
	Upsert(ctx context.Context, docs []Document) error
	// Search finds the top-k most similar documents.
	Search(ctx context.Context, vector []float32, topK int) ([]SearchResult, error)
	// Count returns the number of stored documents.
	Count(ctx context.Context) (uint64, error)
	// Drop destroys the collection and all its contents.
	Drop(ctx context.Context) error
	// Close releases resources.
	Close() error
}
