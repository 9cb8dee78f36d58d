// Package catalog records which source documents have been ingested and
// when, for provenance queries independent of the vector index.
package catalog

import (
	"context"
	"time"
)

// SourceRecord describes one ingested source document.
type SourceRecord struct {
	URL        string    `json:"url"`
	Pages      int       `json:"pages"`
	Chunks     int       `json:"chunks"`
	IngestedAt time.Time `json:"ingested_at"`
}

// Repository stores source provenance.
type Repository interface {
	// RecordSource upserts one source record.
	RecordSource(ctx context.Context, rec SourceRecord) error
	// ListSources returns all recorded sources.
	ListSources(ctx context.Context) ([]SourceRecord, error)
	// Close releases resources.
	Close(ctx context.Context) error
}

// NoopRepository discards records. Used when no catalog backend is
// configured.
type NoopRepository struct{}

func (NoopRepository) RecordSource(context.Context, SourceRecord) error    { return nil }
func (NoopRepository) ListSources(context.Context) ([]SourceRecord, error) { return nil, nil }
func (NoopRepository) Close(context.Context) error                         { return nil }

var _ Repository = NoopRepository{}
