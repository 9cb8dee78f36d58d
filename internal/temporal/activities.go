package temporal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fundfaq/fundfaq/internal/catalog"
	"github.com/fundfaq/fundfaq/internal/docs"
	"github.com/fundfaq/fundfaq/internal/index"
	"github.com/fundfaq/fundfaq/internal/ingest"
)

// PrepareResult carries one source's chunks between activities as JSON.
type PrepareResult struct {
	ChunksJSON string
}

// IndexResult is the serializable outcome of indexing.
type IndexResult struct {
	Chunks int
}

// Dependencies holds shared resources injected into activities.
type Dependencies struct {
	Preparer *docs.Preparer
	Store    *index.Store
	Catalog  catalog.Repository
}

var deps *Dependencies

// SetDependencies injects shared resources (called during worker setup).
func SetDependencies(d *Dependencies) {
	if d.Catalog == nil {
		d.Catalog = catalog.NoopRepository{}
	}
	deps = d
}

// ResetIndexActivity drops and recreates the collection.
func ResetIndexActivity(ctx context.Context, dimension int) error {
	return deps.Store.Reset(ctx, dimension)
}

// BeginIngestActivity flips the index to in-progress, rejecting a start
// over a populated index.
func BeginIngestActivity(ctx context.Context) error {
	count, err := deps.Store.Count(ctx)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if count > 0 {
		return ingest.ErrIndexNotEmpty
	}
	deps.Store.SetState(index.StateInProgress)
	return nil
}

// PrepareSourceActivity downloads and chunks a single source.
func PrepareSourceActivity(ctx context.Context, url string) (PrepareResult, error) {
	chunks, err := deps.Preparer.PrepareSource(ctx, url)
	if err != nil {
		return PrepareResult{}, err
	}

	data, err := json.Marshal(chunks)
	if err != nil {
		return PrepareResult{}, fmt.Errorf("marshal chunks: %w", err)
	}
	return PrepareResult{ChunksJSON: string(data)}, nil
}

// IndexChunksActivity embeds and indexes all prepared chunk sets, records
// provenance, and marks the index ready.
func IndexChunksActivity(ctx context.Context, chunkSets []string) (IndexResult, error) {
	var all []docs.Chunk
	for i, set := range chunkSets {
		var chunks []docs.Chunk
		if err := json.Unmarshal([]byte(set), &chunks); err != nil {
			return IndexResult{}, fmt.Errorf("unmarshal chunk set %d: %w", i, err)
		}
		all = append(all, chunks...)
	}

	if len(all) == 0 {
		deps.Store.SetState(index.StateNotStarted)
		return IndexResult{}, ingest.ErrNoChunks
	}

	if err := deps.Store.Add(ctx, all); err != nil {
		deps.Store.SetState(index.StateNotStarted)
		return IndexResult{}, err
	}
	deps.Store.SetState(index.StateReady)

	perSource := make(map[string]int)
	for _, c := range all {
		perSource[c.Source]++
	}
	now := time.Now().UTC()
	for url, n := range perSource {
		rec := catalog.SourceRecord{
			URL:        url,
			Pages:      docs.PageCount(all, url),
			Chunks:     n,
			IngestedAt: now,
		}
		// provenance only; indexing already succeeded
		_ = deps.Catalog.RecordSource(ctx, rec)
	}

	return IndexResult{Chunks: len(all)}, nil
}
