package index

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/fundfaq/fundfaq/internal/docs"
	"github.com/fundfaq/fundfaq/internal/vector"
)

type fakeEmbedder struct {
	docCalls   [][]string
	queryCalls []string
	embedErr   error
}

func (f *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	f.docCalls = append(f.docCalls, texts)
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(i), 1}
	}
	return vectors, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	f.queryCalls = append(f.queryCalls, text)
	return []float32{0.5, 0.5}, nil
}

func (f *fakeEmbedder) Name() string { return "fake" }

type fakeRepo struct {
	upserts   [][]vector.Document
	results   []vector.SearchResult
	count     uint64
	dropped   bool
	ensured   int
	searchErr error
}

func (f *fakeRepo) EnsureCollection(_ context.Context, dimension int) error {
	f.ensured = dimension
	return nil
}

func (f *fakeRepo) Upsert(_ context.Context, docs []vector.Document) error {
	batch := make([]vector.Document, len(docs))
	copy(batch, docs)
	f.upserts = append(f.upserts, batch)
	return nil
}

func (f *fakeRepo) Search(_ context.Context, _ []float32, topK int) ([]vector.SearchResult, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if topK < len(f.results) {
		return f.results[:topK], nil
	}
	return f.results, nil
}

func (f *fakeRepo) Count(_ context.Context) (uint64, error) { return f.count, nil }

func (f *fakeRepo) Drop(_ context.Context) error {
	f.dropped = true
	return nil
}

func (f *fakeRepo) Close() error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAdd_OrdinalIDsAndMetadata(t *testing.T) {
	repo := &fakeRepo{}
	store := NewStore(&fakeEmbedder{}, repo, testLogger())

	chunks := []docs.Chunk{
		{Text: "chunk one", Source: "https://example.com/a.pdf", Page: 1, Index: 0, TotalChunks: 2},
		{Text: "chunk two", Source: "https://example.com/a.pdf", Page: 1, Index: 1, TotalChunks: 2},
	}
	if err := store.Add(context.Background(), chunks); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if len(repo.upserts) != 1 {
		t.Fatalf("expected 1 upsert batch, got %d", len(repo.upserts))
	}
	records := repo.upserts[0]
	for i, r := range records {
		if r.ID != uint64(i) {
			t.Errorf("record %d id = %d", i, r.ID)
		}
	}
	if records[1].Metadata["source"] != "https://example.com/a.pdf" {
		t.Errorf("source metadata = %q", records[1].Metadata["source"])
	}
	if records[1].Metadata["chunk_index"] != "1" {
		t.Errorf("chunk_index = %q", records[1].Metadata["chunk_index"])
	}
	if records[1].Metadata["total_chunks"] != "2" {
		t.Errorf("total_chunks = %q", records[1].Metadata["total_chunks"])
	}
}

func TestAdd_BatchesWrites(t *testing.T) {
	repo := &fakeRepo{}
	store := NewStore(&fakeEmbedder{}, repo, testLogger())

	chunks := make([]docs.Chunk, 250)
	for i := range chunks {
		chunks[i] = docs.Chunk{Text: "x", Source: "s"}
	}
	if err := store.Add(context.Background(), chunks); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if len(repo.upserts) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(repo.upserts))
	}
	sizes := []int{100, 100, 50}
	for i, want := range sizes {
		if len(repo.upserts[i]) != want {
			t.Errorf("batch %d size = %d, want %d", i, len(repo.upserts[i]), want)
		}
	}
}

func TestQuery_NotReady(t *testing.T) {
	store := NewStore(&fakeEmbedder{}, &fakeRepo{}, testLogger())
	if _, err := store.Query(context.Background(), "what is NAV?", 3); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

func TestQuery_DistanceConversionAndOrder(t *testing.T) {
	repo := &fakeRepo{results: []vector.SearchResult{
		{Score: 0.9, Content: "closest", Metadata: map[string]string{"source": "a"}},
		{Score: 0.7, Content: "middle", Metadata: map[string]string{"source": "b"}},
		{Score: 0.2, Content: "farthest", Metadata: map[string]string{"source": "c"}},
	}}
	store := NewStore(&fakeEmbedder{}, repo, testLogger())
	store.SetState(StateReady)

	candidates, err := store.Query(context.Background(), "what is KYC?", 3)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(candidates))
	}
	if candidates[0].Text != "closest" || candidates[0].Source != "a" {
		t.Errorf("first candidate = %+v", candidates[0])
	}
	const eps = 1e-6
	if d := candidates[0].Distance; d < 0.1-eps || d > 0.1+eps {
		t.Errorf("distance = %v, want ~0.1", d)
	}
	for i := 1; i < len(candidates); i++ {
		if candidates[i].Distance < candidates[i-1].Distance {
			t.Errorf("candidates not ascending by distance at %d", i)
		}
	}
}

func TestQuery_EmptyIndex(t *testing.T) {
	store := NewStore(&fakeEmbedder{}, &fakeRepo{}, testLogger())
	store.SetState(StateReady)

	candidates, err := store.Query(context.Background(), "anything", 3)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("expected empty result, got %d", len(candidates))
	}
}

func TestReset(t *testing.T) {
	repo := &fakeRepo{}
	store := NewStore(&fakeEmbedder{}, repo, testLogger())
	store.SetState(StateReady)

	if err := store.Reset(context.Background(), 768); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if !repo.dropped {
		t.Error("collection not dropped")
	}
	if repo.ensured != 768 {
		t.Errorf("recreated with dimension %d", repo.ensured)
	}
	if store.State() != StateNotStarted {
		t.Errorf("state after reset = %v", store.State())
	}
}

func TestMarkReadyIfPopulated(t *testing.T) {
	repo := &fakeRepo{count: 42}
	store := NewStore(&fakeEmbedder{}, repo, testLogger())
	if err := store.MarkReadyIfPopulated(context.Background()); err != nil {
		t.Fatalf("MarkReadyIfPopulated: %v", err)
	}
	if store.State() != StateReady {
		t.Errorf("state = %v, want ready", store.State())
	}

	empty := NewStore(&fakeEmbedder{}, &fakeRepo{}, testLogger())
	if err := empty.MarkReadyIfPopulated(context.Background()); err != nil {
		t.Fatalf("MarkReadyIfPopulated: %v", err)
	}
	if empty.State() != StateNotStarted {
		t.Errorf("empty store state = %v, want not_started", empty.State())
	}
}
