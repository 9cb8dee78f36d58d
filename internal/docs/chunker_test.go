package docs

import (
	"strings"
	"testing"
)

func TestSplitText_WindowAndOverlap(t *testing.T) {
	text := strings.Repeat("a", 2500)
	chunks := SplitText(text, 1000, 200)

	// start positions: 0, 800, 1600, 2400
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 1000 {
			t.Errorf("chunk %d exceeds window: %d chars", i, len(c))
		}
	}
	// consecutive chunks share exactly overlap characters
	if got := chunks[0][800:]; got != chunks[1][:200] {
		t.Error("chunks 0 and 1 do not overlap by 200 chars")
	}
	if len(chunks[3]) != 100 {
		t.Errorf("final chunk length = %d, want 100", len(chunks[3]))
	}
}

func TestSplitText_Deterministic(t *testing.T) {
	text := strings.Repeat("mutual funds pool money from investors. ", 100)
	a := SplitText(text, 1000, 200)
	b := SplitText(text, 1000, 200)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("chunk %d differs between runs", i)
		}
	}
}

func TestSplitText_ShortInput(t *testing.T) {
	chunks := SplitText("short text", 1000, 200)
	if len(chunks) != 1 || chunks[0] != "short text" {
		t.Fatalf("expected single chunk, got %v", chunks)
	}
}

func TestSplitText_WhitespaceOnlySlicesDropped(t *testing.T) {
	text := "abc" + strings.Repeat(" ", 50)
	chunks := SplitText(text, 10, 2)
	for i, c := range chunks {
		if strings.TrimSpace(c) == "" {
			t.Errorf("chunk %d is whitespace-only", i)
		}
	}
}

func TestSplitText_Empty(t *testing.T) {
	if chunks := SplitText("", 1000, 200); len(chunks) != 0 {
		t.Fatalf("expected no chunks, got %d", len(chunks))
	}
}

func TestChunkPage_Metadata(t *testing.T) {
	page := Page{
		Text:   strings.Repeat("x", 1800),
		Source: "https://example.com/doc.pdf",
		Number: 3,
	}
	chunks := ChunkPage(page, 1000, 200)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Source != page.Source {
			t.Errorf("chunk %d source = %q", i, c.Source)
		}
		if c.Page != 3 {
			t.Errorf("chunk %d page = %d, want 3", i, c.Page)
		}
		if c.Index != i {
			t.Errorf("chunk %d index = %d", i, c.Index)
		}
		if c.TotalChunks != 3 {
			t.Errorf("chunk %d total = %d, want 3", i, c.TotalChunks)
		}
	}
}
