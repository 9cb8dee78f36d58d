package docs

import "strings"

// Default sliding-window parameters, in characters.
const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

// Chunk is a bounded, overlapping slice of a source page's text. It is the
// unit of embedding and retrieval.
type Chunk struct {
	Text        string
	Source      string // source document URL, used verbatim as the citation
	Page        int
	Index       int // position within the page's chunk sequence
	TotalChunks int // chunks produced for this page
}

// SplitText splits text into overlapping windows of at most window
// characters, advancing by window-overlap each step. Boundaries are pure
// character offsets; whitespace-only slices are dropped. The split is
// deterministic: identical input always yields the identical sequence.
func SplitText(text string, window, overlap int) []string {
	if window <= 0 {
		window = DefaultChunkSize
	}
	if overlap < 0 || overlap >= window {
		overlap = DefaultOverlap % window
	}

	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); start += window - overlap {
		end := start + window
		if end > len(runes) {
			end = len(runes)
		}
		piece := string(runes[start:end])
		if strings.TrimSpace(piece) != "" {
			chunks = append(chunks, piece)
		}
	}
	return chunks
}

// ChunkPage splits one page into chunks carrying the page's provenance.
func ChunkPage(p Page, window, overlap int) []Chunk {
	pieces := SplitText(p.Text, window, overlap)
	chunks := make([]Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = Chunk{
			Text:        piece,
			Source:      p.Source,
			Page:        p.Number,
			Index:       i,
			TotalChunks: len(pieces),
		}
	}
	return chunks
}
