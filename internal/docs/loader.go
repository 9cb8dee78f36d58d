// Package docs downloads source PDFs, extracts their text per page, and
// splits pages into overlapping chunks ready for embedding.
package docs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// MinPageChars is the amount of non-whitespace text a page must exceed to
// be kept. Cover pages and scanned images fall at or below it.
const MinPageChars = 50

// DownloadTimeout bounds a single source fetch.
const DownloadTimeout = 30 * time.Second

// Page is one extracted PDF page.
type Page struct {
	Text       string
	Source     string
	Number     int // 1-based page number
	TotalPages int
}

// SourceFailure records a source that could not be prepared.
type SourceFailure struct {
	URL string
	Err error
}

// Preparer turns source URLs into embedding-ready chunks.
type Preparer struct {
	client  *http.Client
	window  int
	overlap int
	logger  *slog.Logger
}

// NewPreparer creates a Preparer with the given chunking parameters.
func NewPreparer(window, overlap int, logger *slog.Logger) *Preparer {
	if window <= 0 {
		window = DefaultChunkSize
	}
	if overlap < 0 || overlap >= window {
		overlap = DefaultOverlap
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Preparer{
		client:  &http.Client{Timeout: DownloadTimeout},
		window:  window,
		overlap: overlap,
		logger:  logger,
	}
}

// Prepare downloads and chunks every source. A failing source is logged,
// recorded, and skipped; the remaining sources still contribute chunks.
func (p *Preparer) Prepare(ctx context.Context, sources []string) ([]Chunk, []SourceFailure) {
	var chunks []Chunk
	var failures []SourceFailure
	for _, url := range sources {
		cs, err := p.PrepareSource(ctx, url)
		if err != nil {
			p.logger.Warn("skipping source", "url", url, "error", err)
			failures = append(failures, SourceFailure{URL: url, Err: err})
			continue
		}
		chunks = append(chunks, cs...)
	}
	return chunks, failures
}

// PrepareSource downloads one PDF, extracts its pages, and chunks them.
func (p *Preparer) PrepareSource(ctx context.Context, url string) ([]Chunk, error) {
	data, err := p.download(ctx, url)
	if err != nil {
		return nil, err
	}

	pages, err := extractPages(data, url)
	if err != nil {
		return nil, err
	}

	var chunks []Chunk
	for _, page := range pages {
		chunks = append(chunks, ChunkPage(page, p.window, p.overlap)...)
	}
	p.logger.Info("prepared source", "url", url, "pages", len(pages), "chunks", len(chunks))
	return chunks, nil
}

// PageCount reports how many pages of a prepared chunk set belong to the
// given source. Chunks carry TotalPages only indirectly, so the count is
// derived from the highest page number seen.
func PageCount(chunks []Chunk, source string) int {
	max := 0
	for _, c := range chunks {
		if c.Source == source && c.Page > max {
			max = c.Page
		}
	}
	return max
}

func (p *Preparer) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: unexpected status %s", url, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	return data, nil
}

// pageHasText reports whether a page carries enough text to index. Pages
// with trimmed length of MinPageChars or fewer characters are dropped.
func pageHasText(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) > MinPageChars
}

// extractPages parses PDF bytes into pages, dropping near-empty pages.
func extractPages(data []byte, source string) ([]Page, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse pdf %s: %w", source, err)
	}

	total := reader.NumPage()
	var pages []Page
	for i := 1; i <= total; i++ {
		pg := reader.Page(i)
		if pg.V.IsNull() {
			continue
		}
		text, err := pg.GetPlainText(nil)
		if err != nil {
			continue
		}
		if !pageHasText(text) {
			continue
		}
		pages = append(pages, Page{
			Text:       text,
			Source:     source,
			Number:     i,
			TotalPages: total,
		})
	}
	return pages, nil
}
