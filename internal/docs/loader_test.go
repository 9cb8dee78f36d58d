package docs

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPrepare_SkipsFailingSources(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	p := NewPreparer(1000, 200, discardLogger())
	chunks, failures := p.Prepare(context.Background(), []string{srv.URL + "/missing.pdf"})

	if len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
	if len(failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(failures))
	}
	if failures[0].URL != srv.URL+"/missing.pdf" {
		t.Errorf("failure url = %q", failures[0].URL)
	}
}

func TestPrepareSource_InvalidPDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not a pdf"))
	}))
	defer srv.Close()

	p := NewPreparer(1000, 200, discardLogger())
	if _, err := p.PrepareSource(context.Background(), srv.URL+"/doc.pdf"); err == nil {
		t.Fatal("expected parse error for non-PDF content")
	}
}

func TestPrepareSource_Cancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPreparer(1000, 200, discardLogger())
	if _, err := p.PrepareSource(ctx, srv.URL+"/doc.pdf"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestPageHasText_Threshold(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"empty", "", false},
		{"whitespace only", "   \n\t  ", false},
		{"exactly at threshold", strings.Repeat("a", 50), false},
		{"threshold with padding", "  " + strings.Repeat("a", 50) + "\n", false},
		{"one over threshold", strings.Repeat("a", 51), true},
		{"multibyte at threshold", strings.Repeat("₹", 50), false},
		{"multibyte over threshold", strings.Repeat("₹", 51), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pageHasText(tt.text); got != tt.want {
				t.Errorf("pageHasText(%d chars) = %v, want %v", len([]rune(tt.text)), got, tt.want)
			}
		})
	}
}

func TestPageCount(t *testing.T) {
	chunks := []Chunk{
		{Source: "a", Page: 1},
		{Source: "a", Page: 4},
		{Source: "b", Page: 9},
	}
	if got := PageCount(chunks, "a"); got != 4 {
		t.Errorf("PageCount(a) = %d, want 4", got)
	}
	if got := PageCount(chunks, "c"); got != 0 {
		t.Errorf("PageCount(c) = %d, want 0", got)
	}
}
