package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEmbedDocuments_TaskTypeAndBatch(t *testing.T) {
	var captured struct {
		Requests []struct {
			Model    string `json:"model"`
			TaskType string `json:"taskType"`
			Content  struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"requests"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"embeddings": []map[string]any{
				{"values": []float32{0.1, 0.2}},
				{"values": []float32{0.3, 0.4}},
			},
		})
	}))
	defer srv.Close()

	c := New("test-key", "", srv.URL)
	vectors, err := c.EmbedDocuments(context.Background(), []string{"what is KYC", "what is NAV"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(vectors) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vectors))
	}
	if len(captured.Requests) != 2 {
		t.Fatalf("expected 2 batched requests, got %d", len(captured.Requests))
	}
	for i, req := range captured.Requests {
		if req.TaskType != "RETRIEVAL_DOCUMENT" {
			t.Errorf("request %d: taskType = %q, want RETRIEVAL_DOCUMENT", i, req.TaskType)
		}
		if req.Model != defaultModel {
			t.Errorf("request %d: model = %q, want %q", i, req.Model, defaultModel)
		}
	}
	if captured.Requests[0].Content.Parts[0].Text != "what is KYC" {
		t.Errorf("first text = %q", captured.Requests[0].Content.Parts[0].Text)
	}
}

func TestEmbedQuery_TaskType(t *testing.T) {
	var captured struct {
		TaskType string `json:"taskType"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"embedding": map[string]any{"values": []float32{0.5, 0.6}},
		})
	}))
	defer srv.Close()

	c := New("test-key", "", srv.URL)
	vec, err := c.EmbedQuery(context.Background(), "what is KYC in mutual funds?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured.TaskType != "RETRIEVAL_QUERY" {
		t.Errorf("taskType = %q, want RETRIEVAL_QUERY", captured.TaskType)
	}
	if len(vec) != 2 {
		t.Errorf("expected 2-dim vector, got %d", len(vec))
	}
}

func TestEmbedDocuments_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"embeddings": []map[string]any{{"values": []float32{0.1}}},
		})
	}))
	defer srv.Close()

	c := New("test-key", "", srv.URL)
	_, err := c.EmbedDocuments(context.Background(), []string{"a", "b"})
	if err == nil {
		t.Fatal("expected count mismatch error")
	}
}

func TestEmbed_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New("test-key", "", srv.URL)
	if _, err := c.EmbedDocuments(context.Background(), []string{"a"}); err == nil {
		t.Error("EmbedDocuments: expected error on 429")
	}
	if _, err := c.EmbedQuery(context.Background(), "a"); err == nil {
		t.Error("EmbedQuery: expected error on 429")
	}
}
