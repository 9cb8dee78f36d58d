// Package gemini implements embedding.Embedder against the Google
// Generative Language API. Documents are embedded with the
// RETRIEVAL_DOCUMENT task type and queries with RETRIEVAL_QUERY, which is
// where the pipeline's asymmetric embedding contract comes from.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fundfaq/fundfaq/internal/embedding"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "models/text-embedding-004"

	taskDocument = "RETRIEVAL_DOCUMENT"
	taskQuery    = "RETRIEVAL_QUERY"
)

// Client implements embedding.Embedder using Gemini embedding models.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

// New creates a Gemini embedding client.
func New(apiKey, model, baseURL string) *Client {
	if model == "" {
		model = defaultModel
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Name() string { return "gemini" }

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type embedRequest struct {
	Model    string  `json:"model"`
	Content  content `json:"content"`
	TaskType string  `json:"taskType"`
}

// EmbedDocuments embeds texts in one batchEmbedContents call.
func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	reqs := make([]embedRequest, len(texts))
	for i, t := range texts {
		reqs[i] = embedRequest{
			Model:    c.model,
			Content:  content{Parts: []part{{Text: t}}},
			TaskType: taskDocument,
		}
	}

	var result struct {
		Embeddings []struct {
			Values []float32 `json:"values"`
		} `json:"embeddings"`
	}
	url := fmt.Sprintf("%s/%s:batchEmbedContents", c.baseURL, c.model)
	if err := c.post(ctx, url, map[string]any{"requests": reqs}, &result); err != nil {
		return nil, err
	}

	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d, want %d", embedding.ErrCountMismatch, len(result.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(result.Embeddings))
	for i, e := range result.Embeddings {
		vectors[i] = e.Values
	}
	return vectors, nil
}

// EmbedQuery embeds a single query with the query task hint.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	req := embedRequest{
		Model:    c.model,
		Content:  content{Parts: []part{{Text: text}}},
		TaskType: taskQuery,
	}

	var result struct {
		Embedding struct {
			Values []float32 `json:"values"`
		} `json:"embedding"`
	}
	url := fmt.Sprintf("%s/%s:embedContent", c.baseURL, c.model)
	if err := c.post(ctx, url, req, &result); err != nil {
		return nil, err
	}

	if len(result.Embedding.Values) == 0 {
		return nil, embedding.ErrEmptyEmbedding
	}
	return result.Embedding.Values, nil
}

func (c *Client) post(ctx context.Context, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gemini: %s: %s", resp.Status, respBody)
	}

	return json.Unmarshal(respBody, out)
}

var _ embedding.Embedder = (*Client)(nil)
