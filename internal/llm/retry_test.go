package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

type flakyProvider struct {
	failures int // how many calls fail before succeeding
	calls    int
	err      error
}

func (p *flakyProvider) Complete(_ context.Context, _ *Prompt, _ *RequestOptions) (*Response, error) {
	p.calls++
	if p.calls <= p.failures {
		return nil, p.err
	}
	return &Response{Content: "recovered"}, nil
}

func (p *flakyProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	p.calls++
	if p.calls <= p.failures {
		return nil, p.err
	}
	return make([][]float32, len(texts)), nil
}

func (p *flakyProvider) Name() string { return "flaky" }

func fastRetryConfig(maxRetries int) *RetryConfig {
	return &RetryConfig{
		MaxRetries: maxRetries,
		RetryDelay: time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
		Timeout:    time.Second,
	}
}

func TestRetry_RecoversFromTransientError(t *testing.T) {
	inner := &flakyProvider{failures: 2, err: errors.New("503 Service Unavailable")}
	r := NewRetryProvider(inner, fastRetryConfig(3))

	resp, err := r.Complete(context.Background(), &Prompt{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "recovered" {
		t.Errorf("expected recovered response, got %q", resp.Content)
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 calls, got %d", inner.calls)
	}
}

func TestRetry_ExhaustsRetries(t *testing.T) {
	inner := &flakyProvider{failures: 100, err: errors.New("503 Service Unavailable")}
	r := NewRetryProvider(inner, fastRetryConfig(2))

	_, err := r.Complete(context.Background(), &Prompt{}, nil)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if inner.calls != 3 { // initial + 2 retries
		t.Errorf("expected 3 calls, got %d", inner.calls)
	}
}

func TestRetry_NonRetryableStopsImmediately(t *testing.T) {
	inner := &flakyProvider{failures: 100, err: errors.New("401 Unauthorized")}
	r := NewRetryProvider(inner, fastRetryConfig(5))

	_, err := r.Complete(context.Background(), &Prompt{}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if inner.calls != 1 {
		t.Errorf("401 should not be retried; got %d calls", inner.calls)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, true},
		{"rate_limit", errors.New("429 Too Many Requests"), true},
		{"daily_limit", errors.New("429: tokens per day limit reached"), false},
		{"server_error", errors.New("500 Internal Server Error"), true},
		{"bad_gateway", errors.New("502 Bad Gateway"), true},
		{"bad_request", errors.New("400 Bad Request"), false},
		{"forbidden", errors.New("403 Forbidden"), false},
		{"unknown", errors.New("connection reset"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryable(tt.err); got != tt.want {
				t.Errorf("isRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetry_EmbedRecovers(t *testing.T) {
	inner := &flakyProvider{failures: 1, err: errors.New("503 Service Unavailable")}
	r := NewRetryProvider(inner, fastRetryConfig(2))

	vectors, err := r.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 2 {
		t.Errorf("expected 2 vectors, got %d", len(vectors))
	}
}
