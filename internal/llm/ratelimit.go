package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitConfig bounds call frequency against free-tier provider quotas.
type RateLimitConfig struct {
	// RequestsPerMinute limits API calls per minute (0 = unlimited)
	RequestsPerMinute int
	// BurstSize allows temporary burst above the rate limit
	BurstSize int
}

// DefaultRateLimitConfig returns conservative defaults for free-tier cloud
// APIs (Groq etc.).
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerMinute: 25,
		BurstSize:         3,
	}
}

// RateLimitProvider wraps a provider with request rate limiting. Bulk
// ingestion embeds hundreds of chunks; without this, re-ingesting a corpus
// trips provider quotas immediately.
type RateLimitProvider struct {
	inner   Provider
	limiter *rate.Limiter
}

// NewRateLimitProvider creates a rate-limited provider wrapper.
func NewRateLimitProvider(inner Provider, config *RateLimitConfig) *RateLimitProvider {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	burst := config.BurstSize
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if config.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(config.RequestsPerMinute) / 60.0)
	}
	return &RateLimitProvider{
		inner:   inner,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Name returns the underlying provider name.
func (r *RateLimitProvider) Name() string {
	return r.inner.Name()
}

// Complete waits for rate-limit clearance and delegates.
func (r *RateLimitProvider) Complete(ctx context.Context, prompt *Prompt, opts *RequestOptions) (*Response, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.Complete(ctx, prompt, opts)
}

// Embed waits for rate-limit clearance and delegates.
func (r *RateLimitProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.Embed(ctx, texts)
}

// WithRateLimit wraps a provider, passing nil through unchanged.
func WithRateLimit(provider Provider, config *RateLimitConfig) Provider {
	if provider == nil {
		return nil
	}
	return NewRateLimitProvider(provider, config)
}
