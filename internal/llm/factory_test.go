package llm

import (
	"context"
	"errors"
	"testing"
)

type mockTestProvider struct {
	name string
}

func (m *mockTestProvider) Complete(_ context.Context, _ *Prompt, _ *RequestOptions) (*Response, error) {
	return &Response{Content: "ok"}, nil
}

func (m *mockTestProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

func (m *mockTestProvider) Name() string { return m.name }

func TestCreate_NoneProvider(t *testing.T) {
	f := NewFactory()
	for _, name := range []string{"", "none"} {
		p, err := f.Create(ProviderConfig{Provider: name})
		if err != nil {
			t.Fatalf("provider %q: unexpected error: %v", name, err)
		}
		if p != nil {
			t.Errorf("provider %q: expected nil provider", name)
		}
	}
}

func TestCreate_UnknownProvider(t *testing.T) {
	f := NewFactory()
	_, err := f.Create(ProviderConfig{Provider: "does-not-exist"})
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestCreate_Registered(t *testing.T) {
	f := NewFactory()
	f.Register("mock", func(cfg ProviderConfig) (Provider, error) {
		return &mockTestProvider{name: "mock"}, nil
	})

	p, err := f.Create(ProviderConfig{Provider: "mock"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil || p.Name() != "mock" {
		t.Errorf("expected mock provider, got %v", p)
	}
}

func TestCreate_ConstructorError(t *testing.T) {
	f := NewFactory()
	f.Register("broken", func(cfg ProviderConfig) (Provider, error) {
		return nil, errors.New("boom")
	})
	_, err := f.Create(ProviderConfig{Provider: "broken"})
	if err == nil {
		t.Fatal("expected constructor error to propagate")
	}
}

func TestCreate_RetryWrapping(t *testing.T) {
	f := NewFactory()
	f.Register("mock", func(cfg ProviderConfig) (Provider, error) {
		return &mockTestProvider{name: "mock"}, nil
	})

	p, err := f.Create(ProviderConfig{Provider: "mock", MaxRetries: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := p.(*RetryProvider); !ok {
		t.Errorf("expected RetryProvider wrapper when MaxRetries is set, got %T", p)
	}

	// Without retries, the raw provider comes back.
	p, err = f.Create(ProviderConfig{Provider: "mock"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := p.(*mockTestProvider); !ok {
		t.Errorf("expected unwrapped provider, got %T", p)
	}
}
