package ai

import (
	"context"
	"strings"
	"testing"
)

type plainProvider struct{}

func (plainProvider) Chat(ctx context.Context, _ []Message) (string, error) { return "ok", nil }

func TestRegistryUnknownProviderListsKnown(t *testing.T) {
	reg := NewRegistry()
	reg.Register("Ollama", func(ctx context.Context, model string) (Provider, error) {
		return plainProvider{}, nil
	})

	_, err := reg.Get(context.Background(), "nope", "")
	if err == nil || !strings.Contains(err.Error(), "ollama") {
		t.Fatalf("error should name known providers, got %v", err)
	}
}

func TestRegistryGetStreamRejectsNonStreaming(t *testing.T) {
	reg := NewRegistry()
	reg.Register("plain", func(ctx context.Context, model string) (Provider, error) {
		return plainProvider{}, nil
	})

	if _, err := reg.GetStream(context.Background(), "plain", ""); err == nil {
		t.Fatalf("expected an error for a provider without streaming")
	}
}

func TestRegistryGetStream(t *testing.T) {
	reg := NewRegistry()
	reg.Register("ollama", func(ctx context.Context, model string) (Provider, error) {
		return NewOllamaProvider("", model), nil
	})

	sp, err := reg.GetStream(context.Background(), " Ollama ", "test-model")
	if err != nil {
		t.Fatalf("GetStream: %v", err)
	}
	if sp == nil {
		t.Fatalf("nil provider")
	}
}
