package ai

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestOllamaStreamChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		flusher := w.(http.Flusher)

		// One garbage line in the middle; the stream must carry on.
		parts := []string{
			"{\"message\":{\"role\":\"assistant\",\"content\":\"Hel",
			"lo\"},\"done\":false}\n",
			"{not json\n",
			"{\"message\":{\"role\":\"assistant\",\"content\":\" world\"},\"done\":false}\n",
			"{\"message\":{\"role\":\"assistant\",\"content\":\"\"},\"done\":true}\n",
		}
		for _, part := range parts {
			if _, err := w.Write([]byte(part)); err != nil {
				return
			}
			flusher.Flush()
		}
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "test-model")
	got, err := collectStream(t, p)
	if err != nil {
		t.Fatalf("stream error: %v", err)
	}
	if len(got) != 2 || got[0] != "Hello" || got[1] != " world" {
		t.Fatalf("unexpected chunks: %q", got)
	}
}

func TestOllamaStreamChatReportedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{\"error\":\"model not found\",\"done\":true}\n"))
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "test-model")
	_, err := collectStream(t, p)
	if err == nil || err.Error() != "model not found" {
		t.Fatalf("expected reported error, got %v", err)
	}
}

// Streaming must not touch the shared client: its timeout still applies
// to later non-streaming Chat calls, and two concurrent streams would
// race on the field.
func TestStreamChatLeavesSharedClientAlone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{\"message\":{\"role\":\"assistant\",\"content\":\"hi\"},\"done\":true}\n"))
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "test-model")
	want := p.Client.Timeout
	if _, err := collectStream(t, p); err != nil {
		t.Fatalf("stream error: %v", err)
	}
	if p.Client.Timeout != want {
		t.Fatalf("client timeout changed from %v to %v", want, p.Client.Timeout)
	}

	orSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer orSrv.Close()

	or := NewOpenRouterProvider(orSrv.URL, "test-key", "test-model", "", "")
	orWant := or.Client.Timeout
	if _, err := collectStream(t, or); err != nil {
		t.Fatalf("stream error: %v", err)
	}
	if or.Client.Timeout != orWant {
		t.Fatalf("client timeout changed from %v to %v", orWant, or.Client.Timeout)
	}
	if orWant < 30*time.Second {
		t.Fatalf("constructor timeout unexpectedly short: %v", orWant)
	}
}
