// Unit tests for OpenAIProvider.
// Uses httptest.NewServer to fake the chat-completions SSE endpoint, no
// real API needed.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

// sseChunk writes one chat.completion.chunk event carrying content.
func sseChunk(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	payload := fmt.Sprintf(
		`{"id":"1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"content":%q}}]}`,
		content,
	)
	fmt.Fprintf(w, "data: %s\n\n", payload)
	w.(http.Flusher).Flush()
}

func sseDone(w http.ResponseWriter) {
	fmt.Fprint(w, "data: [DONE]\n\n")
	w.(http.Flusher).Flush()
}

func streamHandler(t *testing.T, fragments ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.Error(w, "unexpected path", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, f := range fragments {
			sseChunk(t, w, f)
		}
		sseDone(w)
	}
}

func collect(t *testing.T, ch <-chan StreamDelta) (string, StreamDelta) {
	t.Helper()
	text := ""
	for delta := range ch {
		if delta.Done || delta.Err != nil {
			return text, delta
		}
		text += delta.Content
	}
	t.Fatal("stream closed without a terminal delta")
	return "", StreamDelta{}
}

func TestOpenAIProvider_ChatCompletionStream_AssemblesFragments(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(streamHandler(t, "He", "llo"))
	defer srv.Close()

	p := NewOpenAIProvider("test-key", srv.URL, "m", 1, zerolog.Nop())
	ch, err := p.ChatCompletionStream(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("ChatCompletionStream failed: %v", err)
	}

	text, terminal := collect(t, ch)
	if terminal.Err != nil {
		t.Fatalf("unexpected stream error: %v", terminal.Err)
	}
	if !terminal.Done {
		t.Error("expected Done terminal delta")
	}
	if text != "Hello" {
		t.Errorf("expected assembled text %q, got %q", "Hello", text)
	}
}

func TestOpenAIProvider_ChatCompletionStream_SendsResolvedParameters(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		sseDone(w)
	}))
	defer srv.Close()

	p := NewOpenAIProvider("test-key", srv.URL, "default-model", 1, zerolog.Nop())
	ch, err := p.ChatCompletionStream(context.Background(), ChatRequest{
		Model:            "override-model",
		Messages:         []Message{{Role: "user", Content: "hi"}},
		Temperature:      0.5,
		MaxTokens:        64,
		TopP:             0.9,
		FrequencyPenalty: 0.1,
		PresencePenalty:  0.2,
	})
	if err != nil {
		t.Fatalf("ChatCompletionStream failed: %v", err)
	}
	collect(t, ch)

	if got["model"] != "override-model" {
		t.Errorf("expected per-request model, got %v", got["model"])
	}
	if got["temperature"] != 0.5 || got["top_p"] != 0.9 {
		t.Errorf("sampling parameters not forwarded: %v", got)
	}
	if got["max_tokens"] != float64(64) {
		t.Errorf("max_tokens not forwarded: %v", got["max_tokens"])
	}
	if got["stream"] != true {
		t.Error("expected stream: true")
	}
}

func TestOpenAIProvider_ChatCompletionStream_RetriesConnectionFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "upstream hiccup", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		sseChunk(t, w, "ok")
		sseDone(w)
	}))
	defer srv.Close()

	p := NewOpenAIProvider("test-key", srv.URL, "m", 3, zerolog.Nop())
	ch, err := p.ChatCompletionStream(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("expected third attempt to succeed, got %v", err)
	}
	text, terminal := collect(t, ch)
	if terminal.Err != nil || text != "ok" {
		t.Fatalf("unexpected stream result %q / %v", text, terminal.Err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 connection attempts, got %d", got)
	}
}

func TestOpenAIProvider_ChatCompletionStream_ExhaustedRetries_ReturnsError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewOpenAIProvider("test-key", srv.URL, "m", 2, zerolog.Nop())
	_, err := p.ChatCompletionStream(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("expected exactly 2 attempts, got %d", got)
	}
}

func TestOpenAIProvider_ChatCompletionStream_CancelMidStream(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		sseChunk(t, w, "partial")
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := NewOpenAIProvider("test-key", srv.URL, "m", 1, zerolog.Nop())
	ch, err := p.ChatCompletionStream(ctx, ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("ChatCompletionStream failed: %v", err)
	}

	first := <-ch
	if first.Content != "partial" {
		t.Fatalf("expected first fragment, got %+v", first)
	}
	cancel()

	var terminal StreamDelta
	for delta := range ch {
		terminal = delta
	}
	if !errors.Is(terminal.Err, context.Canceled) {
		t.Errorf("expected context.Canceled terminal delta, got %+v", terminal)
	}
}

func TestOpenAIProvider_ModelInfo(t *testing.T) {
	t.Parallel()

	p := NewOpenAIProvider("k", "http://example.test/v1", "gpt-4o-mini", 3, zerolog.Nop())
	info := p.ModelInfo()
	if info.ID != "gpt-4o-mini" || info.Provider != "openai" {
		t.Errorf("unexpected model info %+v", info)
	}
	if info.BaseURL != "http://example.test/v1" {
		t.Errorf("unexpected base URL %q", info.BaseURL)
	}
}

func TestOpenAIProvider_HealthCheck_DownEndpoint_ReturnsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewOpenAIProvider("k", srv.URL, "m", 1, zerolog.Nop())
	if err := p.HealthCheck(context.Background()); err == nil {
		t.Error("expected healthcheck error for failing endpoint")
	}
}
