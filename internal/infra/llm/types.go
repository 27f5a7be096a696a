// Package llm defines the model-agnostic chat-completion provider
// abstraction. All types here are shared between the provider interface and
// adapters.
package llm

// Message represents a single turn in a conversation (role + content).
type Message struct {
	Role    string // "system" | "user" | "assistant"
	Content string
}

// ChatRequest is the input for a streaming chat completion. The five
// sampling controls arrive fully resolved; the adapter passes them through
// as-is.
type ChatRequest struct {
	// Model overrides the provider default when non-empty.
	Model            string
	Messages         []Message
	Temperature      float64
	MaxTokens        int
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
}

// StreamDelta is one element of a streaming completion. Exactly one
// terminal delta is sent per stream: either Done or a non-nil Err.
type StreamDelta struct {
	Content string // incremental text fragment, may be empty
	Done    bool   // end-of-stream signal
	Err     error  // stream failure; no further deltas follow
}

// ModelMeta describes the model / provider identity.
type ModelMeta struct {
	ID       string // e.g. "gpt-4o-mini"
	Provider string // e.g. "openai"
	BaseURL  string // endpoint the adapter talks to
}
