package llm

import "context"

// Provider is the model-agnostic interface for streaming chat completions.
type Provider interface {
	// ChatCompletionStream opens a streaming completion. A non-nil error
	// means connection establishment failed and nothing was streamed; once
	// a channel is returned, failures arrive as a terminal StreamDelta.
	// The returned channel is closed after its terminal delta.
	ChatCompletionStream(ctx context.Context, req ChatRequest) (<-chan StreamDelta, error)

	// ModelInfo returns static metadata about the provider/model.
	ModelInfo() ModelMeta

	// HealthCheck returns nil if the provider is reachable and operational.
	HealthCheck(ctx context.Context) error
}
