// Package llm adapts OpenAI-compatible completion APIs behind the Provider
// interface. OpenAIProvider drives any endpoint speaking the OpenAI
// chat-completions protocol (api.openai.com, vLLM, LiteLLM, ...) via
// sashabaranov/go-openai.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

const retryBackoff = 500 * time.Millisecond

// OpenAIProvider implements Provider against an OpenAI-compatible API.
type OpenAIProvider struct {
	client     *openai.Client
	model      string
	baseURL    string
	maxRetries int
	log        zerolog.Logger
}

// NewOpenAIProvider creates an adapter for the given endpoint. baseURL may
// be empty to use the official API. maxRetries bounds connection-
// establishment retries; it never re-issues a request once streaming
// content has begun.
func NewOpenAIProvider(apiKey, baseURL, model string, maxRetries int, log zerolog.Logger) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &OpenAIProvider{
		client:     openai.NewClientWithConfig(cfg),
		model:      model,
		baseURL:    cfg.BaseURL,
		maxRetries: maxRetries,
		log:        log,
	}
}

// ChatCompletionStream opens the streaming call and pumps fragments into
// the returned channel. Opening the stream is retried up to maxRetries
// times; once the first byte has been received there are no retries, so a
// flaky stream can never produce duplicate partial completions.
func (p *OpenAIProvider) ChatCompletionStream(ctx context.Context, req ChatRequest) (<-chan StreamDelta, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	msgs := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	apiReq := openai.ChatCompletionRequest{
		Model:            model,
		Messages:         msgs,
		Temperature:      float32(req.Temperature),
		MaxTokens:        req.MaxTokens,
		TopP:             float32(req.TopP),
		FrequencyPenalty: float32(req.FrequencyPenalty),
		PresencePenalty:  float32(req.PresencePenalty),
		Stream:           true,
	}

	stream, err := p.openStream(ctx, apiReq)
	if err != nil {
		return nil, fmt.Errorf("openai stream: %w", err)
	}

	ch := make(chan StreamDelta)
	go func() {
		defer close(ch)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				ch <- StreamDelta{Done: true}
				return
			}
			if err != nil {
				if ctx.Err() != nil {
					err = ctx.Err()
				}
				ch <- StreamDelta{Err: err}
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			ch <- StreamDelta{Content: resp.Choices[0].Delta.Content}
		}
	}()
	return ch, nil
}

// openStream establishes the streaming connection with bounded retries.
func (p *OpenAIProvider) openStream(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionStream, error) {
	var lastErr error
	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		stream, err := p.client.CreateChatCompletionStream(ctx, req)
		if err == nil {
			return stream, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.log.Warn().Int("attempt", attempt).Err(err).Msg("completion connection failed")
		if attempt == p.maxRetries {
			break
		}
		select {
		case <-time.After(time.Duration(attempt) * retryBackoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// ModelInfo returns static metadata for this provider/model.
func (p *OpenAIProvider) ModelInfo() ModelMeta {
	return ModelMeta{
		ID:       p.model,
		Provider: "openai",
		BaseURL:  p.baseURL,
	}
}

// HealthCheck lists models and returns nil if the endpoint is reachable.
func (p *OpenAIProvider) HealthCheck(ctx context.Context) error {
	if _, err := p.client.ListModels(ctx); err != nil {
		return fmt.Errorf("openai healthcheck: %w", err)
	}
	return nil
}
