// Package chat drives streaming chat turns: exactly one remote completion
// call per turn, folded back into conversation state.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aiamblichus/mcp-chat-adapter/internal/domain/conversation"
	"github.com/aiamblichus/mcp-chat-adapter/internal/infra/eventbus"
	"github.com/aiamblichus/mcp-chat-adapter/internal/infra/llm"
)

// DefaultTimeout bounds one streaming turn wall-clock.
const DefaultTimeout = 7 * time.Minute

// Conversations is the slice of the conversation manager the orchestrator
// needs.
type Conversations interface {
	Get(ctx context.Context, id string) (*conversation.Conversation, error)
	AppendMessage(ctx context.Context, id, role, content string) (*conversation.Conversation, error)
}

// Config holds orchestrator tuning.
type Config struct {
	// Defaults is the process-wide sampling parameter set, used when a
	// conversation record predates stored parameters.
	Defaults conversation.Parameters

	// Timeout bounds one turn. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Orchestrator executes chat turns. Turns on different conversations run
// concurrently; turns on the same conversation are serialized by a keyed
// mutex held across the whole append→stream→append sequence.
type Orchestrator struct {
	conversations Conversations
	router        *llm.Router
	bus           eventbus.EventBus
	cfg           Config
	turns         *conversation.KeyedMutex
	log           zerolog.Logger

	inflight sync.Map // task ID → *Task
}

// NewOrchestrator wires an Orchestrator.
func NewOrchestrator(conversations Conversations, router *llm.Router, bus eventbus.EventBus, cfg Config, log zerolog.Logger) *Orchestrator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Orchestrator{
		conversations: conversations,
		router:        router,
		bus:           bus,
		cfg:           cfg,
		turns:         conversation.NewKeyedMutex(),
		log:           log,
	}
}

// Input is one chat turn request.
type Input struct {
	// TaskID correlates progress events with the caller's progress token.
	// Generated when empty.
	TaskID         string
	ConversationID string
	Message        string
	Parameters     *conversation.ParameterOverrides
}

// Cancel aborts the in-flight turn with the given task ID, if any.
func (o *Orchestrator) Cancel(taskID string) bool {
	t, ok := o.inflight.Load(taskID)
	if !ok {
		return false
	}
	return t.(*Task).Cancel()
}

// Chat runs one turn: persist the user message, stream the completion,
// persist the assistant message, return the final text. The remote API is
// never invoked for a turn whose user message was not persisted, and an
// assistant message is persisted in full or not at all.
func (o *Orchestrator) Chat(ctx context.Context, in Input) (string, error) {
	if in.ConversationID == "" {
		return "", &ValidationError{Field: "conversation_id", Reason: "must not be empty"}
	}
	if strings.TrimSpace(in.Message) == "" {
		return "", &ValidationError{Field: "message", Reason: "must not be empty"}
	}

	task := newTask(in.TaskID, in.ConversationID, o.cfg.Timeout)
	o.inflight.Store(task.ID, task)
	defer o.inflight.Delete(task.ID)
	o.progress(task, 0)

	unlock := o.turns.Lock(in.ConversationID)
	defer unlock()

	conv, err := o.conversations.Get(ctx, in.ConversationID)
	if err != nil {
		return "", o.failed(task, err)
	}

	base := o.cfg.Defaults
	if conv.Parameters != nil {
		base = *conv.Parameters
	}
	params := in.Parameters.Apply(base)

	// The user message must be durable before the remote call is opened.
	conv, err = o.conversations.AppendMessage(ctx, in.ConversationID, conversation.RoleUser, in.Message)
	if err != nil {
		return "", o.failed(task, err)
	}
	task.Status = StatusProcessing

	turnCtx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()
	task.bindCancel(cancel)

	provider, err := o.router.Route(ctx)
	if err != nil {
		return "", o.failed(task, err)
	}

	stream, err := provider.ChatCompletionStream(turnCtx, llm.ChatRequest{
		Model:            conv.Model,
		Messages:         toLLMMessages(conv.Messages),
		Temperature:      params.Temperature,
		MaxTokens:        params.MaxTokens,
		TopP:             params.TopP,
		FrequencyPenalty: params.FrequencyPenalty,
		PresencePenalty:  params.PresencePenalty,
	})
	if err != nil {
		return "", o.failed(task, o.classify(turnCtx, err))
	}

	var text strings.Builder
	// Heuristic progress: a counter running 30 toward 80, one tick per
	// chunk, reported every tick below 40 and every 5th above to bound
	// reporting volume on long streams.
	counter := 30
	for delta := range stream {
		if delta.Err != nil {
			// Partial content is discarded, never persisted.
			return "", o.failed(task, o.classify(turnCtx, delta.Err))
		}
		if delta.Done {
			break
		}
		text.WriteString(delta.Content)
		if counter < 40 || counter%5 == 0 {
			o.progress(task, counter)
		}
		if counter < 79 {
			counter++
		}
	}
	o.progress(task, 80)

	result := text.String()
	if _, err := o.conversations.AppendMessage(ctx, in.ConversationID, conversation.RoleAssistant, result); err != nil {
		return "", o.failed(task, err)
	}
	o.progress(task, 100)

	task.complete(result)
	o.bus.Publish(TopicCompleted, TurnEvent{
		TaskID:         task.ID,
		ConversationID: task.ConversationID,
		Status:         StatusComplete,
	})
	o.log.Debug().Str("task", task.ID).Str("conversation", task.ConversationID).Msg("turn complete")
	return result, nil
}

// classify maps a stream failure to the error taxonomy: deadline and
// cancellation become TimeoutError, everything else stays a remote failure.
func (o *Orchestrator) classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(ctx.Err(), context.Canceled) {
		return &TimeoutError{Err: err}
	}
	return fmt.Errorf("completion stream: %w", err)
}

func (o *Orchestrator) failed(task *Task, err error) error {
	task.fail(err)
	o.bus.Publish(TopicFailed, TurnEvent{
		TaskID:         task.ID,
		ConversationID: task.ConversationID,
		Status:         StatusError,
		Error:          err.Error(),
	})
	o.log.Warn().Str("task", task.ID).Str("conversation", task.ConversationID).Err(err).Msg("turn failed")
	return err
}

func (o *Orchestrator) progress(task *Task, p int) {
	task.Progress = p
	o.bus.Publish(TopicProgress, ProgressEvent{
		TaskID:         task.ID,
		ConversationID: task.ConversationID,
		Progress:       p,
		Total:          100,
	})
}

func toLLMMessages(msgs []conversation.Message) []llm.Message {
	out := make([]llm.Message, len(msgs))
	for i, m := range msgs {
		out[i] = llm.Message{Role: m.Role, Content: m.Content}
	}
	return out
}
