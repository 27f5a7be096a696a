package mcpserver

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aiamblichus/mcp-chat-adapter/internal/domain/chat"
	"github.com/aiamblichus/mcp-chat-adapter/internal/domain/conversation"
)

// progressTotal is the fixed denominator reported with every progress tick.
const progressTotal = 100

type createConversationArgs struct {
	Model        string                           `json:"model,omitempty"`
	SystemPrompt *string                          `json:"system_prompt,omitempty"`
	Parameters   *conversation.ParameterOverrides `json:"parameters,omitempty"`
	Metadata     conversation.Metadata            `json:"metadata,omitempty"`
}

type createConversationResult struct {
	Conversation *conversation.Conversation `json:"conversation"`
}

type chatArgs struct {
	ConversationID string                           `json:"conversation_id"`
	Message        string                           `json:"message"`
	Parameters     *conversation.ParameterOverrides `json:"parameters,omitempty"`
}

type chatResult struct {
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
}

type listConversationsArgs struct {
	Filter *listFilter `json:"filter,omitempty"`
	Limit  int         `json:"limit,omitempty"`
	Offset int         `json:"offset,omitempty"`
}

type listConversationsResult struct {
	Conversations []conversation.Summary `json:"conversations"`
	Total         int                    `json:"total"`
}

type getConversationArgs struct {
	ConversationID string `json:"conversation_id"`
}

type getConversationResult struct {
	Conversation *conversation.Conversation `json:"conversation"`
}

type deleteConversationArgs struct {
	ConversationID string `json:"conversation_id"`
}

type deleteConversationResult struct {
	Deleted bool `json:"deleted"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "create_conversation",
		Description: "Create a new conversation. Unset fields fall back to server defaults.",
	}, s.handleCreateConversation)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "chat",
		Description: "Send a message to a conversation and return the assistant's reply. Emits progress notifications when the request carries a progress token.",
	}, s.handleChat)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_conversations",
		Description: "List conversation summaries, most recently updated first. Supports tag and creation-date filters plus limit/offset pagination.",
	}, s.handleListConversations)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_conversation",
		Description: "Fetch a conversation's full transcript and metadata by ID.",
	}, s.handleGetConversation)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "delete_conversation",
		Description: "Delete a conversation by ID.",
	}, s.handleDeleteConversation)
}

func (s *Server) handleCreateConversation(ctx context.Context, _ *mcp.CallToolRequest, in createConversationArgs) (*mcp.CallToolResult, createConversationResult, error) {
	if err := validateOverrides(in.Parameters); err != nil {
		return nil, createConversationResult{}, err
	}
	conv, err := s.conversations.Create(ctx, conversation.CreateInput{
		Model:        in.Model,
		SystemPrompt: in.SystemPrompt,
		Parameters:   in.Parameters,
		Metadata:     in.Metadata,
	})
	if err != nil {
		return nil, createConversationResult{}, err
	}
	s.log.Info().Str("id", conv.ID).Str("model", conv.Model).Msg("tool: conversation created")
	return nil, createConversationResult{Conversation: conv}, nil
}

// taskSeq disambiguates concurrent chat calls on the same conversation.
var taskSeq atomic.Uint64

func (s *Server) handleChat(ctx context.Context, req *mcp.CallToolRequest, in chatArgs) (*mcp.CallToolResult, chatResult, error) {
	if err := validateOverrides(in.Parameters); err != nil {
		return nil, chatResult{}, err
	}

	taskID := fmt.Sprintf("%s-%d", in.ConversationID, taskSeq.Add(1))
	if token := req.Params.GetProgressToken(); token != nil {
		s.progress.register(taskID, func(pe chat.ProgressEvent) {
			err := req.Session.NotifyProgress(ctx, &mcp.ProgressNotificationParams{
				ProgressToken: token,
				Progress:      float64(pe.Progress),
				Total:         progressTotal,
			})
			if err != nil {
				s.log.Debug().Err(err).Str("task", taskID).Msg("progress notification failed")
			}
		})
		defer s.progress.unregister(taskID)
	}

	text, err := s.turns.Chat(ctx, chat.Input{
		TaskID:         taskID,
		ConversationID: in.ConversationID,
		Message:        in.Message,
		Parameters:     in.Parameters,
	})
	if err != nil {
		return nil, chatResult{}, err
	}
	return nil, chatResult{ConversationID: in.ConversationID, Text: text}, nil
}

func (s *Server) handleListConversations(ctx context.Context, _ *mcp.CallToolRequest, in listConversationsArgs) (*mcp.CallToolResult, listConversationsResult, error) {
	summaries, err := s.conversations.List(ctx)
	if err != nil {
		return nil, listConversationsResult{}, err
	}
	filtered, err := applyFilter(summaries, in.Filter)
	if err != nil {
		return nil, listConversationsResult{}, err
	}
	page := paginate(filtered, in.Limit, in.Offset)
	return nil, listConversationsResult{Conversations: page, Total: len(filtered)}, nil
}

func (s *Server) handleGetConversation(ctx context.Context, _ *mcp.CallToolRequest, in getConversationArgs) (*mcp.CallToolResult, getConversationResult, error) {
	if in.ConversationID == "" {
		return nil, getConversationResult{}, &chat.ValidationError{Field: "conversation_id", Reason: "must not be empty"}
	}
	conv, err := s.conversations.Get(ctx, in.ConversationID)
	if err != nil {
		return nil, getConversationResult{}, err
	}
	return nil, getConversationResult{Conversation: conv}, nil
}

func (s *Server) handleDeleteConversation(ctx context.Context, _ *mcp.CallToolRequest, in deleteConversationArgs) (*mcp.CallToolResult, deleteConversationResult, error) {
	if in.ConversationID == "" {
		return nil, deleteConversationResult{}, &chat.ValidationError{Field: "conversation_id", Reason: "must not be empty"}
	}
	deleted := s.conversations.Delete(ctx, in.ConversationID)
	s.log.Info().Str("id", in.ConversationID).Bool("deleted", deleted).Msg("tool: conversation delete")
	return nil, deleteConversationResult{Deleted: deleted}, nil
}

// validateOverrides rejects sampling values outside the ranges the upstream
// API accepts, before any state is touched.
func validateOverrides(o *conversation.ParameterOverrides) error {
	if o == nil {
		return nil
	}
	if o.Temperature != nil && (*o.Temperature < 0 || *o.Temperature > 2) {
		return &chat.ValidationError{Field: "temperature", Reason: "must be between 0 and 2"}
	}
	if o.TopP != nil && (*o.TopP < 0 || *o.TopP > 1) {
		return &chat.ValidationError{Field: "top_p", Reason: "must be between 0 and 1"}
	}
	if o.MaxTokens != nil && *o.MaxTokens <= 0 {
		return &chat.ValidationError{Field: "max_tokens", Reason: "must be positive"}
	}
	if o.FrequencyPenalty != nil && (*o.FrequencyPenalty < -2 || *o.FrequencyPenalty > 2) {
		return &chat.ValidationError{Field: "frequency_penalty", Reason: "must be between -2 and 2"}
	}
	if o.PresencePenalty != nil && (*o.PresencePenalty < -2 || *o.PresencePenalty > 2) {
		return &chat.ValidationError{Field: "presence_penalty", Reason: "must be between -2 and 2"}
	}
	return nil
}
