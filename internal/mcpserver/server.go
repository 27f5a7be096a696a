// Package mcpserver exposes conversation lifecycle and chat turns as MCP
// tools. It is a thin transport shim: schema validation of arguments is the
// SDK's job, semantic validation and all state live in the domain packages.
package mcpserver

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/aiamblichus/mcp-chat-adapter/internal/domain/chat"
	"github.com/aiamblichus/mcp-chat-adapter/internal/domain/conversation"
	"github.com/aiamblichus/mcp-chat-adapter/internal/infra/eventbus"
	"github.com/aiamblichus/mcp-chat-adapter/internal/version"
)

// Conversations is the slice of the conversation manager the tool layer
// needs.
type Conversations interface {
	Create(ctx context.Context, in conversation.CreateInput) (*conversation.Conversation, error)
	Get(ctx context.Context, id string) (*conversation.Conversation, error)
	List(ctx context.Context) ([]conversation.Summary, error)
	Delete(ctx context.Context, id string) bool
}

// Turns runs chat turns.
type Turns interface {
	Chat(ctx context.Context, in chat.Input) (string, error)
}

// Server registers the adapter's tools on an MCP server and routes
// orchestrator progress events to MCP progress notifications.
type Server struct {
	conversations Conversations
	turns         Turns
	progress      *progressRouter
	log           zerolog.Logger
	mcp           *mcp.Server
}

// New builds the MCP server and subscribes to the orchestrator's progress
// topic on bus.
func New(conversations Conversations, turns Turns, bus eventbus.EventBus, log zerolog.Logger) *Server {
	s := &Server{
		conversations: conversations,
		turns:         turns,
		progress:      newProgressRouter(),
		log:           log,
	}
	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "mcp-chat-adapter",
		Version: version.Version,
	}, nil)
	s.registerTools()

	go s.progress.run(bus.Subscribe(chat.TopicProgress))
	return s
}

// Run serves MCP over stdio until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info().Msg("serving MCP over stdio")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler returns the streamable-HTTP handler for this server, for
// mounting under an HTTP router.
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcp
	}, nil)
}
