// mcp-chat-adapter - MCP adapter for OpenAI-compatible chat completion APIs

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aiamblichus/mcp-chat-adapter/internal/domain/chat"
	"github.com/aiamblichus/mcp-chat-adapter/internal/domain/conversation"
	"github.com/aiamblichus/mcp-chat-adapter/internal/infra/config"
	"github.com/aiamblichus/mcp-chat-adapter/internal/infra/eventbus"
	"github.com/aiamblichus/mcp-chat-adapter/internal/infra/llm"
	"github.com/aiamblichus/mcp-chat-adapter/internal/mcpserver"
	"github.com/aiamblichus/mcp-chat-adapter/internal/server"
	"github.com/aiamblichus/mcp-chat-adapter/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("mcp-chat-adapter", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	showVersion := fs.Bool("version", false, "Show version information")
	showHelp := fs.Bool("help", false, "Show help")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintln(out, version.String()) //nolint:errcheck
		return 0
	}

	if *showHelp {
		printHelp(out)
		return 0
	}

	if err := serve(); err != nil {
		fmt.Fprintf(os.Stderr, "mcp-chat-adapter: %v\n", err)
		return 1
	}
	return 0
}

func serve() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	store := conversation.NewStore(cfg.StorageDir, log)
	defaults := conversation.Parameters{
		Temperature:      cfg.Temperature,
		MaxTokens:        cfg.MaxTokens,
		TopP:             cfg.TopP,
		FrequencyPenalty: cfg.FrequencyPenalty,
		PresencePenalty:  cfg.PresencePenalty,
	}
	manager := conversation.NewManager(store, conversation.ManagerConfig{
		DefaultModel:        cfg.DefaultModel,
		DefaultSystemPrompt: cfg.DefaultSystemPrompt,
		DefaultParameters:   defaults,
		MaxConversations:    cfg.MaxConversations,
	}, log)

	provider := llm.NewOpenAIProvider(cfg.APIKey, cfg.APIBase, cfg.DefaultModel, cfg.MaxRetries, log)
	router := llm.NewRouter(map[string]llm.Provider{"openai": provider}, "openai")

	bus := eventbus.New()
	orchestrator := chat.NewOrchestrator(manager, router, bus, chat.Config{
		Defaults: defaults,
		Timeout:  cfg.Timeout,
	}, log)

	mcpSrv := mcpserver.New(manager, orchestrator, bus, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.HTTPAddr == "" {
		return mcpSrv.Run(ctx)
	}

	httpCfg := server.DefaultConfig(cfg.HTTPAddr)
	httpCfg.JWTSecret = cfg.JWTSecret
	httpSrv := server.New(httpCfg, mcpSrv.HTTPHandler(), provider, log)

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	// Logs go to stderr: stdout belongs to the stdio MCP transport.
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

func printHelp(out io.Writer) {
	helpText := `mcp-chat-adapter - MCP adapter for OpenAI-compatible chat completion APIs

Usage:
  mcp-chat-adapter [options]

Options:
  --version    Show version information
  --help       Show this help message

Configuration (environment variables):
  OPENAI_API_KEY       API key for the upstream completion API (required)
  OPENAI_API_BASE      Base URL for OpenAI-compatible endpoints
  CONVERSATION_DIR     Directory for conversation files (default: conversations)
  HTTP_ADDR            Listen address for HTTP transport (default: stdio)
  JWT_SECRET           Enables bearer auth on the HTTP transport
  CONFIG_FILE          Optional YAML file overlaid on the environment

Examples:
  OPENAI_API_KEY=sk-... mcp-chat-adapter
  HTTP_ADDR=:8080 mcp-chat-adapter`
	fmt.Fprintln(out, helpText) //nolint:errcheck
}
