// Package config provides application-wide configuration loaded from env
// vars, optionally overlaid by a YAML file. All fields have safe defaults so
// the binary runs locally with nothing but an API key set.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration for the chat adapter.
type Config struct {
	// Remote completion API
	APIKey     string        `yaml:"api_key"`     // OPENAI_API_KEY
	APIBase    string        `yaml:"api_base"`    // OPENAI_API_BASE, default: official endpoint
	MaxRetries int           `yaml:"max_retries"` // CHAT_MAX_RETRIES, connect retries, default: 3
	Timeout    time.Duration `yaml:"timeout"`     // CHAT_TIMEOUT, per-turn wall clock, default: 7m

	// Conversation defaults
	DefaultModel        string `yaml:"default_model"`         // DEFAULT_MODEL, default: "gpt-4o-mini"
	DefaultSystemPrompt string `yaml:"default_system_prompt"` // DEFAULT_SYSTEM_PROMPT

	// Sampling defaults (applied per-field when neither the conversation
	// nor the turn overrides them)
	Temperature      float64 `yaml:"temperature"`       // DEFAULT_TEMPERATURE, default: 0.7
	MaxTokens        int     `yaml:"max_tokens"`        // DEFAULT_MAX_TOKENS, default: 1024
	TopP             float64 `yaml:"top_p"`             // DEFAULT_TOP_P, default: 1.0
	FrequencyPenalty float64 `yaml:"frequency_penalty"` // DEFAULT_FREQUENCY_PENALTY, default: 0
	PresencePenalty  float64 `yaml:"presence_penalty"`  // DEFAULT_PRESENCE_PENALTY, default: 0

	// Storage
	StorageDir       string `yaml:"storage_dir"`       // CONVERSATION_DIR, default: "conversations"
	MaxConversations int    `yaml:"max_conversations"` // MAX_CONVERSATIONS, 0 = unlimited

	// Transport
	HTTPAddr  string `yaml:"http_addr"`  // HTTP_ADDR, empty = stdio transport
	JWTSecret string `yaml:"jwt_secret"` // JWT_SECRET, empty = no HTTP auth
	LogLevel  string `yaml:"log_level"`  // LOG_LEVEL, default: "info"
}

const (
	envKeyAPIKey           = "OPENAI_API_KEY"
	envKeyAPIBase          = "OPENAI_API_BASE"
	envKeyMaxRetries       = "CHAT_MAX_RETRIES"
	envKeyTimeout          = "CHAT_TIMEOUT"
	envKeyDefaultModel     = "DEFAULT_MODEL"
	envKeySystemPrompt     = "DEFAULT_SYSTEM_PROMPT"
	envKeyTemperature      = "DEFAULT_TEMPERATURE"
	envKeyMaxTokens        = "DEFAULT_MAX_TOKENS"
	envKeyTopP             = "DEFAULT_TOP_P"
	envKeyFrequencyPenalty = "DEFAULT_FREQUENCY_PENALTY"
	envKeyPresencePenalty  = "DEFAULT_PRESENCE_PENALTY"
	envKeyStorageDir       = "CONVERSATION_DIR"
	envKeyMaxConversations = "MAX_CONVERSATIONS"
	envKeyHTTPAddr         = "HTTP_ADDR"
	envKeyJWTSecret        = "JWT_SECRET"
	envKeyLogLevel         = "LOG_LEVEL"
	envKeyConfigFile       = "CONFIG_FILE"
)

// Load reads configuration from environment variables, applying defaults for
// missing values, then overlays the YAML file named by CONFIG_FILE if set.
func Load() (Config, error) {
	cfg := Config{
		APIKey:              os.Getenv(envKeyAPIKey),
		APIBase:             os.Getenv(envKeyAPIBase),
		MaxRetries:          envIntOr(envKeyMaxRetries, 3),
		Timeout:             envDurationOr(envKeyTimeout, 7*time.Minute),
		DefaultModel:        envOr(envKeyDefaultModel, "gpt-4o-mini"),
		DefaultSystemPrompt: os.Getenv(envKeySystemPrompt),
		Temperature:         envFloatOr(envKeyTemperature, 0.7),
		MaxTokens:           envIntOr(envKeyMaxTokens, 1024),
		TopP:                envFloatOr(envKeyTopP, 1.0),
		FrequencyPenalty:    envFloatOr(envKeyFrequencyPenalty, 0),
		PresencePenalty:     envFloatOr(envKeyPresencePenalty, 0),
		StorageDir:          envOr(envKeyStorageDir, "conversations"),
		MaxConversations:    envIntOr(envKeyMaxConversations, 0),
		HTTPAddr:            os.Getenv(envKeyHTTPAddr),
		JWTSecret:           os.Getenv(envKeyJWTSecret),
		LogLevel:            envOr(envKeyLogLevel, "info"),
	}

	if path := os.Getenv(envKeyConfigFile); path != "" {
		if err := overlayFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// overlayFile applies the YAML file at path on top of cfg. Only keys present
// in the file are touched.
func overlayFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	return nil
}

// envOr returns the value of the environment variable key, or fallback if not set.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envIntOr parses key as an int, falling back on absence or a bad value.
func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// envFloatOr parses key as a float64, falling back on absence or a bad value.
func envFloatOr(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

// envDurationOr parses key as a Go duration ("90s", "7m"), falling back on
// absence or a bad value.
func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
