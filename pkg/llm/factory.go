// Package llm builds chat models and runs prompts against them with retry
// and reply parsing.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	einoollama "github.com/cloudwego/eino-ext/components/model/ollama"
	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// Supported providers.
const (
	ProviderDeepSeek = "deepseek"
	ProviderOpenAI   = "openai"
	ProviderOllama   = "ollama"
)

// Provider defaults.
const (
	DefaultDeepSeekBaseURL = "https://api.deepseek.com"
	DefaultOllamaBaseURL   = "http://localhost:11434"
	DefaultTimeout         = 60 * time.Second
)

// Sentinel errors for model construction.
var (
	ErrUnknownProvider = errors.New("unknown llm provider")
	ErrMissingAPIKey   = errors.New("missing llm api key")
)

// Config selects and configures a chat model. It is passed explicitly to
// every component that talks to the model.
type Config struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
}

// Factory creates a chat model from cfg. Commands take a Factory so tests
// can substitute an in-memory model.
type Factory func(ctx context.Context, cfg Config) (model.BaseChatModel, error)

// NewChatModel is the default Factory.
func NewChatModel(ctx context.Context, cfg Config) (model.BaseChatModel, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	switch cfg.Provider {
	case ProviderDeepSeek, ProviderOpenAI:
		return newOpenAICompatible(ctx, cfg, timeout)
	case ProviderOllama:
		return newOllama(ctx, cfg, timeout)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

func newOpenAICompatible(ctx context.Context, cfg Config, timeout time.Duration) (model.BaseChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w for provider %s", ErrMissingAPIKey, cfg.Provider)
	}

	modelConfig := &einoopenai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		Timeout: timeout,
	}

	switch {
	case cfg.BaseURL != "":
		modelConfig.BaseURL = cfg.BaseURL
	case cfg.Provider == ProviderDeepSeek:
		modelConfig.BaseURL = DefaultDeepSeekBaseURL
	}

	chatModel, err := einoopenai.NewChatModel(ctx, modelConfig)
	if err != nil {
		return nil, fmt.Errorf("create %s model: %w", cfg.Provider, err)
	}

	return chatModel, nil
}

func newOllama(ctx context.Context, cfg Config, timeout time.Duration) (model.BaseChatModel, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultOllamaBaseURL
	}

	chatModel, err := einoollama.NewChatModel(ctx, &einoollama.ChatModelConfig{
		BaseURL: baseURL,
		Model:   cfg.Model,
		Timeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create ollama model: %w", err)
	}

	return chatModel, nil
}
