package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"
)

// Sentinel validation errors.
var (
	ErrInvalidProvider       = errors.New("invalid llm provider")
	ErrInvalidModel          = errors.New("llm model must be set")
	ErrInvalidTimeout        = errors.New("llm timeout must be positive")
	ErrInvalidMaxRetries     = errors.New("llm max retries must not be negative")
	ErrInvalidRetryInitial   = errors.New("llm retry initial delay must not be negative")
	ErrInvalidTemperature    = errors.New("llm temperature must be between 0 and 2")
	ErrInvalidBatchSize      = errors.New("batch size must be positive")
	ErrInvalidSleep          = errors.New("sleep must not be negative")
	ErrInvalidAbstractLength = errors.New("abstract max chars must not be negative")
	ErrInvalidLogLevel       = errors.New("invalid log level")
)

const maxTemperature = 2

// Providers lists the supported LLM providers.
var Providers = []string{"deepseek", "openai", "ollama"}

// LogLevels lists the accepted log levels.
var LogLevels = []string{"debug", "info", "warn", "error"}

// Config is the top-level papersift configuration.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	LLM           LLMConfig           `mapstructure:"llm"`
	Pipeline      PipelineConfig      `mapstructure:"pipeline"`
	Checkpoint    CheckpointConfig    `mapstructure:"checkpoint"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// LLMConfig selects and tunes the chat model.
type LLMConfig struct {
	Provider              string        `mapstructure:"provider"`
	Model                 string        `mapstructure:"model"`
	BaseURL               string        `mapstructure:"base_url"`
	APIKey                string        `mapstructure:"api_key"`
	APIKeyEnv             string        `mapstructure:"api_key_env"`
	Timeout               time.Duration `mapstructure:"timeout"`
	MaxRetries            int           `mapstructure:"max_retries"`
	RetryInitial          time.Duration `mapstructure:"retry_initial"`
	FilterTemperature     float64       `mapstructure:"filter_temperature"`
	CategorizeTemperature float64       `mapstructure:"categorize_temperature"`
}

// ResolveAPIKey returns the configured key, or the value of the named
// environment variable when no key is configured.
func (c LLMConfig) ResolveAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}

	if c.APIKeyEnv == "" {
		return ""
	}

	return os.Getenv(c.APIKeyEnv)
}

// PipelineConfig holds batching knobs shared by the LLM stages.
type PipelineConfig struct {
	BatchSize        int           `mapstructure:"batch_size"`
	Sleep            time.Duration `mapstructure:"sleep"`
	AbstractMaxChars int           `mapstructure:"abstract_max_chars"`
}

// CheckpointConfig controls where and how run state is kept.
type CheckpointConfig struct {
	Dir      string `mapstructure:"dir"`
	Compress bool   `mapstructure:"compress"`
}

// ObservabilityConfig holds logging, tracing, and metrics settings.
type ObservabilityConfig struct {
	LogLevel     string `mapstructure:"log_level"`
	LogJSON      bool   `mapstructure:"log_json"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
	MetricsAddr  string `mapstructure:"metrics_addr"`
}

// Validate checks all fields for consistency.
func (c *Config) Validate() error {
	llmErr := c.validateLLM()
	if llmErr != nil {
		return llmErr
	}

	pipelineErr := c.validatePipeline()
	if pipelineErr != nil {
		return pipelineErr
	}

	if !slices.Contains(LogLevels, strings.ToLower(c.Observability.LogLevel)) {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Observability.LogLevel)
	}

	return nil
}

func (c *Config) validateLLM() error {
	if !slices.Contains(Providers, strings.ToLower(c.LLM.Provider)) {
		return fmt.Errorf("%w: %q", ErrInvalidProvider, c.LLM.Provider)
	}

	if strings.TrimSpace(c.LLM.Model) == "" {
		return ErrInvalidModel
	}

	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, c.LLM.Timeout)
	}

	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxRetries, c.LLM.MaxRetries)
	}

	if c.LLM.RetryInitial < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRetryInitial, c.LLM.RetryInitial)
	}

	for _, temp := range []float64{c.LLM.FilterTemperature, c.LLM.CategorizeTemperature} {
		if temp < 0 || temp > maxTemperature {
			return fmt.Errorf("%w: %g", ErrInvalidTemperature, temp)
		}
	}

	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.BatchSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBatchSize, c.Pipeline.BatchSize)
	}

	if c.Pipeline.Sleep < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidSleep, c.Pipeline.Sleep)
	}

	if c.Pipeline.AbstractMaxChars < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAbstractLength, c.Pipeline.AbstractMaxChars)
	}

	return nil
}
