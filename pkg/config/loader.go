package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".papersift"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for papersift settings.
const envPrefix = "PAPERSIFT"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:              DefaultLLMProvider,
			Model:                 DefaultLLMModel,
			BaseURL:               DefaultLLMBaseURL,
			APIKey:                DefaultLLMAPIKey,
			APIKeyEnv:             DefaultLLMAPIKeyEnv,
			Timeout:               DefaultLLMTimeout,
			MaxRetries:            DefaultLLMMaxRetries,
			RetryInitial:          DefaultLLMRetryInitial,
			FilterTemperature:     DefaultLLMFilterTemperature,
			CategorizeTemperature: DefaultLLMCategorizeTemperature,
		},
		Pipeline: PipelineConfig{
			BatchSize:        DefaultPipelineBatchSize,
			Sleep:            DefaultPipelineSleep,
			AbstractMaxChars: DefaultPipelineAbstractMaxChars,
		},
		Checkpoint: CheckpointConfig{
			Dir:      DefaultCheckpointDir,
			Compress: DefaultCheckpointCompress,
		},
		Observability: ObservabilityConfig{
			LogLevel:     DefaultLogLevel,
			LogJSON:      DefaultLogJSON,
			OTLPEndpoint: DefaultOTLPEndpoint,
			OTLPInsecure: DefaultOTLPInsecure,
			MetricsAddr:  DefaultMetricsAddr,
		},
	}
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("llm.provider", DefaultLLMProvider)
	viperCfg.SetDefault("llm.model", DefaultLLMModel)
	viperCfg.SetDefault("llm.base_url", DefaultLLMBaseURL)
	viperCfg.SetDefault("llm.api_key", DefaultLLMAPIKey)
	viperCfg.SetDefault("llm.api_key_env", DefaultLLMAPIKeyEnv)
	viperCfg.SetDefault("llm.timeout", DefaultLLMTimeout)
	viperCfg.SetDefault("llm.max_retries", DefaultLLMMaxRetries)
	viperCfg.SetDefault("llm.retry_initial", DefaultLLMRetryInitial)
	viperCfg.SetDefault("llm.filter_temperature", DefaultLLMFilterTemperature)
	viperCfg.SetDefault("llm.categorize_temperature", DefaultLLMCategorizeTemperature)

	viperCfg.SetDefault("pipeline.batch_size", DefaultPipelineBatchSize)
	viperCfg.SetDefault("pipeline.sleep", DefaultPipelineSleep)
	viperCfg.SetDefault("pipeline.abstract_max_chars", DefaultPipelineAbstractMaxChars)

	viperCfg.SetDefault("checkpoint.dir", DefaultCheckpointDir)
	viperCfg.SetDefault("checkpoint.compress", DefaultCheckpointCompress)

	viperCfg.SetDefault("observability.log_level", DefaultLogLevel)
	viperCfg.SetDefault("observability.log_json", DefaultLogJSON)
	viperCfg.SetDefault("observability.otlp_endpoint", DefaultOTLPEndpoint)
	viperCfg.SetDefault("observability.otlp_insecure", DefaultOTLPInsecure)
	viperCfg.SetDefault("observability.metrics_addr", DefaultMetricsAddr)
}
