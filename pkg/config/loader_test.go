package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/papersift/pkg/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".papersift.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig_EmptyFile_UsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, "deepseek", cfg.LLM.Provider)
	assert.Equal(t, 8, cfg.Pipeline.BatchSize)
	assert.Equal(t, 800*time.Millisecond, cfg.Pipeline.Sleep)
	assert.InDelta(t, 0.1, cfg.LLM.FilterTemperature, 1e-9)
	assert.InDelta(t, 0.2, cfg.LLM.CategorizeTemperature, 1e-9)
}

func TestLoadConfig_ValidFile_Unmarshals(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `llm:
  provider: ollama
  model: qwen2.5-coder
  base_url: http://gpu:11434
  timeout: 2m
  max_retries: 4
  retry_initial: 1s
pipeline:
  batch_size: 16
  sleep: 0s
  abstract_max_chars: 800
checkpoint:
  dir: /var/tmp/papersift
  compress: true
observability:
  log_level: debug
  log_json: true
  metrics_addr: ":9464"
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "qwen2.5-coder", cfg.LLM.Model)
	assert.Equal(t, "http://gpu:11434", cfg.LLM.BaseURL)
	assert.Equal(t, 2*time.Minute, cfg.LLM.Timeout)
	assert.Equal(t, 4, cfg.LLM.MaxRetries)
	assert.Equal(t, time.Second, cfg.LLM.RetryInitial)
	assert.Equal(t, 16, cfg.Pipeline.BatchSize)
	assert.Zero(t, cfg.Pipeline.Sleep)
	assert.Equal(t, 800, cfg.Pipeline.AbstractMaxChars)
	assert.Equal(t, "/var/tmp/papersift", cfg.Checkpoint.Dir)
	assert.True(t, cfg.Checkpoint.Compress)
	assert.Equal(t, "debug", cfg.Observability.LogLevel)
	assert.True(t, cfg.Observability.LogJSON)
	assert.Equal(t, ":9464", cfg.Observability.MetricsAddr)
	assert.InDelta(t, config.DefaultLLMFilterTemperature, cfg.LLM.FilterTemperature, 1e-9)
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"provider", "llm:\n  provider: bard\n", config.ErrInvalidProvider},
		{"model", "llm:\n  model: \"\"\n", config.ErrInvalidModel},
		{"timeout", "llm:\n  timeout: 0s\n", config.ErrInvalidTimeout},
		{"retries", "llm:\n  max_retries: -1\n", config.ErrInvalidMaxRetries},
		{"temperature", "llm:\n  filter_temperature: 3\n", config.ErrInvalidTemperature},
		{"batch size", "pipeline:\n  batch_size: 0\n", config.ErrInvalidBatchSize},
		{"sleep", "pipeline:\n  sleep: -1s\n", config.ErrInvalidSleep},
		{"abstract", "pipeline:\n  abstract_max_chars: -5\n", config.ErrInvalidAbstractLength},
		{"log level", "observability:\n  log_level: loud\n", config.ErrInvalidLogLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadConfig(writeConfig(t, tt.content))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(writeConfig(t, "llm: [unclosed"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))

	require.Error(t, err)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("PAPERSIFT_PIPELINE_BATCH_SIZE", "3")
	t.Setenv("PAPERSIFT_LLM_MODEL", "gpt-4o-mini")

	cfg, err := config.LoadConfig(writeConfig(t, "pipeline:\n  batch_size: 20\n"))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Pipeline.BatchSize)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
}

func TestLLMConfig_ResolveAPIKey(t *testing.T) {
	t.Setenv("PAPERSIFT_TEST_KEY", "from-env")

	assert.Equal(t, "explicit", config.LLMConfig{APIKey: "explicit", APIKeyEnv: "PAPERSIFT_TEST_KEY"}.ResolveAPIKey())
	assert.Equal(t, "from-env", config.LLMConfig{APIKeyEnv: "PAPERSIFT_TEST_KEY"}.ResolveAPIKey())
	assert.Empty(t, config.LLMConfig{}.ResolveAPIKey())
}
