// Package config loads papersift settings from .papersift.yaml, PAPERSIFT_
// environment variables, and built-in defaults.
package config

import "time"

// LLM defaults.
const (
	DefaultLLMProvider              = "deepseek"
	DefaultLLMModel                 = "deepseek-chat"
	DefaultLLMBaseURL               = ""
	DefaultLLMAPIKey                = ""
	DefaultLLMAPIKeyEnv             = "DEEPSEEK_API_KEY"
	DefaultLLMTimeout               = 60 * time.Second
	DefaultLLMMaxRetries            = 2
	DefaultLLMRetryInitial          = 800 * time.Millisecond
	DefaultLLMFilterTemperature     = 0.1
	DefaultLLMCategorizeTemperature = 0.2
)

// Pipeline defaults.
const (
	DefaultPipelineBatchSize        = 8
	DefaultPipelineSleep            = 800 * time.Millisecond
	DefaultPipelineAbstractMaxChars = 1600
)

// Checkpoint defaults.
const (
	DefaultCheckpointDir      = ""
	DefaultCheckpointCompress = false
)

// Observability defaults.
const (
	DefaultLogLevel     = "info"
	DefaultLogJSON      = false
	DefaultOTLPEndpoint = ""
	DefaultOTLPInsecure = false
	DefaultMetricsAddr  = ""
)
