package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/Sumatoshi-tech/papersift/pkg/config"
	"github.com/Sumatoshi-tech/papersift/pkg/driver"
	"github.com/Sumatoshi-tech/papersift/pkg/llm"
	"github.com/Sumatoshi-tech/papersift/pkg/observability"
	"github.com/Sumatoshi-tech/papersift/pkg/paper"
	"github.com/Sumatoshi-tech/papersift/pkg/persist"
)

// stageFlags are the flags shared by the resumable LLM stages. Values only
// override the config when the flag is set explicitly.
type stageFlags struct {
	in               string
	reset            bool
	batchSize        int
	sleep            time.Duration
	abstractMaxChars int
	provider         string
	model            string
	baseURL          string
	maxRetries       int
	temperature      float64
	checkpointDir    string
	compress         bool
	metricsAddr      string
}

func (f *stageFlags) register(cmd *cobra.Command, defaultIn string) {
	flags := cmd.Flags()
	flags.StringVar(&f.in, "in", defaultIn, "Input paper list (JSON array)")
	flags.BoolVar(&f.reset, "reset", false, "Discard saved progress and start over")
	flags.IntVar(&f.batchSize, "batch-size", config.DefaultPipelineBatchSize, "Papers per model call")
	flags.DurationVar(&f.sleep, "sleep", config.DefaultPipelineSleep, "Minimum pause between model calls")
	flags.IntVar(&f.abstractMaxChars, "abstract-max-chars", config.DefaultPipelineAbstractMaxChars,
		"Truncate abstracts to this many characters (0 = no limit)")
	flags.StringVar(&f.provider, "provider", config.DefaultLLMProvider, "LLM provider: deepseek, openai, ollama")
	flags.StringVar(&f.model, "model", config.DefaultLLMModel, "Model name")
	flags.StringVar(&f.baseURL, "base-url", "", "API base URL (default depends on provider)")
	flags.IntVar(&f.maxRetries, "max-retries", config.DefaultLLMMaxRetries, "Retries per batch after the first attempt")
	flags.Float64Var(&f.temperature, "temperature", 0, "Sampling temperature (default from config)")
	flags.StringVar(&f.checkpointDir, "checkpoint-dir", "", "Directory for progress and partial files (default: output directory)")
	flags.BoolVar(&f.compress, "compress", false, "LZ4-compress partial result files")
	flags.StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the run")
}

// apply copies explicitly set flags into cfg. temperature points at the
// stage's temperature field.
func (f *stageFlags) apply(cmd *cobra.Command, cfg *config.Config, temperature *float64) {
	changed := cmd.Flags().Changed

	if changed("batch-size") {
		cfg.Pipeline.BatchSize = f.batchSize
	}

	if changed("sleep") {
		cfg.Pipeline.Sleep = f.sleep
	}

	if changed("abstract-max-chars") {
		cfg.Pipeline.AbstractMaxChars = f.abstractMaxChars
	}

	if changed("provider") {
		cfg.LLM.Provider = f.provider
	}

	if changed("model") {
		cfg.LLM.Model = f.model
	}

	if changed("base-url") {
		cfg.LLM.BaseURL = f.baseURL
	}

	if changed("max-retries") {
		cfg.LLM.MaxRetries = f.maxRetries
	}

	if changed("temperature") {
		*temperature = f.temperature
	}

	if changed("checkpoint-dir") {
		cfg.Checkpoint.Dir = f.checkpointDir
	}

	if changed("compress") {
		cfg.Checkpoint.Compress = f.compress
	}

	if changed("metrics-addr") {
		cfg.Observability.MetricsAddr = f.metricsAddr
	}
}

// stageRun describes one invocation of a resumable stage.
type stageRun struct {
	stage   string
	in      string
	outputs []driver.Output
	reset   bool
	newProc func(client *llm.Client, cfg *config.Config) driver.Processor[paper.Paper]
}

// partialCodec returns the codec for partial files.
func partialCodec(compress bool) persist.Codec {
	if compress {
		return persist.NewLZ4Codec(persist.NewJSONCodec())
	}

	return persist.NewJSONCodec()
}

// runStage loads the input, builds the chat model, and drives the stage to
// completion or to a resumable stop.
func (s *session) runStage(ctx context.Context, factory llm.Factory, run stageRun) error {
	s.out.stage = run.stage

	records, err := paper.LoadList(run.in)
	if err != nil {
		return fmt.Errorf("%w: %w", driver.ErrConfiguration, err)
	}

	if len(records) == 0 {
		s.out.Warnf("%s: no papers in %s; nothing to do", run.stage, run.in)

		return nil
	}

	llmCfg := s.cfg.LLM

	chatModel, err := factory(ctx, llm.Config{
		Provider: llmCfg.Provider,
		Model:    llmCfg.Model,
		BaseURL:  llmCfg.BaseURL,
		APIKey:   llmCfg.ResolveAPIKey(),
		Timeout:  llmCfg.Timeout,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", driver.ErrConfiguration, err)
	}

	client := llm.NewClient(chatModel,
		llm.WithRetries(llmCfg.MaxRetries, llmCfg.RetryInitial),
		llm.WithLogger(s.logger),
	)

	metrics, err := observability.NewRunMetrics(s.providers.Meter)
	if err != nil {
		return err
	}

	cfg := driver.Config[paper.Paper]{
		Stage:     run.stage,
		Outputs:   run.outputs,
		BatchSize: s.cfg.Pipeline.BatchSize,
		StateDir:  s.cfg.Checkpoint.Dir,
		Codec:     partialCodec(s.cfg.Checkpoint.Compress),
		Reset:     run.reset,
		Write:     paper.SaveList,
		Logger:    s.logger,
		Metrics:   metrics,
		Observer:  s.out.Observe,
	}

	if s.cfg.Pipeline.Sleep > 0 {
		cfg.Pacer = rate.NewLimiter(rate.Every(s.cfg.Pipeline.Sleep), 1)
	}

	runner, err := driver.New(cfg, run.newProc(client, s.cfg))
	if err != nil {
		return err
	}

	summary, err := runner.Run(ctx, records)
	if err != nil {
		s.out.Stopped(err)

		return err
	}

	s.out.Done(summary)

	return nil
}
