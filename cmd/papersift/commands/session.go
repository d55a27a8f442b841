package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/papersift/pkg/config"
	"github.com/Sumatoshi-tech/papersift/pkg/observability"
	"github.com/Sumatoshi-tech/papersift/pkg/version"
)

// session is the per-invocation environment: validated config, telemetry,
// and the user-facing printer.
type session struct {
	cfg       *config.Config
	providers observability.Providers
	logger    *slog.Logger
	out       *printer

	stopMetrics context.CancelFunc
	metricsDone chan error
}

// openSession loads the config, applies flag overrides, validates it, and
// starts telemetry. The caller must close the session.
func (g *globalOptions) openSession(
	cmd *cobra.Command, mode observability.AppMode, override func(*config.Config),
) (*session, error) {
	cfg, err := config.LoadConfig(g.configPath)
	if err != nil {
		return nil, err
	}

	if g.logLevel != "" {
		cfg.Observability.LogLevel = g.logLevel
	}

	if g.logJSON {
		cfg.Observability.LogJSON = true
	}

	if override != nil {
		override(cfg)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, validateErr
	}

	obsCfg, err := g.observabilityConfig(cfg, mode)
	if err != nil {
		return nil, err
	}

	obsCfg.LogOutput = cmd.ErrOrStderr()

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	sess := &session{
		cfg:       cfg,
		providers: providers,
		logger:    providers.Logger,
		out:       newPrinter(cmd.OutOrStdout(), g.noColor),
	}

	if providers.MetricsHandler != nil {
		sess.serveMetrics(cmd.Context(), cfg.Observability.MetricsAddr)
	}

	return sess, nil
}

func (g *globalOptions) observabilityConfig(cfg *config.Config, mode observability.AppMode) (observability.Config, error) {
	level, err := observability.ParseLevel(cfg.Observability.LogLevel)
	if err != nil {
		return observability.Config{}, err
	}

	switch {
	case g.verbose:
		level = slog.LevelDebug
	case g.quiet:
		level = slog.LevelWarn
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Mode = mode
	obsCfg.LogLevel = level
	obsCfg.LogJSON = cfg.Observability.LogJSON || mode == observability.ModeMCP
	obsCfg.OTLPEndpoint = cfg.Observability.OTLPEndpoint
	obsCfg.OTLPInsecure = cfg.Observability.OTLPInsecure
	obsCfg.MetricsAddr = cfg.Observability.MetricsAddr
	obsCfg.DebugTrace = g.verbose
	obsCfg.TraceVerbose = g.verbose

	return obsCfg, nil
}

func (s *session) serveMetrics(ctx context.Context, addr string) {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, s.stopMetrics = context.WithCancel(ctx)
	s.metricsDone = make(chan error, 1)

	go func() {
		s.metricsDone <- observability.ServeMetrics(ctx, addr, s.providers.Tracer, s.providers.MetricsHandler, s.logger)
	}()
}

// close stops the metrics endpoint and flushes telemetry.
func (s *session) close() {
	if s.stopMetrics != nil {
		s.stopMetrics()

		serveErr := <-s.metricsDone
		if serveErr != nil {
			s.logger.Warn("metrics endpoint failed", "error", serveErr)
		}
	}

	shutdownErr := s.providers.Shutdown(context.Background())
	if shutdownErr != nil {
		s.logger.Warn("observability shutdown failed", "error", shutdownErr)
	}
}
