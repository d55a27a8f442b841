package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/papersift/pkg/config"
	"github.com/Sumatoshi-tech/papersift/pkg/mcp"
	"github.com/Sumatoshi-tech/papersift/pkg/observability"
	"github.com/Sumatoshi-tech/papersift/pkg/stage/resolve"
	"github.com/Sumatoshi-tech/papersift/pkg/version"
)

func newMCPCommand(opts *globalOptions) *cobra.Command {
	var checkpointDir string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start an MCP server over stdio",
		Long: `Start a Model Context Protocol server on stdin/stdout exposing run status
and category statistics as tools. Logs are written to stderr as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := opts.openSession(cmd, observability.ModeMCP, func(cfg *config.Config) {
				if cmd.Flags().Changed("checkpoint-dir") {
					cfg.Checkpoint.Dir = checkpointDir
				}
			})
			if err != nil {
				return err
			}
			defer sess.close()

			metrics, err := observability.NewToolMetrics(sess.providers.Meter, resolve.Names()...)
			if err != nil {
				return fmt.Errorf("create metrics: %w", err)
			}

			server := mcp.NewServer(mcp.ServerDeps{
				Logger:        sess.logger,
				Metrics:       metrics,
				Tracer:        sess.providers.Tracer,
				Version:       version.Version,
				CheckpointDir: sess.cfg.Checkpoint.Dir,
				Compress:      sess.cfg.Checkpoint.Compress,
			})

			sess.logger.Info("mcp server starting", "tools", server.ListToolNames())

			return server.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&checkpointDir, "checkpoint-dir", "", "Directory holding progress and partial files")

	return cmd
}
