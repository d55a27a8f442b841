package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/papersift/pkg/config"
	"github.com/Sumatoshi-tech/papersift/pkg/driver"
	"github.com/Sumatoshi-tech/papersift/pkg/keyword"
	"github.com/Sumatoshi-tech/papersift/pkg/llm"
	"github.com/Sumatoshi-tech/papersift/pkg/observability"
	"github.com/Sumatoshi-tech/papersift/pkg/paper"
	"github.com/Sumatoshi-tech/papersift/pkg/stage/filter"
)

type filterFlags struct {
	stageFlags

	out      string
	rejected string
}

func newFilterCommandWithDeps(opts *globalOptions, factory llm.Factory) *cobra.Command {
	flags := &filterFlags{}

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Screen papers with the LLM into included and rejected lists",
		Long: `Screen papers in batches. Each paper is marked include or exclude with a
reason and a confidence. Progress is saved after every batch; re-run the same
command to resume, or pass --reset to start over.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := opts.openSession(cmd, observability.ModeCLI, func(cfg *config.Config) {
				flags.apply(cmd, cfg, &cfg.LLM.FilterTemperature)
			})
			if err != nil {
				return err
			}
			defer sess.close()

			return sess.runStage(cmd.Context(), factory, stageRun{
				stage:   filter.Stage,
				in:      flags.in,
				outputs: filter.Outputs(flags.out, flags.rejected),
				reset:   flags.reset,
				newProc: func(client *llm.Client, cfg *config.Config) driver.Processor[paper.Paper] {
					return filter.New(client, filter.Options{
						Temperature:      float32(cfg.LLM.FilterTemperature),
						AbstractMaxChars: cfg.Pipeline.AbstractMaxChars,
					})
				},
			})
		},
	}

	flags.register(cmd, keyword.DefaultLLMCodingOut)
	cmd.Flags().StringVar(&flags.out, "out", filter.DefaultOut, "Included papers output")
	cmd.Flags().StringVar(&flags.rejected, "rejected", filter.DefaultRejected, "Rejected papers output")

	return cmd
}
