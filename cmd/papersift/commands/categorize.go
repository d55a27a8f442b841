package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/papersift/pkg/config"
	"github.com/Sumatoshi-tech/papersift/pkg/driver"
	"github.com/Sumatoshi-tech/papersift/pkg/llm"
	"github.com/Sumatoshi-tech/papersift/pkg/observability"
	"github.com/Sumatoshi-tech/papersift/pkg/paper"
	"github.com/Sumatoshi-tech/papersift/pkg/stage/categorize"
	"github.com/Sumatoshi-tech/papersift/pkg/stage/filter"
)

type categorizeFlags struct {
	stageFlags

	out string
}

func newCategorizeCommandWithDeps(opts *globalOptions, factory llm.Factory) *cobra.Command {
	flags := &categorizeFlags{}

	cmd := &cobra.Command{
		Use:   "categorize",
		Short: "Assign each included paper to a task category with the LLM",
		Long: `Categorize papers in batches into the fixed task taxonomy. Papers that fit
no category get the new-category label with a recommended name. Progress is
saved after every batch; re-run the same command to resume.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := opts.openSession(cmd, observability.ModeCLI, func(cfg *config.Config) {
				flags.apply(cmd, cfg, &cfg.LLM.CategorizeTemperature)
			})
			if err != nil {
				return err
			}
			defer sess.close()

			return sess.runStage(cmd.Context(), factory, stageRun{
				stage:   categorize.Stage,
				in:      flags.in,
				outputs: categorize.Outputs(flags.out),
				reset:   flags.reset,
				newProc: func(client *llm.Client, cfg *config.Config) driver.Processor[paper.Paper] {
					return categorize.New(client, categorize.Options{
						Temperature:      float32(cfg.LLM.CategorizeTemperature),
						AbstractMaxChars: cfg.Pipeline.AbstractMaxChars,
					})
				},
			})
		},
	}

	flags.register(cmd, filter.DefaultOut)
	cmd.Flags().StringVar(&flags.out, "out", categorize.DefaultOut, "Categorized papers output")

	return cmd
}
