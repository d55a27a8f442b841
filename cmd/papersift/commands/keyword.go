package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/papersift/pkg/keyword"
	"github.com/Sumatoshi-tech/papersift/pkg/observability"
	"github.com/Sumatoshi-tech/papersift/pkg/paper"
)

type keywordFlags struct {
	in          string
	llmCoding   string
	aiNonCoding string
	nonAI       string
}

func newKeywordCommand(opts *globalOptions) *cobra.Command {
	flags := &keywordFlags{}

	cmd := &cobra.Command{
		Use:   "keyword",
		Short: "Split papers by AI and coding keywords",
		Long: `Classify every paper by regular-expression term lists. Papers with an AI
term and a coding term go to the stage-1 output, papers with only an AI term to
the ai-noncoding list, and the rest to the non-ai list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := opts.openSession(cmd, observability.ModeCLI, nil)
			if err != nil {
				return err
			}
			defer sess.close()

			return runKeyword(sess, flags)
		},
	}

	cmd.Flags().StringVar(&flags.in, "in", keyword.DefaultIn, "Input paper list")
	cmd.Flags().StringVar(&flags.llmCoding, "stage1", keyword.DefaultLLMCodingOut, "Output for AI and coding papers")
	cmd.Flags().StringVar(&flags.aiNonCoding, "ai-noncoding", keyword.DefaultAINonCodingOut, "Output for AI papers without coding terms")
	cmd.Flags().StringVar(&flags.nonAI, "non-ai", keyword.DefaultNonAIOut, "Output for papers without AI terms")

	return cmd
}

func runKeyword(sess *session, flags *keywordFlags) error {
	sess.out.stage = "keyword"

	papers, err := paper.LoadList(flags.in)
	if err != nil {
		return err
	}

	split := keyword.Default().Split(papers)

	outputs := []struct {
		path   string
		papers []paper.Paper
	}{
		{flags.llmCoding, split.LLMCoding},
		{flags.aiNonCoding, split.AINonCoding},
		{flags.nonAI, split.NonAI},
	}

	for _, out := range outputs {
		saveErr := paper.SaveList(out.path, out.papers)
		if saveErr != nil {
			return fmt.Errorf("write %s: %w", out.path, saveErr)
		}

		sess.out.Infof("wrote %d papers to %s", len(out.papers), out.path)
	}

	sess.logger.Info("keyword split complete",
		"total", split.Total(),
		"llm_coding", len(split.LLMCoding),
		"ai_noncoding", len(split.AINonCoding),
		"non_ai", len(split.NonAI))

	return nil
}
