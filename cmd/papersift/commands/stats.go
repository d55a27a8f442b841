package commands

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/papersift/pkg/observability"
	"github.com/Sumatoshi-tech/papersift/pkg/paper"
	"github.com/Sumatoshi-tech/papersift/pkg/persist"
	"github.com/Sumatoshi-tech/papersift/pkg/report"
	"github.com/Sumatoshi-tech/papersift/pkg/stage/categorize"
)

type statsFlags struct {
	in          string
	format      string
	out         string
	hideListing bool
}

func newStatsCommand(opts *globalOptions) *cobra.Command {
	flags := &statsFlags{}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Category statistics of a categorized paper list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := opts.openSession(cmd, observability.ModeCLI, nil)
			if err != nil {
				return err
			}
			defer sess.close()

			return runStats(cmd.OutOrStdout(), sess, flags)
		},
	}

	cmd.Flags().StringVar(&flags.in, "in", categorize.DefaultOut, "Categorized paper list")
	cmd.Flags().StringVar(&flags.format, "format", report.FormatText,
		"Output format: "+strings.Join(report.Formats(), ", "))
	cmd.Flags().StringVarP(&flags.out, "out", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().BoolVar(&flags.hideListing, "hide-listing", false, "Omit the per-category paper listing")

	return cmd
}

func runStats(w io.Writer, sess *session, flags *statsFlags) error {
	papers, err := paper.LoadList(flags.in)
	if err != nil {
		return err
	}

	stats := report.Compute(papers)
	opts := report.Options{HideListing: flags.hideListing}

	sess.logger.Debug("computed stats", "papers", stats.Total, "format", flags.format)

	if flags.out == "" {
		return report.Render(w, stats, flags.format, opts)
	}

	var buf bytes.Buffer

	renderErr := report.Render(&buf, stats, flags.format, opts)
	if renderErr != nil {
		return renderErr
	}

	writeErr := persist.WriteFileAtomic(flags.out, func(fw io.Writer) error {
		_, err := buf.WriteTo(fw)

		return err
	})
	if writeErr != nil {
		return fmt.Errorf("write report: %w", writeErr)
	}

	sess.out.Infof("wrote %s report to %s", flags.format, flags.out)

	return nil
}
