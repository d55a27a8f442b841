package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/papersift/pkg/config"
	"github.com/Sumatoshi-tech/papersift/pkg/driver"
	"github.com/Sumatoshi-tech/papersift/pkg/observability"
	"github.com/Sumatoshi-tech/papersift/pkg/paper"
	"github.com/Sumatoshi-tech/papersift/pkg/stage/resolve"
	"github.com/Sumatoshi-tech/papersift/pkg/stage/filter"
)

type statusFlags struct {
	stage         string
	out           string
	rejected      string
	checkpointDir string
	compress      bool
	json          bool
}

func newStatusCommand(opts *globalOptions) *cobra.Command {
	flags := &statusFlags{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show saved progress of a filter or categorize run",
		Long: `Show the progress record and partial files of a run without changing them.
The run is identified by its stage and output paths, the same way the stage
command finds it when resuming.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := opts.openSession(cmd, observability.ModeCLI, func(cfg *config.Config) {
				if cmd.Flags().Changed("checkpoint-dir") {
					cfg.Checkpoint.Dir = flags.checkpointDir
				}

				if cmd.Flags().Changed("compress") {
					cfg.Checkpoint.Compress = flags.compress
				}
			})
			if err != nil {
				return err
			}
			defer sess.close()

			return runStatus(cmd.OutOrStdout(), sess, flags)
		},
	}

	cmd.Flags().StringVar(&flags.stage, "stage", filter.Stage, "Stage: "+strings.Join(resolve.Names(), ", "))
	cmd.Flags().StringVar(&flags.out, "out", "", "Primary output of the run (default depends on stage)")
	cmd.Flags().StringVar(&flags.rejected, "rejected", "", "Rejected output of a filter run")
	cmd.Flags().StringVar(&flags.checkpointDir, "checkpoint-dir", "", "Directory holding progress and partial files")
	cmd.Flags().BoolVar(&flags.compress, "compress", false, "Look for LZ4-compressed partial files")
	cmd.Flags().BoolVar(&flags.json, "json", false, "Print the status as JSON")

	return cmd
}

func runStatus(w io.Writer, sess *session, flags *statusFlags) error {
	outputs, err := resolve.Outputs(flags.stage, flags.out, flags.rejected)
	if err != nil {
		return err
	}

	status, err := driver.Inspect(driver.Config[paper.Paper]{
		Stage:    flags.stage,
		Outputs:  outputs,
		StateDir: sess.cfg.Checkpoint.Dir,
		Codec:    partialCodec(sess.cfg.Checkpoint.Compress),
	})
	if err != nil {
		return err
	}

	if flags.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(struct {
			*driver.Status

			Resumable bool `json:"resumable"`
		}{status, status.Resumable()})
	}

	renderStatus(w, status)

	return nil
}

func renderStatus(w io.Writer, status *driver.Status) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.SetTitle(fmt.Sprintf("%s run %s", status.Stage, status.Key))
	tw.AppendRow(table.Row{"State", statusState(status)})
	tw.AppendRow(table.Row{"Progress file", status.ProgressPath})

	if status.Corrupt != "" {
		tw.AppendRow(table.Row{"Corrupt", status.Corrupt})
	}

	if p := status.Progress; p != nil {
		tw.AppendRow(table.Row{"Run ID", p.RunID})
		tw.AppendRow(table.Row{"Batches", fmt.Sprintf("%d/%d (batch size %d)", p.ProcessedBatches, p.TotalBatches, p.BatchSize)})
		tw.AppendRow(table.Row{"Input records", humanize.Comma(int64(p.InputCount))})
		tw.AppendRow(table.Row{"Counts", formatCounts(p.Counts)})
		tw.AppendRow(table.Row{"Started", humanize.Time(p.CreatedAt)})
		tw.AppendRow(table.Row{"Last saved", humanize.Time(p.Timestamp)})
	}

	tw.AppendSeparator()

	for _, pf := range status.Partials {
		size := "missing"
		if pf.Present {
			size = humanize.Bytes(uint64(pf.Size))
		}

		tw.AppendRow(table.Row{"Partial " + pf.Partition, fmt.Sprintf("%s (%s)", pf.Path, size)})
	}

	tw.Render()
}

func statusState(status *driver.Status) string {
	switch {
	case status.Corrupt != "":
		return "corrupt progress record; the next run starts over"
	case status.Progress == nil:
		return "no saved progress"
	case status.Resumable():
		return fmt.Sprintf("resumable at batch %d", status.Progress.ProcessedBatches+1)
	default:
		return "complete; outputs not yet written"
	}
}
