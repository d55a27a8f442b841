package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/papersift/pkg/export"
	"github.com/Sumatoshi-tech/papersift/pkg/observability"
	"github.com/Sumatoshi-tech/papersift/pkg/paper"
	"github.com/Sumatoshi-tech/papersift/pkg/stage/categorize"
)

type exportFlags struct {
	in    string
	db    string
	table string
}

func newExportCommand(opts *globalOptions) *cobra.Command {
	flags := &exportFlags{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Load a paper list into a SQLite table",
		Long: `Load a paper list into a SQLite database. The table is created when missing
and its rows are replaced on every export.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := opts.openSession(cmd, observability.ModeCLI, nil)
			if err != nil {
				return err
			}
			defer sess.close()

			return runExport(cmd, sess, flags)
		},
	}

	cmd.Flags().StringVar(&flags.in, "in", categorize.DefaultOut, "Paper list to export")
	cmd.Flags().StringVar(&flags.db, "db", "papers.db", "SQLite database file")
	cmd.Flags().StringVar(&flags.table, "table", export.DefaultTable, "Table name")

	return cmd
}

func runExport(cmd *cobra.Command, sess *session, flags *exportFlags) (err error) {
	papers, err := paper.LoadList(flags.in)
	if err != nil {
		return err
	}

	store, err := export.Open(cmd.Context(), flags.db)
	if err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, store.Close())
	}()

	n, err := store.Replace(cmd.Context(), flags.table, flags.in, papers)
	if err != nil {
		return fmt.Errorf("export %s: %w", flags.in, err)
	}

	sess.logger.Info("exported papers", "table", flags.table, "db", flags.db, "rows", n)
	sess.out.Infof("exported %d papers to %s (table %s)", n, flags.db, flags.table)

	return nil
}
