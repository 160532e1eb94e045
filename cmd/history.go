package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/zjrosen/conceptual/internal/history"
	"github.com/zjrosen/conceptual/internal/infrastructure/sqlite"
	"github.com/zjrosen/conceptual/internal/presentation"
)

func newHistoryCmd(rt *runtime) *cobra.Command {
	var (
		limit      int
		failedOnly bool
		command    string
		format     string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded validation runs",
		Long: `List validation runs recorded in the history database, newest first.

Runs are recorded by validate when history.enabled is true in the config
section of conceptual.yml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := parseFormat(format, presentation.FormatHuman, presentation.FormatJSON)
			if err != nil {
				return err
			}
			p, err := openProject(rt)
			if err != nil {
				return err
			}

			out := rt.formatter(f)
			path := p.cfg.HistoryPath()
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				if f == presentation.FormatJSON {
					return out.JSON([]presentation.RunDTO{})
				}
				if !p.cfg.History.Enabled {
					return out.Text("History is disabled. Set config.history.enabled: true in conceptual.yml to record runs.")
				}
				return out.Runs(nil)
			}

			db, err := sqlite.NewDB(path)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			runs, err := history.NewRecorder(db.RunRepository(), p.cfg.ProjectDir).List(cmd.Context(), history.ListFilter{
				Command:    command,
				FailedOnly: failedOnly,
				Limit:      limit,
			})
			if err != nil {
				return err
			}
			if f == presentation.FormatJSON {
				return out.JSON(presentation.FromRuns(runs))
			}
			return out.Runs(runs)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs to list (0 for all)")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "only list failed runs")
	cmd.Flags().StringVar(&command, "command", "", "only list runs recorded by this command")
	cmd.Flags().StringVarP(&format, "format", "f", "human", "output format: human or json")
	return cmd
}
