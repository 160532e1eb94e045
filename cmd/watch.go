package cmd

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/zjrosen/conceptual/internal/log"
	"github.com/zjrosen/conceptual/internal/presentation"
	"github.com/zjrosen/conceptual/internal/ui/watch"
	"github.com/zjrosen/conceptual/internal/watcher"
)

func newWatchCmd(rt *runtime) *cobra.Command {
	var noDrafts bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-validate whenever conceptual.yml or model files change",
		Long: `Open a terminal view that runs build, sync and validation, then runs them
again each time conceptual.yml or a schema file under the gold scan paths
changes. Configuration is re-read on every run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := openProject(rt)
			if err != nil {
				return err
			}

			w, err := watcher.New(watcher.DefaultConfig(p.cfg.ProjectDir, p.cfg.Scan.Gold))
			if err != nil {
				return fmt.Errorf("creating watcher: %w", err)
			}
			events, err := w.Start()
			if err != nil {
				return fmt.Errorf("starting watcher: %w", err)
			}
			defer func() { _ = w.Stop() }()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			run := func(ctx context.Context) (presentation.ValidationResult, error) {
				current, err := openProject(rt)
				if err != nil {
					return presentation.ValidationResult{}, err
				}
				return runValidation(ctx, current, rt.tracing.Tracer(), noDrafts)
			}

			model := watch.New(ctx, p.cfg.ProjectDir, run, events)
			prog := tea.NewProgram(model,
				tea.WithAltScreen(),
				tea.WithContext(ctx),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(rt.out),
			)
			log.Info(log.CatUI, "Starting watch", "project_dir", p.cfg.ProjectDir)
			if _, err := prog.Run(); err != nil {
				return fmt.Errorf("running watch: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noDrafts, "no-drafts", false, "treat stub concepts and draft relationships as errors")
	return cmd
}
