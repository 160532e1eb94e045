package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zjrosen/conceptual/internal/presentation"
	"github.com/zjrosen/conceptual/internal/state"
	"github.com/zjrosen/conceptual/internal/stubs"
)

func newSyncCmd(rt *runtime) *cobra.Command {
	var (
		createStubs bool
		model       string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Discover dbt models and sync them with the conceptual model",
		Long: `Build the project state, run the sync pass and list orphan models.

With --create-stubs a stub concept is appended to conceptual.yml for every
orphan. The concept id is the model name without its dim_, fact_, stg_, fct_
or bridge_ prefix. Existing concepts are never overwritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, st, report, err := loadAndSync(cmd.Context(), rt)
			if err != nil {
				return err
			}

			f := rt.formatter(presentation.FormatHuman)
			s := f.Styles()
			if len(report.Messages) > 0 {
				if err := f.SyncReport(report); err != nil {
					return err
				}
			}

			orphans := st.Orphans
			if model != "" {
				if !st.IsOrphan(model) {
					_ = f.Text(s.Warning.Render(fmt.Sprintf("Model '%s' is not an orphan", model)))
					if _, ok := st.ConceptForModel(model); ok {
						return f.Text(fmt.Sprintf("Model '%s' is already mapped to a concept", model))
					}
					return f.Text(fmt.Sprintf("Model '%s' not found in project", model))
				}
				orphans = filterOrphans(orphans, model)
			}

			if len(orphans) == 0 {
				return f.Text(s.Success.Render("No orphan models found!") + "\nAll models are mapped to concepts.")
			}

			var b strings.Builder
			fmt.Fprintf(&b, "\n%s\n", s.Header.Render(fmt.Sprintf("Found %d orphan model(s):", len(orphans))))
			for _, o := range orphans {
				fmt.Fprintf(&b, "  - %s\n", o.Name)
			}
			if !createStubs {
				fmt.Fprintf(&b, "\n%s Use --create-stubs to automatically create stub concepts", s.Warning.Render("Tip:"))
				return f.Text(b.String())
			}
			if err := f.Text(b.String()); err != nil {
				return err
			}

			res, err := stubs.Write(p.cfg.ConceptualFile(), orphans)
			if err != nil {
				return fmt.Errorf("creating stubs: %w", err)
			}
			return f.StubResult(res, p.cfg.ConceptualFile())
		},
	}

	cmd.Flags().BoolVar(&createStubs, "create-stubs", false, "create stub concepts for orphan models")
	cmd.Flags().StringVar(&model, "model", "", "sync only the named model")
	return cmd
}

func filterOrphans(orphans []state.OrphanModel, name string) []state.OrphanModel {
	var out []state.OrphanModel
	for _, o := range orphans {
		if o.Name == name {
			out = append(out, o)
		}
	}
	return out
}
