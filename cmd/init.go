package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zjrosen/conceptual/internal/config"
	"github.com/zjrosen/conceptual/internal/presentation"
)

const dbtProjectFile = "dbt_project.yml"

func newInitCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create conceptual.yml in a dbt project",
		Long: `Create a conceptual.yml template in the dbt project directory.

An existing conceptual.yml is never overwritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir := rt.opts.projectDir
			if dir == "" {
				dir = "."
			}
			dir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving project dir: %w", err)
			}
			if _, err := os.Stat(filepath.Join(dir, dbtProjectFile)); err != nil {
				return rt.fail("Error: %s not found in %s\nMake sure you're in a dbt project directory.", dbtProjectFile, dir)
			}

			f := rt.formatter(presentation.FormatHuman)
			s := f.Styles()
			path, err := config.WriteTemplate(dir)
			switch {
			case errors.Is(err, config.ErrConfigExists):
				_ = f.Text(s.Warning.Render(config.ConceptualFileName + " already exists at " + path))
			case err != nil:
				return err
			default:
				_ = f.Text(s.Success.Render("✓ Created " + path))
			}

			return f.Text("\n" + s.Success.Bold(true).Render("Initialization complete!") + `

Next steps:
  1. Edit conceptual.yml to define your concepts
  2. Add meta.concept tags to your dbt models
  3. Run 'conceptual status' to see coverage`)
		},
	}
}
