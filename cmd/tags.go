package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zjrosen/conceptual/internal/presentation"
	"github.com/zjrosen/conceptual/internal/tagging"
)

func newTagsCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Keep model domain and owner tags in line with their concepts",
		Long: `Compute and apply domain: and owner: tags on model schema files.

A model's domain comes from its concept; its owner from the concept, else
from the concept's domain. With validation.tags.format databricks the values
are written to databricks_tags instead of tags.`,
	}
	cmd.AddCommand(newTagsPlanCmd(rt), newTagsApplyCmd(rt))
	return cmd
}

func newTagsPlanCmd(rt *runtime) *cobra.Command {
	var (
		models []string
		format string
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "List the tag changes apply would make",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := parseFormat(format, presentation.FormatHuman, presentation.FormatJSON)
			if err != nil {
				return err
			}
			st, cfg, err := loadProject(cmd.Context(), rt)
			if err != nil {
				return err
			}

			changes := tagging.NewPlanner(st, cfg.Validation.Tags).Plan(models...)
			out := rt.formatter(f)
			if f == presentation.FormatJSON {
				if changes == nil {
					changes = []tagging.Change{}
				}
				return out.JSON(changes)
			}
			return out.TagPlan(changes)
		},
	}

	cmd.Flags().StringArrayVarP(&models, "model", "m", nil, "only plan the named model (repeatable)")
	cmd.Flags().StringVarP(&format, "format", "f", "human", "output format: human or json")
	return cmd
}

func newTagsApplyCmd(rt *runtime) *cobra.Command {
	var (
		models []string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Write domain and owner tags into model schema files",
		Long: `Write the planned tag changes into model schema files.

Files are edited in place; comments and key order are kept. A file that
cannot be updated is reported and the others are still written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, cfg, err := loadProject(cmd.Context(), rt)
			if err != nil {
				return err
			}

			changes := tagging.NewPlanner(st, cfg.Validation.Tags).Plan(models...)
			out := rt.formatter(presentation.FormatHuman)
			if err := out.TagPlan(changes); err != nil {
				return err
			}
			if len(changes) == 0 {
				return nil
			}

			res, err := tagging.NewApplier(cfg.ProjectDir, cfg.Validation.Tags).Apply(cmd.Context(), changes, dryRun)
			if err != nil {
				return err
			}
			if err := out.Text(""); err != nil {
				return err
			}
			if err := out.TagResult(res, dryRun); err != nil {
				return err
			}
			if len(res.Errors) > 0 {
				return &exitError{code: 1}
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&models, "model", "m", nil, "only apply to the named model (repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would change without writing files")
	return cmd
}
