package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zjrosen/conceptual/internal/presentation"
)

func newStatusCmd(rt *runtime) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show conceptual model coverage",
		Long: `Show concepts grouped by domain with their derived status, relationships,
orphan models and concepts that still miss required attributes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := parseFormat(format, presentation.FormatHuman, presentation.FormatJSON, presentation.FormatMarkdown)
			if err != nil {
				return err
			}
			st, _, err := loadProject(cmd.Context(), rt)
			if err != nil {
				return err
			}

			out := rt.formatter(f)
			switch f {
			case presentation.FormatJSON:
				return out.JSON(presentation.FromState(st))
			case presentation.FormatMarkdown:
				return out.StatusMarkdown(st)
			default:
				return out.Status(st)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "human", "output format: human, json or markdown")
	return cmd
}

func newOrphansCmd(rt *runtime) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "orphans",
		Short: "List models with no meta.concept tag",
		Long: `List models that are not linked to any concept.

Useful for tracking adoption and finding where to focus next.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := parseFormat(format, presentation.FormatHuman, presentation.FormatJSON, presentation.FormatMarkdown)
			if err != nil {
				return err
			}
			st, _, err := loadProject(cmd.Context(), rt)
			if err != nil {
				return err
			}

			out := rt.formatter(f)
			switch f {
			case presentation.FormatJSON:
				return out.JSON(presentation.FromOrphans(st))
			case presentation.FormatMarkdown:
				return out.OrphansMarkdown(st)
			default:
				return out.Orphans(st)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "human", "output format: human, json or markdown")
	return cmd
}

func newCoverageCmd(rt *runtime) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "coverage",
		Short: "Export coverage statistics",
		Long: `Export concept completion, model coverage and relationship statistics.

  conceptual coverage --format json > coverage.json
  conceptual coverage --format markdown >> "$GITHUB_STEP_SUMMARY"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := parseFormat(format, presentation.FormatJSON, presentation.FormatMarkdown)
			if err != nil {
				return err
			}
			st, _, err := loadProject(cmd.Context(), rt)
			if err != nil {
				return err
			}

			out := rt.formatter(f)
			if f == presentation.FormatMarkdown {
				return out.CoverageMarkdown(st)
			}
			return out.JSON(presentation.FromStateCoverage(st))
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json or markdown")
	return cmd
}
