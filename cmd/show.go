package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/zjrosen/conceptual/internal/presentation"
	"github.com/zjrosen/conceptual/internal/presentation/markdown"
)

const showWrapWidth = 80

func newShowCmd(rt *runtime) *cobra.Command {
	var (
		format string
		style  string
		plain  bool
	)

	cmd := &cobra.Command{
		Use:   "show <concept>",
		Short: "Show one concept with its models and relationships",
		Long: `Show a concept card: domain, owner, derived status, the definition rendered
as markdown, implementing models, relationships and sync messages.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFormat(format, presentation.FormatHuman, presentation.FormatJSON)
			if err != nil {
				return err
			}
			_, st, _, err := loadAndSync(cmd.Context(), rt)
			if err != nil {
				return err
			}

			out := rt.formatter(f)
			if f == presentation.FormatJSON {
				dto, err := presentation.FromConcept(st, args[0])
				if err != nil {
					return err
				}
				return out.JSON(dto)
			}

			var md *markdown.Renderer
			if !plain {
				md, err = markdown.New(showWrapWidth, rt.glamourStyle(style))
				if err != nil {
					return fmt.Errorf("creating markdown renderer: %w", err)
				}
			}
			return out.Concept(st, args[0], md)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "human", "output format: human or json")
	cmd.Flags().StringVar(&style, "style", "", "glamour style for the definition (dark, light, notty, ...)")
	cmd.Flags().BoolVar(&plain, "plain", false, "print the definition without markdown rendering")
	return cmd
}

// glamourStyle picks a markdown style matching the terminal unless one was
// given.
func (rt *runtime) glamourStyle(style string) string {
	switch {
	case style != "":
		return style
	case rt.opts.noColor:
		return "notty"
	case lipgloss.HasDarkBackground():
		return "dark"
	default:
		return "light"
	}
}
