package cmd

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zjrosen/conceptual/internal/git"
	"github.com/zjrosen/conceptual/internal/log"
	"github.com/zjrosen/conceptual/internal/presentation"
	"github.com/zjrosen/conceptual/internal/snapshot"
)

func newDiffCmd(rt *runtime) *cobra.Command {
	var (
		base   string
		format string
	)

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Compare the conceptual model against a git ref",
		Long: `Compare conceptual.yml in the working tree against its content at a git ref.

  conceptual diff --base main
  conceptual diff --base origin/main --format github

With --format github the command exits with status 1 when anything changed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := parseFormat(format,
				presentation.FormatHuman, presentation.FormatGitHub, presentation.FormatMarkdown, presentation.FormatJSON)
			if err != nil {
				return err
			}
			p, err := openProject(rt)
			if err != nil {
				return err
			}

			loader := snapshot.NewLoader(git.NewRealExecutor(p.cfg.ProjectDir), p.cfg,
				snapshot.WithTracer(rt.tracing.Tracer()))
			cs, err := snapshot.DiffAgainstRef(cmd.Context(), p.builder, loader, base)
			if err != nil {
				return rt.diffError(p, base, err)
			}

			if err := rt.formatter(f).Diff(f, cs); err != nil {
				return err
			}
			if f == presentation.FormatGitHub && cs.HasChanges() {
				return &exitError{code: 1}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&base, "base", "", "git ref to compare against (branch, tag or commit)")
	cmd.Flags().StringVarP(&format, "format", "f", "human", "output format: human, github, markdown or json")
	_ = cmd.MarkFlagRequired("base")
	return cmd
}

// diffError prints one line per snapshot failure kind.
func (rt *runtime) diffError(p *project, ref string, err error) error {
	log.Err(log.CatDiff, "Diff failed", err, "ref", ref)

	var refErr *git.RefNotFoundError
	switch {
	case errors.Is(err, git.ErrGitNotFound):
		return rt.fail("Error: git not found. This command requires git.")
	case errors.Is(err, git.ErrNotGitRepo):
		return rt.fail("Error: Not a git repository")
	case errors.Is(err, git.ErrGitTimeout):
		return rt.fail("Error: git timed out reading ref '%s'", ref)
	case errors.As(err, &refErr):
		msg := "Error: Could not find conceptual.yml at ref '" + ref + "'"
		if stderr := strings.TrimSpace(refErr.Stderr); stderr != "" {
			msg += "\n" + stderr
		}
		return rt.fail("%s", msg)
	}
	return rt.documentError(p.cfg, err)
}
