package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/conceptual/internal/git"
	"github.com/zjrosen/conceptual/internal/history"
	"github.com/zjrosen/conceptual/internal/infrastructure/sqlite"
	"github.com/zjrosen/conceptual/internal/log"
	"github.com/zjrosen/conceptual/internal/parser"
	"github.com/zjrosen/conceptual/internal/presentation"
	"github.com/zjrosen/conceptual/internal/tracing"
	"github.com/zjrosen/conceptual/internal/validator"
)

func newValidateCmd(rt *runtime) *cobra.Command {
	var (
		format   string
		noDrafts bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the conceptual model against the dbt project",
		Long: `Build the project state and run the validation rules, then the sync pass.

Exits with status 1 when a validation rule reports an error. Sync messages
are shown for information and never change the exit status. Use --format github inside
GitHub Actions to emit annotations and --format markdown for job summaries.
With --no-drafts, stub concepts and draft relationships are errors.`,
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

			res, err := runValidation(cmd.Context(), p, rt.tracing.Tracer(), noDrafts)
			if errors.Is(err, parser.ErrDocumentNotFound) && f == presentation.FormatGitHub {
				_, _ = fmt.Fprintf(rt.out, "::error file=%s::conceptual.yml not found\n", p.cfg.ConceptualFile())
				return &exitError{code: 1}
			}
			if err != nil {
				return rt.documentError(p.cfg, err)
			}

			if p.cfg.History.Enabled {
				recordRun(cmd.Context(), p, history.Result{
					Command:  "validate",
					NoDrafts: noDrafts,
					State:    res.State,
					Summary:  res.Summary,
				})
			}

			if err := rt.formatter(f).Validation(f, res); err != nil {
				return err
			}
			if !res.Passed() {
				return &exitError{code: 1}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "human", "output format: human, github, markdown or json")
	cmd.Flags().BoolVar(&noDrafts, "no-drafts", false, "fail when stub concepts or draft relationships remain")
	return cmd
}

// runValidation applies the rule set to the built state, before ghosts
// exist, then runs the sync pass on it for the informational messages.
func runValidation(ctx context.Context, p *project, tracer trace.Tracer, noDrafts bool) (presentation.ValidationResult, error) {
	st, err := p.builder.Build(ctx)
	if err != nil {
		return presentation.ValidationResult{}, err
	}

	_, span := tracing.Start(ctx, tracer, tracing.SpanValidate, attribute.Bool("validate.no_drafts", noDrafts))
	v := validator.New(p.cfg.Validation, st,
		validator.WithNoDrafts(noDrafts),
		validator.WithLayerResolver(p.cfg.LayerFor),
	)
	issues := v.Validate()
	summary := v.Summary()
	span.SetAttributes(
		attribute.Int(tracing.AttrErrors, summary.Errors),
		attribute.Int(tracing.AttrWarnings, summary.Warnings),
	)
	tracing.End(span, nil)

	report := p.builder.Sync(ctx, st)

	return presentation.ValidationResult{
		File:    p.cfg.ConceptualFile(),
		State:   st,
		Sync:    report,
		Issues:  issues,
		Summary: summary,
	}, nil
}

// recordRun saves a history run. Failures are logged, never fatal.
func recordRun(ctx context.Context, p *project, res history.Result) {
	db, err := sqlite.NewDB(p.cfg.HistoryPath())
	if err != nil {
		log.Err(log.CatDB, "Failed to open history database", err, "path", p.cfg.HistoryPath())
		return
	}
	defer func() { _ = db.Close() }()

	recorder := history.NewRecorder(db.RunRepository(), p.cfg.ProjectDir,
		history.WithGit(git.NewRealExecutor(p.cfg.ProjectDir)))
	if _, err := recorder.Record(ctx, res); err != nil {
		log.Err(log.CatDB, "Failed to record run", err)
	}
}
