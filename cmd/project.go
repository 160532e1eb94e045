package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/zjrosen/conceptual/internal/config"
	"github.com/zjrosen/conceptual/internal/log"
	"github.com/zjrosen/conceptual/internal/parser"
	"github.com/zjrosen/conceptual/internal/paths"
	"github.com/zjrosen/conceptual/internal/presentation"
	"github.com/zjrosen/conceptual/internal/reconcile"
	"github.com/zjrosen/conceptual/internal/state"
	"github.com/zjrosen/conceptual/internal/tracing"
)

// project is a loaded configuration plus the builder for it.
type project struct {
	cfg     config.Config
	builder *reconcile.Builder
}

// openProject resolves the project dir, loads and validates its config and
// starts tracing for the invocation.
func openProject(rt *runtime) (*project, error) {
	dir, err := paths.ResolveProjectDir(rt.opts.projectDir)
	if err != nil {
		return nil, fmt.Errorf("resolving project dir: %w", err)
	}

	cfg, err := config.Load(dir, config.Overrides{GoldPaths: rt.opts.goldPaths})
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if rt.tracing == nil {
		provider, err := tracing.NewProvider(tracing.FromConfig(cfg))
		if err != nil {
			log.Warn(log.CatConfig, "Tracing disabled", "error", err)
			provider = tracing.Disabled()
		}
		rt.tracing = provider
	}

	return &project{
		cfg:     cfg,
		builder: reconcile.NewBuilder(cfg, rt.tracing.Tracer()),
	}, nil
}

// loadProject builds the reconciled state without sync.
func loadProject(ctx context.Context, rt *runtime) (*state.ProjectState, config.Config, error) {
	p, err := openProject(rt)
	if err != nil {
		return nil, config.Config{}, err
	}
	st, err := p.builder.Build(ctx)
	if err != nil {
		return nil, p.cfg, rt.documentError(p.cfg, err)
	}
	return st, p.cfg, nil
}

// loadAndSync builds the state and runs the sync pass.
func loadAndSync(ctx context.Context, rt *runtime) (*project, *state.ProjectState, reconcile.SyncReport, error) {
	p, err := openProject(rt)
	if err != nil {
		return nil, nil, reconcile.SyncReport{}, err
	}
	st, report, err := p.builder.BuildAndSync(ctx)
	if err != nil {
		return p, nil, report, rt.documentError(p.cfg, err)
	}
	return p, st, report, nil
}

// documentError prints the init hint for a missing conceptual.yml and
// passes other errors through.
func (rt *runtime) documentError(cfg config.Config, err error) error {
	if !errors.Is(err, parser.ErrDocumentNotFound) {
		return err
	}
	return rt.fail("Error: %s not found at %s\n\nRun 'conceptual init' to create it.",
		config.ConceptualFileName, cfg.ConceptualFile())
}

// parseFormat wraps presentation.ParseFormat for a --format flag value.
func parseFormat(s string, allowed ...presentation.Format) (presentation.Format, error) {
	f, err := presentation.ParseFormat(s, allowed...)
	if err != nil {
		return "", fmt.Errorf("--format: %w", err)
	}
	return f, nil
}
