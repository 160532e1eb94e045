package reconcile

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/conceptual/internal/config"
	"github.com/zjrosen/conceptual/internal/log"
	"github.com/zjrosen/conceptual/internal/parser"
	"github.com/zjrosen/conceptual/internal/scanner"
	"github.com/zjrosen/conceptual/internal/state"
	"github.com/zjrosen/conceptual/internal/tracing"
)

// DocumentSource yields the declared conceptual model.
type DocumentSource interface {
	Parse(ctx context.Context) (*state.ProjectState, error)
}

// ModelSource yields discovered model records.
type ModelSource interface {
	Scan(ctx context.Context) ([]state.ModelRecord, error)
}

// Builder loads the document, scans models and reconciles them.
type Builder struct {
	Document DocumentSource
	Models   ModelSource
	Tracer   trace.Tracer
}

// NewBuilder wires the file parser and the gold-path scanner for cfg.
func NewBuilder(cfg config.Config, tracer trace.Tracer) *Builder {
	return &Builder{
		Document: parser.NewFileParser(cfg.ConceptualFile()),
		Models:   scanner.New(cfg.ProjectDir, cfg.Scan.Gold),
		Tracer:   tracer,
	}
}

// Build returns the reconciled state without ghosts or validation. A
// missing document surfaces as parser.ErrDocumentNotFound.
func (b *Builder) Build(ctx context.Context) (st *state.ProjectState, err error) {
	ctx, span := tracing.Start(ctx, b.Tracer, tracing.SpanBuild)
	defer func() { tracing.End(span, err) }()

	pctx, pspan := tracing.Start(ctx, b.Tracer, tracing.SpanParse)
	doc, err := b.Document.Parse(pctx)
	tracing.End(pspan, err)
	if err != nil {
		return nil, fmt.Errorf("loading conceptual model: %w", err)
	}

	sctx, sspan := tracing.Start(ctx, b.Tracer, tracing.SpanScan)
	records, err := b.Models.Scan(sctx)
	if err == nil {
		sspan.SetAttributes(attribute.Int(tracing.AttrModels, len(records)))
	}
	tracing.End(sspan, err)
	if err != nil {
		return nil, fmt.Errorf("scanning models: %w", err)
	}

	st = Reconcile(doc, records)
	span.SetAttributes(
		attribute.Int(tracing.AttrConcepts, len(st.Concepts)),
		attribute.Int(tracing.AttrRelationships, len(st.Relationships)),
		attribute.Int(tracing.AttrOrphans, len(st.Orphans)),
	)
	log.Debug(log.CatReconcile, "Built project state",
		"concepts", len(st.Concepts),
		"relationships", len(st.Relationships),
		"models", len(records),
		"orphans", len(st.Orphans))
	return st, nil
}

// BuildAndSync builds the state and runs ValidateAndSync on it.
func (b *Builder) BuildAndSync(ctx context.Context) (*state.ProjectState, SyncReport, error) {
	st, err := b.Build(ctx)
	if err != nil {
		return nil, SyncReport{}, err
	}

	return st, b.Sync(ctx, st), nil
}

// Sync runs ValidateAndSync on st inside a sync span.
func (b *Builder) Sync(ctx context.Context, st *state.ProjectState) SyncReport {
	_, span := tracing.Start(ctx, b.Tracer, tracing.SpanSync)
	report := ValidateAndSync(st)
	span.SetAttributes(
		attribute.Int(tracing.AttrErrors, report.ErrorCount),
		attribute.Int(tracing.AttrWarnings, report.WarningCount),
	)
	tracing.End(span, nil)
	return report
}
