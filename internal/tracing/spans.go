package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Span names.
const (
	SpanBuild    = "conceptual.build"
	SpanParse    = "conceptual.parse"
	SpanScan     = "conceptual.scan"
	SpanSync     = "conceptual.sync"
	SpanValidate = "conceptual.validate"
	SpanDiff     = "conceptual.diff"
	SpanSnapshot = "conceptual.snapshot"
)

// Attribute keys.
const (
	AttrProjectDir    = "project.dir"
	AttrConcepts      = "state.concepts"
	AttrRelationships = "state.relationships"
	AttrModels        = "state.models"
	AttrOrphans       = "state.orphans"
	AttrErrors        = "result.errors"
	AttrWarnings      = "result.warnings"
	AttrChanges       = "diff.changes"
	AttrGitRef        = "git.ref"
	AttrGitCommit     = "git.commit"
	AttrCacheHit      = "cache.hit"
)

// Start opens a span, tolerating a nil tracer.
func Start(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	return tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// End records err on the span, sets its status and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
