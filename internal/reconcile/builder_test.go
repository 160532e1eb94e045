package reconcile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zjrosen/conceptual/internal/config"
	"github.com/zjrosen/conceptual/internal/parser"
	"github.com/zjrosen/conceptual/internal/state"
	"github.com/zjrosen/conceptual/internal/tracing"
)

type fakeDocument struct {
	st  *state.ProjectState
	err error
}

func (f fakeDocument) Parse(context.Context) (*state.ProjectState, error) {
	return f.st, f.err
}

type fakeModels struct {
	records []state.ModelRecord
	err     error
}

func (f fakeModels) Scan(context.Context) ([]state.ModelRecord, error) {
	return f.records, f.err
}

func TestBuilder_BuildAndSync(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	b := &Builder{
		Document: fakeDocument{st: sampleDoc()},
		Models: fakeModels{records: []state.ModelRecord{
			{Name: "dim_customer", Meta: map[string]any{"concept": "customer"}},
			{Name: "stg_misc"},
		}},
		Tracer: tp.Tracer("test"),
	}

	st, report, err := b.BuildAndSync(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"dim_customer"}, st.Concepts["customer"].Models)
	require.Len(t, st.Orphans, 1)
	require.False(t, report.HasErrors())

	var names []string
	for _, s := range recorder.Ended() {
		names = append(names, s.Name())
	}
	require.ElementsMatch(t, []string{tracing.SpanParse, tracing.SpanScan, tracing.SpanBuild, tracing.SpanSync}, names)
}

func TestBuilder_PropagatesErrors(t *testing.T) {
	b := &Builder{
		Document: fakeDocument{err: parser.ErrDocumentNotFound},
		Models:   fakeModels{},
	}
	_, err := b.Build(context.Background())
	require.ErrorIs(t, err, parser.ErrDocumentNotFound)

	scanErr := errors.New("boom")
	b = &Builder{
		Document: fakeDocument{st: state.New()},
		Models:   fakeModels{err: scanErr},
	}
	_, _, err = b.BuildAndSync(context.Background())
	require.ErrorIs(t, err, scanErr)
	require.Contains(t, err.Error(), "scanning models")
}

func TestNewBuilder_FromProjectDir(t *testing.T) {
	dir := t.TempDir()
	doc := `domains:
  party:
    name: Party
concepts:
  customer:
    name: Customer
    domain: party
relationships:
  - from: customer
    verb: places
    to: order
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConceptualFileName), []byte(doc), 0o644))
	marts := filepath.Join(dir, "models", "marts")
	require.NoError(t, os.MkdirAll(marts, 0o755))
	schema := `version: 2
models:
  - name: dim_customer
    meta:
      concept: customer
`
	require.NoError(t, os.WriteFile(filepath.Join(marts, "schema.yml"), []byte(schema), 0o644))

	cfg, err := config.Load(dir, config.Overrides{})
	require.NoError(t, err)

	st, report, err := NewBuilder(cfg, nil).BuildAndSync(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"dim_customer"}, st.Concepts["customer"].Models)
	require.True(t, st.Concepts["order"].IsGhost)
	require.Equal(t, 1, report.ErrorCount)
}

func TestNewBuilder_MissingDocument(t *testing.T) {
	cfg := config.Defaults()
	cfg.ProjectDir = t.TempDir()
	_, err := NewBuilder(cfg, nil).Build(context.Background())
	require.ErrorIs(t, err, parser.ErrDocumentNotFound)
}
