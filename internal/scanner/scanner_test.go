package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestScan_ReadsModels(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "models/marts/core/schema.yml", `
version: 2
models:
  - name: dim_customer
    description: "  Customers  "
    meta:
      concept: customer
    tags: [domain:party, owner:team-a]
  - name: stg_misc
    config:
      meta:
        domain: sales
      tags: nightly
      databricks_tags:
        domain: [sales, finance]
        owner: team-b
`)
	writeFile(t, root, "models/staging/schema.yml", "models:\n  - name: not_gold\n")

	records, err := New(root, []string{"models/marts/**/*.yml"}).Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	cust := records[0]
	require.Equal(t, "dim_customer", cust.Name)
	require.Equal(t, "Customers", cust.Description)
	require.Equal(t, "models/marts/core/schema.yml", cust.Path)
	link, ok := cust.ConceptLink()
	require.True(t, ok)
	require.Equal(t, "customer", link)
	require.Equal(t, []string{"domain:party", "owner:team-a"}, cust.Tags)

	misc := records[1]
	_, ok = misc.ConceptLink()
	require.False(t, ok)
	require.Equal(t, "sales", misc.MetaString("domain"))
	require.Equal(t, []string{"nightly"}, misc.Tags)
	require.Equal(t, "team-b", misc.StructuredTags["owner"])
	require.Equal(t, []any{"sales", "finance"}, misc.StructuredTags["domain"])
}

func TestScan_TopLevelMetaWins(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "models/marts/a.yml", `
models:
  - name: m
    meta: {concept: top}
    tags: [x]
    config:
      meta: {concept: nested, domain: d}
      tags: [x, y]
`)
	records, err := New(root, []string{"models/marts/*.yml"}).Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "top", records[0].MetaString("concept"))
	require.Equal(t, "d", records[0].MetaString("domain"))
	require.Equal(t, []string{"x", "y"}, records[0].Tags)
}

func TestScan_SkipsMalformedAndDuplicates(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "models/marts/a.yml", "models:\n  - name: dup\n    description: first\n  - description: nameless\n")
	writeFile(t, root, "models/marts/b.yml", "models: [broken")
	writeFile(t, root, "models/marts/c.yml", "models:\n  - name: dup\n    description: second\n")

	records, err := New(root, []string{"models/marts/*.yml"}).Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "first", records[0].Description)
}

func TestFiles_DirectoryPatternAndDedup(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "models/marts/a.yml", "models: []\n")
	writeFile(t, root, "models/marts/sub/b.yaml", "models: []\n")
	writeFile(t, root, "models/marts/c.sql", "select 1")

	s := New(root, []string{"models/marts", "./models/marts/*.yml"})
	files, err := s.Files()
	require.NoError(t, err)
	require.Equal(t, []string{"models/marts/a.yml", "models/marts/sub/b.yaml"}, files)
}

func TestFiles_NoMatches(t *testing.T) {
	files, err := New(t.TempDir(), []string{"models/marts/**/*.yml"}).Files()
	require.NoError(t, err)
	require.Empty(t, files)
}

func TestFiles_BadPattern(t *testing.T) {
	_, err := New(t.TempDir(), []string{"models/[*.yml"}).Files()
	require.Error(t, err)
}

func TestScan_CanceledContext(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "models/marts/a.yml", "models:\n  - name: a\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(root, []string{"models/marts/*.yml"}).Scan(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
