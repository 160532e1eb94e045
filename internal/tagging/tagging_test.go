package tagging

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/zjrosen/conceptual/internal/config"
	"github.com/zjrosen/conceptual/internal/state"
)

func newState() *state.ProjectState {
	st := state.New()
	st.Domains["party"] = &state.Domain{ID: "party", DisplayName: "Party", Owner: "party-team"}
	st.Domains["sales"] = &state.Domain{ID: "sales", DisplayName: "Sales"}
	st.Concepts["customer"] = &state.Concept{Name: "Customer", Domain: "party", Models: []string{"dim_customer"}}
	st.Concepts["order"] = &state.Concept{Name: "Order", Domain: "sales", Owner: "sales-team", Models: []string{"fct_order"}}
	st.Concepts["ghost"] = &state.Concept{Name: "ghost", IsGhost: true}
	st.Concepts["loose"] = &state.Concept{Name: "Loose"}
	return st
}

func TestPlan_AddsDomainAndDomainOwner(t *testing.T) {
	st := newState()
	st.Models["dim_customer"] = state.ModelInfo{Name: "dim_customer", Concept: "customer", Path: "models/schema.yml"}

	changes := NewPlanner(st, config.TagConfig{}).Plan()
	require.Len(t, changes, 1)

	c := changes[0]
	require.Equal(t, "dim_customer", c.Model)
	require.Equal(t, ActionAdd, c.Action)
	require.Equal(t, []string{"party"}, c.AddDomains)
	require.Empty(t, c.RemoveDomains)
	require.Equal(t, "party-team", c.AddOwner)
	require.Empty(t, c.RemoveOwner)
}

func TestPlan_ConceptOwnerWins(t *testing.T) {
	st := newState()
	st.Domains["sales"].Owner = "domain-owner"
	st.Models["fct_order"] = state.ModelInfo{Name: "fct_order", Concept: "order", Path: "m.yml", OwnerTag: "old-team", DomainTags: []string{"sales"}}

	changes := NewPlanner(st, config.TagConfig{}).Plan()
	require.Len(t, changes, 1)
	require.Equal(t, ActionModify, changes[0].Action)
	require.Empty(t, changes[0].AddDomains)
	require.Equal(t, "sales-team", changes[0].AddOwner)
	require.Equal(t, "old-team", changes[0].RemoveOwner)
}

func TestPlan_RemovesExtraDomainsUnlessMultipleAllowed(t *testing.T) {
	st := newState()
	st.Models["fct_order"] = state.ModelInfo{
		Name: "fct_order", Concept: "order", Path: "m.yml",
		DomainTags: []string{"sales", "finance"}, OwnerTag: "sales-team",
	}

	changes := NewPlanner(st, config.TagConfig{}).Plan()
	require.Len(t, changes, 1)
	require.Equal(t, []string{"finance"}, changes[0].RemoveDomains)
	require.Equal(t, []string{"sales"}, changes[0].Domains())

	changes = NewPlanner(st, config.TagConfig{DomainsAllowMultiple: true}).Plan()
	require.Empty(t, changes, "extra domains are kept and nothing else differs")
}

func TestPlan_Skips(t *testing.T) {
	st := newState()
	st.Models["orphan"] = state.ModelInfo{Name: "orphan", Path: "m.yml"}
	st.Models["haunted"] = state.ModelInfo{Name: "haunted", Concept: "ghost", Path: "m.yml"}
	st.Models["loose_model"] = state.ModelInfo{Name: "loose_model", Concept: "loose", Path: "m.yml"}
	st.Models["unknown"] = state.ModelInfo{Name: "unknown", Concept: "nope", Path: "m.yml"}
	st.Models["no_path"] = state.ModelInfo{Name: "no_path", Concept: "customer"}
	st.Models["in_sync"] = state.ModelInfo{Name: "in_sync", Concept: "customer", Path: "m.yml", DomainTags: []string{"party"}, OwnerTag: "party-team"}

	require.Empty(t, NewPlanner(st, config.TagConfig{}).Plan())
}

func TestPlan_ScopedAndSorted(t *testing.T) {
	st := newState()
	st.Models["z_customer"] = state.ModelInfo{Name: "z_customer", Concept: "customer", Path: "m.yml"}
	st.Models["a_customer"] = state.ModelInfo{Name: "a_customer", Concept: "customer", Path: "m.yml"}
	st.Models["fct_order"] = state.ModelInfo{Name: "fct_order", Concept: "order", Path: "m.yml"}

	all := NewPlanner(st, config.TagConfig{}).Plan()
	require.Len(t, all, 3)
	require.Equal(t, "a_customer", all[0].Model)
	require.Equal(t, "fct_order", all[1].Model)
	require.Equal(t, "z_customer", all[2].Model)

	scoped := NewPlanner(st, config.TagConfig{}).Plan("fct_order")
	require.Len(t, scoped, 1)
	require.Equal(t, "fct_order", scoped[0].Model)
}

const schema = `# marts
models:
  - name: dim_customer
    description: Customers
    meta:
      concept: customer
    config:
      tags: [pii, "domain:legacy", "owner:nobody"]
  - name: fct_order
    meta:
      concept: order
`

func writeSchema(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "models", "schema.yml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readModels(t *testing.T, path string) []map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc struct {
		Models []map[string]any `yaml:"models"`
	}
	require.NoError(t, yaml.Unmarshal(data, &doc))
	return doc.Models
}

func plannedState() *state.ProjectState {
	st := newState()
	st.Models["dim_customer"] = state.ModelInfo{
		Name: "dim_customer", Concept: "customer", Path: "models/schema.yml",
		DomainTags: []string{"legacy"}, OwnerTag: "nobody",
	}
	st.Models["fct_order"] = state.ModelInfo{Name: "fct_order", Concept: "order", Path: "models/schema.yml"}
	return st
}

func TestApply_Standard(t *testing.T) {
	dir := t.TempDir()
	path := writeSchema(t, dir, schema)

	st := plannedState()
	changes := NewPlanner(st, config.TagConfig{}).Plan()
	require.Len(t, changes, 2)

	res, err := NewApplier(dir, config.TagConfig{}).Apply(context.Background(), changes, false)
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	require.Equal(t, []string{"models/schema.yml"}, res.ModifiedFiles)

	models := readModels(t, path)
	customerCfg := models[0]["config"].(map[string]any)
	require.Equal(t, []any{"pii", "domain:party", "owner:party-team"}, customerCfg["tags"])

	orderCfg := models[1]["config"].(map[string]any)
	require.Equal(t, []any{"domain:sales", "owner:sales-team"}, orderCfg["tags"])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "# marts", "comments survive")
}

func TestApply_StandardKeepsTopLevelTags(t *testing.T) {
	dir := t.TempDir()
	path := writeSchema(t, dir, `models:
  - name: fct_order
    tags: [finance]
    meta: {concept: order}
`)
	st := newState()
	st.Models["fct_order"] = state.ModelInfo{Name: "fct_order", Concept: "order", Path: "models/schema.yml"}

	_, err := NewApplier(dir, config.TagConfig{}).Apply(context.Background(), NewPlanner(st, config.TagConfig{}).Plan(), false)
	require.NoError(t, err)

	models := readModels(t, path)
	require.Equal(t, []any{"finance", "domain:sales", "owner:sales-team"}, models[0]["tags"])
	require.NotContains(t, models[0], "config")
}

func TestApply_Databricks(t *testing.T) {
	dir := t.TempDir()
	path := writeSchema(t, dir, schema)

	cfg := config.TagConfig{Format: FormatDatabricks}
	st := plannedState()
	_, err := NewApplier(dir, cfg).Apply(context.Background(), NewPlanner(st, cfg).Plan(), false)
	require.NoError(t, err)

	models := readModels(t, path)
	dbTags := models[1]["config"].(map[string]any)["databricks_tags"].(map[string]any)
	require.Equal(t, "sales", dbTags["domain"])
	require.Equal(t, "sales-team", dbTags["owner"])
}

func TestApply_DatabricksMultipleDomains(t *testing.T) {
	dir := t.TempDir()
	path := writeSchema(t, dir, `models:
  - name: fct_order
    config:
      databricks_tags:
        domain: finance
`)
	cfg := config.TagConfig{Format: FormatDatabricks, DomainsAllowMultiple: true}
	st := newState()
	st.Models["fct_order"] = state.ModelInfo{Name: "fct_order", Concept: "order", Path: "models/schema.yml", DomainTags: []string{"finance"}}

	_, err := NewApplier(dir, cfg).Apply(context.Background(), NewPlanner(st, cfg).Plan(), false)
	require.NoError(t, err)

	dbTags := readModels(t, path)[0]["config"].(map[string]any)["databricks_tags"].(map[string]any)
	require.Equal(t, []any{"sales", "finance"}, dbTags["domain"])
}

func TestApply_DryRunLeavesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeSchema(t, dir, schema)

	res, err := NewApplier(dir, config.TagConfig{}).Apply(context.Background(), NewPlanner(plannedState(), config.TagConfig{}).Plan(), true)
	require.NoError(t, err)
	require.Len(t, res.ModifiedFiles, 1)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, schema, string(data))
}

func TestApply_RecordsFileErrors(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "models:\n  - name: other\n")

	changes := []Change{
		{Model: "fct_order", Path: "models/schema.yml", Domain: "sales", AddDomains: []string{"sales"}},
		{Model: "x", Path: "models/missing.yml", Domain: "sales"},
	}
	res, err := NewApplier(dir, config.TagConfig{}).Apply(context.Background(), changes, false)
	require.NoError(t, err)
	require.Empty(t, res.ModifiedFiles)
	require.Len(t, res.Errors, 2)

	var fe *FileError
	require.ErrorAs(t, res.Errors[1], &fe)
	require.Equal(t, "models/schema.yml", fe.Path)
	require.ErrorIs(t, res.Errors[1], ErrModelNotInFile)
}

func TestApply_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewApplier(t.TempDir(), config.TagConfig{}).Apply(ctx, []Change{{Model: "m", Path: "a.yml"}}, false)
	require.ErrorIs(t, err, context.Canceled)
}
