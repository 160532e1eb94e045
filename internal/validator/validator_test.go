package validator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/conceptual/internal/config"
	"github.com/zjrosen/conceptual/internal/reconcile"
	"github.com/zjrosen/conceptual/internal/state"
)

func codes(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Code)
	}
	return out
}

func find(issues []Issue, code string) []Issue {
	var out []Issue
	for _, i := range issues {
		if i.Code == code {
			out = append(out, i)
		}
	}
	return out
}

func completeState() *state.ProjectState {
	st := state.New()
	st.Domains["party"] = &state.Domain{ID: "party", DisplayName: "Party"}
	st.Concepts["customer"] = &state.Concept{
		Name: "Customer", Domain: "party", Owner: "team-a",
		Definition: "A buyer.", Models: []string{"dim_customer"},
	}
	st.Concepts["order"] = &state.Concept{
		Name: "Order", Domain: "party", Owner: "team-a",
		Definition: "A purchase.", Models: []string{"fct_order"},
	}
	st.AddRelationship(&state.Relationship{Verb: "places", From: "customer", To: "order", Cardinality: "1:N", Definition: "Customers place orders."})
	return st
}

func TestValidate_CleanState(t *testing.T) {
	v := New(config.Defaults().Validation, completeState())
	require.Empty(t, v.Validate())
	require.False(t, v.HasErrors())
	require.Equal(t, Summary{}, v.Summary())
}

func TestValidate_RuleOrder(t *testing.T) {
	st := state.New()
	st.Domains["party"] = &state.Domain{ID: "party"}
	st.Concepts["customer"] = &state.Concept{Name: "Customer", Domain: "party"}
	st.Concepts["widget"] = &state.Concept{Name: "Widget", Domain: "nowhere", Models: []string{"dim_widget"}}
	st.AddRelationship(&state.Relationship{Verb: "places", From: "customer", To: "order"})
	st.Orphans = []state.OrphanModel{{Name: "stg_misc", Path: "models/marts/misc.yml"}}

	cfg := config.Defaults().Validation
	cfg.Defaults.MissingDefinitions = "warn"
	issues := New(cfg, st).Validate()

	require.Equal(t, []string{
		CodeUnknownConcept,
		CodeOrphanModel,
		CodeUnimplementedConcept,
		CodeMissingDefinition,
		CodeMissingDefinition,
		CodeMissingDefinition,
		CodeUnknownDomain,
		CodeStubConcept,
		CodeStubRelationship,
	}, codes(issues))
}

func TestValidate_EndpointAndStubRelationship(t *testing.T) {
	st := state.New()
	st.Domains["party"] = &state.Domain{ID: "party"}
	st.Concepts["customer"] = &state.Concept{Name: "Customer", Domain: "party", Owner: "o", Definition: "d", Models: []string{"m"}}
	st.AddRelationship(&state.Relationship{Verb: "places", From: "customer", To: "order"})

	v := New(config.Defaults().Validation, st)
	issues := v.Validate()

	e002 := find(issues, CodeUnknownConcept)
	require.Len(t, e002, 1)
	require.Equal(t, SeverityError, e002[0].Severity)
	require.Equal(t, "Relationship 'customer:places:order' references non-existent concept 'order'", e002[0].Message)
	require.Equal(t, map[string]any{"relationship": "customer:places:order", "missing_concept": "order"}, e002[0].Context)

	i002 := find(issues, CodeStubRelationship)
	require.Len(t, i002, 1)
	require.Equal(t, SeverityInfo, i002[0].Severity)
	require.Equal(t, "Stub relationship 'customer:places:order' needs enrichment: missing definition", i002[0].Message)
	require.True(t, v.HasErrors())
	require.Equal(t, Summary{Errors: 1, Warnings: 0, Infos: 1}, v.Summary())
}

func TestValidate_AfterSyncNoEndpointErrors(t *testing.T) {
	st := state.New()
	st.Concepts["customer"] = &state.Concept{Name: "Customer"}
	st.AddRelationship(&state.Relationship{Verb: "places", From: "customer", To: "order", Definition: "x"})
	reconcile.ValidateAndSync(st)

	issues := New(config.Defaults().Validation, st).Validate()
	require.Empty(t, find(issues, CodeUnknownConcept))

	// Ghosts are skipped by W102 and I001.
	for _, i := range find(issues, CodeUnimplementedConcept) {
		require.NotEqual(t, "order", i.Context["concept"])
	}
	for _, i := range find(issues, CodeStubConcept) {
		require.NotEqual(t, "order", i.Context["concept"])
	}

	i002 := find(issues, CodeStubRelationship)
	require.Len(t, i002, 1)
	require.Equal(t, "Stub relationship 'customer:places:order' has stub/ghost endpoint concepts", i002[0].Message)
}

func TestValidate_OrphanSeverity(t *testing.T) {
	st := state.New()
	st.Orphans = []state.OrphanModel{
		{Name: "gold_model", Path: "models/marts/a.yml"},
		{Name: "silver_model", Path: "models/staging/b.yml"},
	}

	tests := []struct {
		name     string
		defaults string
		gold     string
		resolver func(string) string
		want     []Severity
	}{
		{name: "builtin warn", want: []Severity{SeverityWarning, SeverityWarning}},
		{name: "defaults error", defaults: "error", want: []Severity{SeverityError, SeverityError}},
		{name: "ignore", defaults: "ignore", want: nil},
		{name: "gold override wins", defaults: "warn", gold: "error", want: []Severity{SeverityError, SeverityError}},
		{name: "unknown falls back", defaults: "loud", want: []Severity{SeverityWarning, SeverityWarning}},
		{
			name:     "layer resolver",
			defaults: "warn",
			gold:     "error",
			resolver: func(p string) string {
				if p == "models/marts/a.yml" {
					return config.LayerGold
				}
				return ""
			},
			want: []Severity{SeverityError, SeverityWarning},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.ValidationConfig{
				Defaults: config.SeverityConfig{OrphanModels: tt.defaults},
				Gold:     config.SeverityConfig{OrphanModels: tt.gold},
			}
			var opts []Option
			if tt.resolver != nil {
				opts = append(opts, WithLayerResolver(tt.resolver))
			}
			issues := find(New(cfg, st, opts...).Validate(), CodeOrphanModel)

			var got []Severity
			for _, i := range issues {
				got = append(got, i.Severity)
			}
			require.Equal(t, tt.want, got)
		})
	}
}

func TestValidate_OrphanMessage(t *testing.T) {
	st := state.New()
	st.Orphans = []state.OrphanModel{{Name: "stg_misc", Path: "models/marts/misc.yml"}}
	issues := New(config.Defaults().Validation, st).Validate()
	require.Len(t, issues, 1)
	require.Equal(t, "Model 'stg_misc' is not linked to any concept", issues[0].Message)
	require.Equal(t, map[string]any{"model": "stg_misc", "path": "models/marts/misc.yml"}, issues[0].Context)
}

func TestValidate_MissingDefinitions(t *testing.T) {
	st := state.New()
	st.Domains["party"] = &state.Domain{ID: "party"}
	st.Concepts["stub"] = &state.Concept{Name: "Stub"}
	st.Concepts["draft"] = &state.Concept{Name: "Draft", Domain: "party"}
	st.Concepts["done"] = &state.Concept{Name: "Done", Domain: "party", Definition: "ok", Models: []string{"m"}}
	st.AddRelationship(&state.Relationship{Verb: "has", From: "draft", To: "done"})

	t.Run("ignored by default", func(t *testing.T) {
		issues := New(config.Defaults().Validation, st).Validate()
		require.Empty(t, find(issues, CodeMissingDefinition))
	})

	t.Run("enabled", func(t *testing.T) {
		cfg := config.Defaults().Validation
		cfg.Defaults.MissingDefinitions = "warn"
		issues := find(New(cfg, st).Validate(), CodeMissingDefinition)
		require.Len(t, issues, 2)
		require.Equal(t, "Concept 'draft' is missing a definition", issues[0].Message)
		require.Equal(t, "Relationship 'draft:has:done' is missing a definition", issues[1].Message)
	})
}

func TestValidate_UnknownDomain(t *testing.T) {
	st := state.New()
	st.Concepts["customer"] = &state.Concept{Name: "Customer", Domain: "party", Models: []string{"m"}}
	issues := find(New(config.Defaults().Validation, st).Validate(), CodeUnknownDomain)
	require.Len(t, issues, 1)
	require.Equal(t, SeverityWarning, issues[0].Severity)
	require.Equal(t, "Concept 'customer' references unknown domain 'party'", issues[0].Message)
}

func TestValidate_StubConcepts(t *testing.T) {
	st := state.New()
	st.Domains["party"] = &state.Domain{ID: "party"}
	st.Concepts["stub"] = &state.Concept{Name: "Stub", Owner: "o"}
	st.Concepts["draft"] = &state.Concept{Name: "Draft", Domain: "party", Definition: "d"}
	st.Concepts["enriched"] = &state.Concept{Name: "Enriched", Domain: "party", Owner: "o", Definition: "d"}

	t.Run("info", func(t *testing.T) {
		v := New(config.Defaults().Validation, st)
		issues := find(v.Validate(), CodeStubConcept)
		require.Len(t, issues, 2)
		require.Equal(t, "Draft concept 'draft' needs enrichment: missing owner", issues[0].Message)
		require.Equal(t, SeverityInfo, issues[0].Severity)
		require.Equal(t, "Stub concept 'stub' needs enrichment: missing domain, definition", issues[1].Message)
		require.Equal(t, []string{"domain", "definition"}, issues[1].Context["missing"])
	})

	t.Run("no drafts", func(t *testing.T) {
		v := New(config.Defaults().Validation, st, WithNoDrafts(true))
		issues := v.Validate()
		require.Empty(t, find(issues, CodeStubConcept))
		strict := find(issues, CodeStubConceptStrict)
		require.Len(t, strict, 2)
		require.Equal(t, SeverityError, strict[0].Severity)
		require.True(t, v.HasErrors())
	})
}

func TestValidate_Rerun(t *testing.T) {
	st := state.New()
	st.Orphans = []state.OrphanModel{{Name: "a"}}
	v := New(config.Defaults().Validation, st)
	require.Len(t, v.Validate(), 1)
	require.Len(t, v.Validate(), 1)
	require.Len(t, v.Issues(), 1)
}
