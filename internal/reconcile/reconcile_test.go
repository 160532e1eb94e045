package reconcile

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zjrosen/conceptual/internal/state"
)

func sampleDoc() *state.ProjectState {
	st := state.New()
	st.Domains["party"] = &state.Domain{ID: "party", DisplayName: "Party"}
	st.Concepts["customer"] = &state.Concept{Name: "Customer", Domain: "party", Models: []string{}}
	st.Concepts["order"] = &state.Concept{Name: "Order", Domain: "party", Models: []string{}}
	st.AddRelationship(&state.Relationship{Verb: "places", From: "customer", To: "order", Cardinality: "1:N"})
	return st
}

func TestReconcile_LinksOrphansAndUnknownLinks(t *testing.T) {
	doc := sampleDoc()
	records := []state.ModelRecord{
		{Name: "dim_customer", Meta: map[string]any{"concept": "customer"}, Path: "models/marts/a.yml"},
		{Name: "fct_customer_daily", Meta: map[string]any{"concept": "customer"}},
		{Name: "dim_widget", Meta: map[string]any{"concept": "widget"}},
		{Name: "stg_misc", Meta: map[string]any{"domain": "sales"}, Description: "Misc", Path: "models/marts/b.yml"},
	}

	st := Reconcile(doc, records)

	require.Equal(t, []string{"dim_customer", "fct_customer_daily"}, st.Concepts["customer"].Models)
	require.Empty(t, st.Concepts["order"].Models)
	require.NotContains(t, st.Concepts, "widget")

	require.Equal(t, []state.OrphanModel{{Name: "stg_misc", Description: "Misc", Domain: "sales", Path: "models/marts/b.yml"}}, st.Orphans)
	require.Len(t, st.Models, 4)
	require.Equal(t, "widget", st.Models["dim_widget"].Concept)
	require.False(t, st.IsOrphan("dim_widget"))

	// The document is untouched.
	require.Empty(t, doc.Concepts["customer"].Models)
	require.Empty(t, doc.Orphans)
	require.Empty(t, doc.Models)
}

func TestReconcile_NoGhosts(t *testing.T) {
	doc := state.New()
	doc.AddRelationship(&state.Relationship{Verb: "has", From: "a", To: "b"})
	st := Reconcile(doc, nil)
	require.Empty(t, st.Concepts)
	require.Empty(t, st.Relationships["a:has:b"].ValidationStatus)
}

func TestReconcile_ModelInfoTags(t *testing.T) {
	rec := state.ModelRecord{
		Name: "dim_customer",
		Meta: map[string]any{"concept": "customer"},
		Tags: []string{"nightly", "domain:party", "owner:team-a", "domain:sales", "domain:party"},
		StructuredTags: map[string]any{
			"domain": []any{"finance", "party", 42},
			"owner":  "team-b",
		},
		Path: "models/marts/a.yml",
	}
	st := Reconcile(sampleDoc(), []state.ModelRecord{rec})
	info := st.Models["dim_customer"]
	require.Equal(t, []string{"party", "sales", "finance", "42"}, info.DomainTags)
	require.Equal(t, "team-b", info.OwnerTag)
	require.Equal(t, "customer", info.Concept)
	require.Equal(t, "models/marts/a.yml", info.Path)
}

func TestReconcile_StructuredDomainString(t *testing.T) {
	rec := state.ModelRecord{
		Name:           "m",
		Tags:           []string{"owner:flat"},
		StructuredTags: map[string]any{"domain": "party"},
	}
	info := Reconcile(state.New(), []state.ModelRecord{rec}).Models["m"]
	require.Equal(t, []string{"party"}, info.DomainTags)
	require.Equal(t, "flat", info.OwnerTag)
}

func TestReconcile_StructuredTagsRenderNonStrings(t *testing.T) {
	rec := state.ModelRecord{
		Name: "m",
		StructuredTags: map[string]any{
			"domain": []any{2024, true},
			"owner":  7,
		},
	}
	info := Reconcile(state.New(), []state.ModelRecord{rec}).Models["m"]
	require.Equal(t, []string{"2024", "true"}, info.DomainTags)
	require.Equal(t, "7", info.OwnerTag)

	rec.StructuredTags = map[string]any{"domain": 5, "owner": nil}
	rec.Tags = []string{"owner:flat"}
	info = Reconcile(state.New(), []state.ModelRecord{rec}).Models["m"]
	require.Equal(t, []string{"5"}, info.DomainTags)
	require.Equal(t, "flat", info.OwnerTag)
}

func TestReconcile_Idempotent(t *testing.T) {
	records := []state.ModelRecord{
		{Name: "dim_customer", Meta: map[string]any{"concept": "customer"}},
		{Name: "stg_misc"},
		{Name: "stg_misc"},
	}
	once := Reconcile(sampleDoc(), records)
	twice := Reconcile(once, records)

	require.Equal(t, []string{"dim_customer"}, once.Concepts["customer"].Models)
	require.Len(t, once.Orphans, 1)
	require.Equal(t, once.Concepts["customer"].Models, twice.Concepts["customer"].Models)
	require.Equal(t, once.Orphans, twice.Orphans)
	require.Equal(t, once.Models, twice.Models)
}

func TestProperty_ReconcileIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		conceptIDs := []string{"a", "b", "c"}
		doc := state.New()
		for _, id := range conceptIDs[:rapid.IntRange(0, 3).Draw(t, "nconcepts")] {
			doc.Concepts[id] = &state.Concept{Name: id, Models: []string{}}
		}

		n := rapid.IntRange(0, 12).Draw(t, "nrecords")
		records := make([]state.ModelRecord, 0, n)
		for i := 0; i < n; i++ {
			rec := state.ModelRecord{Name: rapid.SampledFrom([]string{"m1", "m2", "m3", "m4"}).Draw(t, "name")}
			if rapid.Bool().Draw(t, "linked") {
				rec.Meta = map[string]any{"concept": rapid.SampledFrom([]string{"a", "b", "c", "zzz"}).Draw(t, "concept")}
			}
			records = append(records, rec)
		}

		once := Reconcile(doc, records)
		twice := Reconcile(once, records)

		for id, c := range once.Concepts {
			seen := map[string]bool{}
			for _, m := range c.Models {
				if seen[m] {
					t.Fatalf("concept %s has duplicate model %s", id, m)
				}
				seen[m] = true
			}
			if len(c.Models) != len(twice.Concepts[id].Models) {
				t.Fatalf("concept %s models changed on second pass", id)
			}
		}
		seen := map[string]bool{}
		for _, o := range once.Orphans {
			if seen[o.Name] {
				t.Fatalf("duplicate orphan %s", o.Name)
			}
			seen[o.Name] = true
		}
		if len(once.Orphans) != len(twice.Orphans) {
			t.Fatalf("orphans changed on second pass")
		}
	})
}
