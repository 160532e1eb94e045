package parser

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/conceptual/internal/state"
)

const sampleDoc = `
metadata:
  version: 2
  author: data-team
config:
  scan:
    gold: models/**/*.yml
domains:
  party:
    display_name: Party
    color: "#4a9eff"
    owner: "@party-team"
  sales:
    name: Sales Domain
  misc: {}
concepts:
  customer:
    name: Customer
    domain: party
    owner: "@data"
    definition: |
      A person who buys.
  order:
    domain: sales
  bare:
relationships:
  - from: customer
    verb: places
    to: order
    cardinality: "1:1"
    domains: [party, sales]
    name: customer_orders
  - from: order
    to: line_item
    cardinality: N:M
    domains: sales
`

func TestParse_Sample(t *testing.T) {
	st, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)

	require.Equal(t, "2", st.Metadata["version"])
	require.Equal(t, "data-team", st.Metadata["author"])

	require.Len(t, st.Domains, 3)
	require.Equal(t, &state.Domain{ID: "party", DisplayName: "Party", Color: "#4a9eff", Owner: "@party-team"}, st.Domains["party"])
	require.Equal(t, "Sales Domain", st.Domains["sales"].DisplayName)
	require.Equal(t, "misc", st.Domains["misc"].DisplayName)

	require.Len(t, st.Concepts, 3)
	customer := st.Concepts["customer"]
	require.Equal(t, "Customer", customer.Name)
	require.Equal(t, "party", customer.Domain)
	require.Equal(t, "A person who buys.\n", customer.Definition)
	require.Empty(t, customer.Models)
	require.Equal(t, "order", st.Concepts["order"].Name)
	require.Equal(t, "bare", st.Concepts["bare"].Name)
	require.Equal(t, state.StatusStub, st.Concepts["bare"].Status())

	require.Equal(t, []string{"customer:places:order", "order:relates_to:line_item"}, st.RelationshipOrder)
	places := st.Relationships["customer:places:order"]
	require.Equal(t, "1:1", places.Cardinality)
	require.Equal(t, []string{"party", "sales"}, places.Domains)
	require.Equal(t, "customer_orders", places.Name())

	rel := st.Relationships["order:relates_to:line_item"]
	require.Equal(t, state.DefaultVerb, rel.Verb)
	require.Equal(t, "1:N", rel.Cardinality)
	require.Equal(t, []string{"sales"}, rel.Domains)
}

func TestParse_DefaultCardinality(t *testing.T) {
	st, err := Parse([]byte("relationships:\n  - {from: a, verb: has, to: b}\n"))
	require.NoError(t, err)
	require.Equal(t, "1:N", st.Relationships["a:has:b"].Cardinality)
}

func TestParse_UnquotedCardinality(t *testing.T) {
	st, err := Parse([]byte("relationships:\n  - from: a\n    to: b\n    cardinality: 1:1\n"))
	require.NoError(t, err)
	require.Equal(t, "1:1", st.Relationships["a:relates_to:b"].Cardinality)
}

func TestParse_DuplicateRelationshipsKeepOrder(t *testing.T) {
	doc := `
relationships:
  - {from: a, verb: has, to: b, definition: first}
  - {from: b, verb: owns, to: c}
  - {from: a, verb: has, to: b, definition: second}
`
	st, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Equal(t, []string{"a:has:b", "b:owns:c", "a:has:b"}, st.RelationshipOrder)
	require.Len(t, st.Relationships, 2)
	require.Equal(t, "second", st.Relationships["a:has:b"].Definition)
}

func TestParse_Empty(t *testing.T) {
	for _, doc := range []string{"", "# only a comment\n", "domains:\nconcepts:\nrelationships:\n"} {
		st, err := Parse([]byte(doc))
		require.NoError(t, err)
		require.Empty(t, st.Concepts)
		require.Empty(t, st.Relationships)
		require.Empty(t, st.Domains)
	}
}

func TestParse_ConceptsKeepDocumentOrder(t *testing.T) {
	st, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)
	require.Equal(t, []string{"customer", "order", "bare"}, st.ConceptOrder)
	require.Equal(t, []string{"customer", "order", "bare"}, st.DeclaredConceptIDs())

	st, err = Parse([]byte("concepts:\n  zeta: {}\n  alpha: {}\n"))
	require.NoError(t, err)
	require.Equal(t, []string{"zeta", "alpha"}, st.DeclaredConceptIDs())
}

func TestParse_RepeatedConceptKey(t *testing.T) {
	_, err := Parse([]byte("concepts:\n  a: {}\n  a: {name: A}\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), `concept "a" already defined`)
}

func TestParse_ConceptsNotAMapping(t *testing.T) {
	_, err := Parse([]byte("concepts: [a, b]\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "concepts must be a mapping")
}

func TestParse_MissingEndpoint(t *testing.T) {
	_, err := Parse([]byte("relationships:\n  - {from: a, verb: has}\n"))
	require.ErrorIs(t, err, ErrInvalidDocument)
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("concepts: [a"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "parsing conceptual document")
}

func TestParse_BadDomainsType(t *testing.T) {
	_, err := Parse([]byte("relationships:\n  - from: a\n    to: b\n    domains: {x: 1}\n"))
	require.Error(t, err)
}

func TestParseFile_NotFound(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "conceptual.yml"))
	require.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestFileParser_Parse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conceptual.yml")
	require.NoError(t, os.WriteFile(path, []byte(sampleDoc), 0o644))

	st, err := NewFileParser(path).Parse(context.Background())
	require.NoError(t, err)
	require.Len(t, st.Concepts, 3)
}

func TestFileParser_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFileParser("unused").Parse(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
