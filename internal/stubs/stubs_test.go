package stubs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/conceptual/internal/parser"
	"github.com/zjrosen/conceptual/internal/state"
)

func TestConceptID(t *testing.T) {
	tests := []struct {
		model string
		want  string
	}{
		{"dim_customer", "customer"},
		{"fact_sales", "sales"},
		{"stg_orders", "orders"},
		{"fct_order_line", "order_line"},
		{"bridge_customer_account", "customer_account"},
		{"customer", "customer"},
		{"dim_", "dim_"},
		{"stg_dim_customer", "dim_customer"},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			require.Equal(t, tt.want, ConceptID(tt.model))
		})
	}
}

func TestTitle(t *testing.T) {
	require.Equal(t, "Customer", Title("customer"))
	require.Equal(t, "Order Line", Title("order_line"))
	require.Equal(t, "Sales Order Item", Title("SALES_order__item"))
	require.Equal(t, "", Title(""))
}

func TestFromOrphan(t *testing.T) {
	s := FromOrphan(state.OrphanModel{Name: "dim_customer", Description: "  People who buy.\n", Domain: "party"})
	require.Equal(t, Stub{
		Model:      "dim_customer",
		ConceptID:  "customer",
		Name:       "Customer",
		Definition: "People who buy.",
		Domain:     "party",
	}, s)
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conceptual.yml")
	original := `# Conceptual model
domains:
  party:
    name: Party
concepts:
  customer:
    name: Customer
    domain: party
`
	require.NoError(t, os.WriteFile(path, []byte(original), 0o644))

	res, err := Write(path, []state.OrphanModel{
		{Name: "dim_customer"},
		{Name: "fct_order", Description: "One order.\nPer line.", Domain: "sales"},
		{Name: "stg_order"},
	})
	require.NoError(t, err)
	require.Len(t, res.Created, 1)
	require.Equal(t, "order", res.Created[0].ConceptID)
	require.Len(t, res.Skipped, 2)
	require.Equal(t, "dim_customer", res.Skipped[0].Model)
	require.Equal(t, "stg_order", res.Skipped[1].Model)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "# Conceptual model")

	st, err := parser.ParseFile(path)
	require.NoError(t, err)
	require.Contains(t, st.Concepts, "customer")
	order := st.Concepts["order"]
	require.NotNil(t, order)
	require.Equal(t, "Order", order.Name)
	require.Equal(t, "sales", order.Domain)
	require.Equal(t, "One order.\nPer line.", order.Definition)
}

func TestWrite_CreatesConceptsSection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conceptual.yml")
	require.NoError(t, os.WriteFile(path, []byte("domains: {}\n"), 0o644))

	res, err := Write(path, []state.OrphanModel{{Name: "dim_product"}})
	require.NoError(t, err)
	require.Len(t, res.Created, 1)

	st, err := parser.ParseFile(path)
	require.NoError(t, err)
	require.Equal(t, "Product", st.Concepts["product"].Name)
	require.Empty(t, st.Concepts["product"].Domain)
}

func TestWrite_NoStubsLeavesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conceptual.yml")
	original := "concepts:\n  customer: {name: Customer}\n"
	require.NoError(t, os.WriteFile(path, []byte(original), 0o644))

	res, err := Write(path, []state.OrphanModel{{Name: "dim_customer"}})
	require.NoError(t, err)
	require.Empty(t, res.Created)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, original, string(data))
}

func TestWrite_ConceptsNotMapping(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conceptual.yml")
	require.NoError(t, os.WriteFile(path, []byte("concepts: [a, b]\n"), 0o644))

	_, err := Write(path, []state.OrphanModel{{Name: "dim_x"}})
	require.Error(t, err)
}
