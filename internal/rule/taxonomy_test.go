package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pql/internal/event"
)

func testTaxonomy(t *testing.T) *Taxonomy {
	t.Helper()
	tax := NewTaxonomy()
	require.NoError(t, tax.Define("Event"))
	require.NoError(t, tax.Define("Ledger", "Event"))
	require.NoError(t, tax.Define("Item", "Event"))
	require.NoError(t, tax.Define("ItemSelected", "Item", "Ledger"))
	require.NoError(t, tax.Define("TaxEntry", "Ledger"))
	return tax
}

func TestTaxonomy_Define(t *testing.T) {
	tax := NewTaxonomy()
	require.NoError(t, tax.Define("A"))

	assert.Error(t, tax.Define("A"), "duplicate type")
	assert.Error(t, tax.Define(""), "empty name")
	assert.Equal(t, []string{"A"}, tax.Types())
}

func TestTaxonomy_Lookup(t *testing.T) {
	tax := testTaxonomy(t)

	assert.Equal(t, []string{"ItemSelected", "Item", "Event", "Ledger"}, tax.Lookup("ItemSelected"))
	assert.Equal(t, []string{"TaxEntry", "Ledger", "Event"}, tax.Lookup("TaxEntry"))
	assert.Equal(t, []string{"Unknown"}, tax.Lookup("Unknown"))
}

func TestTaxonomy_Includes(t *testing.T) {
	tax := testTaxonomy(t)

	assert.True(t, tax.Includes("TaxEntry"))
	assert.False(t, tax.Includes("Refund"))
}

func TestTaxonomy_HasType(t *testing.T) {
	tax := testTaxonomy(t)
	selected := event.MustFromMap(map[string]any{"id": 1, "type": "ItemSelected"})
	untyped := event.MustFromMap(map[string]any{"id": 2})

	assert.True(t, tax.HasType(selected, "ItemSelected"))
	assert.True(t, tax.HasType(selected, "Ledger"))
	assert.True(t, tax.HasType(selected, "Event"))
	assert.False(t, tax.HasType(selected, "TaxEntry"))
	assert.False(t, tax.HasType(untyped, "Event"))
}
