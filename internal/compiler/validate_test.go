package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pql/internal/event"
	"github.com/roach88/pql/internal/rule"
)

func testTaxonomy(t *testing.T, types map[string][]string, order ...string) *rule.Taxonomy {
	t.Helper()
	tax := rule.NewTaxonomy()
	for _, name := range order {
		require.NoError(t, tax.Define(name, types[name]...))
	}
	return tax
}

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateClean(t *testing.T) {
	s := spec("tax", matching("ItemSelected"), "TaxEntry")
	s.Config.Emit[0].Bind = map[string]string{"applied_to": "x", "base": "x.price"}
	tax := testTaxonomy(t, map[string][]string{}, "ItemSelected", "TaxEntry")

	errs := Validate(&Definitions{Rules: []RuleSpec{s}, Taxonomy: tax})
	assert.Empty(t, errs)
}

func TestValidateUnboundName(t *testing.T) {
	s := spec("tax", matching("ItemSelected"), "TaxEntry")
	s.Config.Emit[0].Bind = map[string]string{"applied_to": "item.id"}

	errs := Validate(&Definitions{Rules: []RuleSpec{s}})
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnboundName, errs[0].Code)
	assert.Equal(t, "rule.tax.emit[0].bind.applied_to", errs[0].Field)
	assert.Contains(t, errs[0].Message, `"item"`)
}

func TestValidateTaxonomyTypes(t *testing.T) {
	tax := testTaxonomy(t, map[string][]string{"TaxEntry": {"Ledger"}}, "TaxEntry")
	rules := []RuleSpec{
		spec("tax", matching("ItemSelected"), "TaxEntry", "Refund"),
	}

	errs := Validate(&Definitions{Rules: rules, Taxonomy: tax})
	assert.ElementsMatch(t, []string{ErrUnknownParent, ErrUnknownPattern, ErrUnknownType}, codes(errs))
}

func TestValidateReservedFields(t *testing.T) {
	s := spec("r", matching("A"), "B")
	s.Config.Emit[0].Set = map[string]event.Value{event.FieldType: event.String("C")}
	s.Config.Emit[0].Bind = map[string]string{event.FieldCausedBy: "x"}

	errs := Validate(&Definitions{Rules: []RuleSpec{s}})
	assert.Equal(t, []string{ErrReservedField, ErrReservedField}, codes(errs))
}

func TestValidationErrorFormat(t *testing.T) {
	err := ValidationError{Field: "rule.r", Message: "bad", Code: ErrUnboundName, Line: 4}
	assert.Equal(t, "[E101] line 4: rule.r: bad", err.Error())

	err.Line = 0
	assert.Equal(t, "[E101] rule.r: bad", err.Error())
}
