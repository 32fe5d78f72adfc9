package compiler

import (
	"cuelang.org/go/cue"

	"github.com/roach88/pql/internal/rule"
)

// CompileTaxonomy parses a CUE struct mapping each event type to its
// parent types:
//
//	taxonomy: {
//		Ledger:       []
//		ItemSelected: ["Item", "Ledger"]
//	}
func CompileTaxonomy(v cue.Value) (*rule.Taxonomy, error) {
	tax := rule.NewTaxonomy()
	if err := addTaxonomy(tax, v); err != nil {
		return nil, err
	}
	return tax, nil
}

func addTaxonomy(tax *rule.Taxonomy, v cue.Value) error {
	if err := v.Err(); err != nil {
		return formatCUEError(err)
	}

	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}

	for iter.Next() {
		name := iter.Selector().Unquoted()
		parentsIter, err := iter.Value().List()
		if err != nil {
			return formatCUEError(err)
		}

		var parents []string
		for parentsIter.Next() {
			p, err := parentsIter.Value().String()
			if err != nil {
				return formatCUEError(err)
			}
			parents = append(parents, p)
		}

		if err := tax.Define(name, parents...); err != nil {
			return &CompileError{
				Field:   "taxonomy." + name,
				Message: err.Error(),
				Pos:     iter.Value().Pos(),
			}
		}
	}
	return nil
}
