package ast

import (
	"fmt"
)

// Validate checks the structural rules of a block:
//
//   - E201: statement names are unique within the block
//   - E202: every join target names a statement of the block
//   - E203: every join target is an earlier statement
//
// It also rejects time delta literals with an error wrapping
// ErrNotImplemented. Validate fails fast and returns the first problem in
// document order.
func Validate(b *Block) error {
	seen := make(map[string]int, len(b.Statements))
	all := make(map[string]bool, len(b.Statements))
	for _, s := range b.Statements {
		if s.Name != "" {
			all[s.Name] = true
		}
	}

	for i, s := range b.Statements {
		if s.Join != nil {
			if _, ok := seen[s.Join.Target]; !ok {
				if all[s.Join.Target] {
					return &StructuralError{
						Code:      ErrForwardJoin,
						Name:      s.Join.Target,
						Message:   fmt.Sprintf("cannot join %q: it is not an earlier statement", s.Join.Target),
						Statement: i,
					}
				}
				return &StructuralError{
					Code:      ErrUnknownJoin,
					Name:      s.Join.Target,
					Message:   fmt.Sprintf("cannot join %q: no statement has that name", s.Join.Target),
					Statement: i,
				}
			}
		}

		if s.Name != "" {
			if first, dup := seen[s.Name]; dup {
				return &StructuralError{
					Code:      ErrDuplicateName,
					Name:      s.Name,
					Message:   fmt.Sprintf("name %q already used by statement %d", s.Name, first+1),
					Statement: i,
				}
			}
			seen[s.Name] = i
		}

		if err := checkImplemented(s); err != nil {
			return fmt.Errorf("statement %d: %w", i+1, err)
		}
	}
	return nil
}

func checkImplemented(s *Statement) error {
	var err error
	visit := func(side Side) bool {
		if td, ok := side.(*TimeDeltaLiteral); ok && err == nil {
			err = fmt.Errorf("time delta %d %s at line %d column %d: %w",
				td.Amount, td.Unit, td.Pos.Line, td.Pos.Column, ErrNotImplemented)
		}
		return err == nil
	}
	WalkSides(s.Where, visit)
	if s.Join != nil {
		WalkSides(s.Join.Where, visit)
	}
	return err
}
