package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/pql/internal/rule"
)

// Definitions are the rules and taxonomy read from one or more CUE files.
type Definitions struct {
	// Rules in application order: file name order, then declaration order.
	Rules []RuleSpec

	// Taxonomy is nil when no file declares one.
	Taxonomy *rule.Taxonomy
}

// Compile reads the top-level "rule" and "taxonomy" fields of v.
func Compile(v cue.Value) (*Definitions, error) {
	defs := &Definitions{}
	if err := defs.add(v); err != nil {
		return nil, err
	}
	return defs, nil
}

// LoadFile compiles a single CUE file.
func LoadFile(path string) (*Definitions, error) {
	defs := &Definitions{}
	if err := defs.addFile(cuecontext.New(), path); err != nil {
		return nil, err
	}
	return defs, nil
}

// LoadDir compiles every .cue file in dir, in file name order. Rule names
// must be unique across files; taxonomy types are merged.
func LoadDir(dir string) (*Definitions, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	ctx := cuecontext.New()
	defs := &Definitions{}
	found := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".cue") {
			continue
		}
		found++
		if err := defs.addFile(ctx, filepath.Join(dir, entry.Name())); err != nil {
			return nil, err
		}
	}
	if found == 0 {
		return nil, fmt.Errorf("load rules: no .cue files in %s", dir)
	}
	return defs, nil
}

func (d *Definitions) addFile(ctx *cue.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return formatCUEError(err)
	}
	return d.add(v)
}

func (d *Definitions) add(v cue.Value) error {
	taxVal := v.LookupPath(cue.ParsePath("taxonomy"))
	if taxVal.Exists() {
		if d.Taxonomy == nil {
			d.Taxonomy = rule.NewTaxonomy()
		}
		if err := addTaxonomy(d.Taxonomy, taxVal); err != nil {
			return err
		}
	}

	rulesVal := v.LookupPath(cue.ParsePath("rule"))
	if !rulesVal.Exists() {
		return nil
	}
	iter, err := rulesVal.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		spec, err := CompileRule(iter.Value())
		if err != nil {
			return err
		}
		if d.lookup(spec.Config.Name) != nil {
			return &CompileError{
				Field:   "rule." + spec.Config.Name,
				Message: "duplicate rule name",
				Pos:     spec.Pos,
			}
		}
		d.Rules = append(d.Rules, *spec)
	}
	return nil
}

func (d *Definitions) lookup(name string) *RuleSpec {
	for i := range d.Rules {
		if d.Rules[i].Config.Name == name {
			return &d.Rules[i]
		}
	}
	return nil
}

// Build constructs the rules. The taxonomy, when declared, restricts the
// types the rules may emit; opts are applied after it.
func (d *Definitions) Build(opts ...rule.Option) ([]*rule.Rule, error) {
	var base []rule.Option
	if d.Taxonomy != nil {
		base = append(base, rule.WithTaxonomy(d.Taxonomy))
	}
	base = append(base, opts...)

	rules := make([]*rule.Rule, 0, len(d.Rules))
	for _, spec := range d.Rules {
		r, err := rule.New(spec.Config, base...)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}
