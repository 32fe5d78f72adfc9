package rule

import (
	"fmt"
	"slices"

	"github.com/roach88/pql/internal/event"
)

// Taxonomy is a directory of event types. A type may have several parents;
// an event of a type also has every ancestor type.
//
// A Taxonomy is built once and then only read, so it may be shared by
// rules running concurrently.
type Taxonomy struct {
	parents map[string][]string
	order   []string
}

// NewTaxonomy returns an empty taxonomy.
func NewTaxonomy() *Taxonomy {
	return &Taxonomy{parents: make(map[string][]string)}
}

// Define adds a type with its parents. Parents need not be defined; an
// undefined parent is a leaf of the lookup.
func (t *Taxonomy) Define(name string, parents ...string) error {
	if name == "" {
		return fmt.Errorf("define type: empty name")
	}
	if _, ok := t.parents[name]; ok {
		return fmt.Errorf("define type %q: already defined", name)
	}
	t.parents[name] = slices.Clone(parents)
	t.order = append(t.order, name)
	return nil
}

// Includes reports whether name was defined.
func (t *Taxonomy) Includes(name string) bool {
	_, ok := t.parents[name]
	return ok
}

// Types returns the defined types in definition order.
func (t *Taxonomy) Types() []string {
	return slices.Clone(t.order)
}

// Lookup returns name followed by all of its ancestors, each once,
// depth first in parent order.
func (t *Taxonomy) Lookup(name string) []string {
	var out []string
	seen := make(map[string]bool)
	var walk func(string)
	walk = func(n string) {
		if seen[n] {
			return
		}
		seen[n] = true
		out = append(out, n)
		for _, p := range t.parents[n] {
			walk(p)
		}
	}
	walk(name)
	return out
}

// HasType reports whether e's type is typ or descends from it.
func (t *Taxonomy) HasType(e event.Event, typ string) bool {
	name := e.Type()
	if name == "" {
		return false
	}
	return slices.Contains(t.Lookup(name), typ)
}

// Parents returns the declared parents of name.
func (t *Taxonomy) Parents(name string) []string {
	return slices.Clone(t.parents[name])
}
