package harness

import (
	"github.com/roach88/pql/internal/event"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation and assertion held.
	Pass bool `json:"pass"`

	Successful  bool `json:"successful"`
	Cardinality int  `json:"cardinality"`

	// Bindings summarize each named binding: statement name to event id,
	// or to a list of ids for a bound sequence.
	Bindings []map[string]any `json:"bindings"`

	// Documents are the full bound events, in binding order.
	Documents []map[string]any `json:"-"`

	// Emitted holds the events produced by the scenario's rules.
	Emitted event.Stream `json:"emitted,omitempty"`

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Bindings: []map[string]any{},
		Errors:   []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
