package rule

import (
	"fmt"
	"iter"
	"log/slog"
	"slices"

	"github.com/roach88/pql/internal/ast"
	"github.com/roach88/pql/internal/engine"
	"github.com/roach88/pql/internal/event"
	"github.com/roach88/pql/internal/parser"
)

// Action runs once per named binding. It emits events through e; an
// action that emits nothing produces no entry.
type Action func(b engine.Binding, e *Entry) error

// Config is the declarative part of a rule.
type Config struct {
	Name        string
	Description string

	// Pattern is the PQL block the stream is matched against.
	Pattern string

	// Emit templates build the default action. Ignored when WithAction
	// is given.
	Emit []EmitTemplate

	// Context attributes are merged into every emitted event.
	Context map[string]event.Value
}

// Rule pairs a compiled pattern with the action fired per binding.
type Rule struct {
	name        string
	description string
	block       *ast.Block
	action      Action
	context     map[string]event.Value
	taxonomy    *Taxonomy
	ids         IDGenerator
	engineOpts  []engine.Option
	logger      *slog.Logger
}

// Option configures a Rule.
type Option func(*Rule)

// WithAction sets a programmatic action, replacing any Emit templates.
func WithAction(a Action) Option {
	return func(r *Rule) {
		r.action = a
	}
}

// WithTaxonomy restricts emitted types to those t defines.
func WithTaxonomy(t *Taxonomy) Option {
	return func(r *Rule) {
		r.taxonomy = t
	}
}

// WithIDGenerator sets the generator for entry and event ids.
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Rule) {
		if g != nil {
			r.ids = g
		}
	}
}

// WithEngineOptions passes options to every engine.Apply the rule makes.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(r *Rule) {
		r.engineOpts = append(r.engineOpts, opts...)
	}
}

// WithLogger sets the logger for firing diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Rule) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New compiles cfg.Pattern and builds a rule. Syntax and structural errors
// in the pattern are returned here, not when the rule is applied.
func New(cfg Config, opts ...Option) (*Rule, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("rule: missing name")
	}

	block, err := parser.Compile(cfg.Pattern)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", cfg.Name, err)
	}

	r := &Rule{
		name:        cfg.Name,
		description: cfg.Description,
		block:       block,
		context:     cfg.Context,
		ids:         UUIDv7Generator{},
		logger:      slog.Default(),
	}
	if len(cfg.Emit) > 0 {
		for i, tmpl := range cfg.Emit {
			for field, path := range tmpl.Bind {
				if err := ValidatePath(path); err != nil {
					return nil, fmt.Errorf("rule %s: emit %d field %q: %w", cfg.Name, i, field, err)
				}
			}
		}
		r.action = templateAction(slices.Clone(cfg.Emit), namedStatements(block))
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.action == nil {
		return nil, fmt.Errorf("rule %s: no action and no emit templates", cfg.Name)
	}
	return r, nil
}

// Name returns the rule name.
func (r *Rule) Name() string { return r.name }

// Description returns the rule description.
func (r *Rule) Description() string { return r.description }

// Block returns the compiled pattern.
func (r *Rule) Block() *ast.Block { return r.block }

// Bindings applies the pattern to stream.
func (r *Rule) Bindings(stream event.Stream) (iter.Seq[engine.Binding], error) {
	result, err := engine.Apply(r.block, stream, r.engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", r.name, err)
	}
	return result.NamedBindings(), nil
}

// Run fires the action for one binding. The returned entry is nil when the
// action emitted nothing.
func (r *Rule) Run(b engine.Binding) (*Entry, error) {
	entry := newEntry(r.description, r.context, b.IDs(), r.taxonomy, r.ids)
	if err := r.action(b, entry); err != nil {
		return nil, fmt.Errorf("rule %s: %w", r.name, err)
	}
	if len(entry.Events) == 0 {
		return nil, nil
	}
	return entry, nil
}

// Apply fires the action once per named binding and returns the entries
// that emitted events, in binding order.
func (r *Rule) Apply(stream event.Stream) ([]*Entry, error) {
	bindings, err := r.Bindings(stream)
	if err != nil {
		return nil, err
	}

	var entries []*Entry
	for b := range bindings {
		entry, err := r.Run(b)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			entries = append(entries, entry)
		}
	}
	r.logger.Debug("rule applied", "rule", r.name, "entries", len(entries))
	return entries, nil
}
