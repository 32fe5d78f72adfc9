package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/roach88/pql/internal/ast"
	"github.com/roach88/pql/internal/compiler"
	"github.com/roach88/pql/internal/engine"
	"github.com/roach88/pql/internal/event"
	"github.com/roach88/pql/internal/parser"
	"github.com/roach88/pql/internal/rule"
	"github.com/roach88/pql/internal/store"
	"github.com/roach88/pql/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios with a fixed clock and sequential ids.
type Harness struct {
	clock  engine.Clock
	ids    *testutil.SequenceGenerator
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Expectation failures are reported in the result. The returned error is
// for scenarios that cannot run at all, such as unreadable rule files.
//
// Execution flow:
//  1. Decode the stream
//  2. Apply the scenario's rules, if any, through an in-memory store
//  3. Compile the pattern, checking expect.error
//  4. Apply the pattern twice and compare the bindings
//  5. Check expectations and assertions
func Run(scenario *Scenario) (*Result, error) {
	now := testutil.Epoch
	if scenario.Now != "" {
		t, err := time.Parse(time.RFC3339Nano, scenario.Now)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: now: %w", scenario.Name, err)
		}
		now = t.UTC()
	}

	h := &Harness{
		clock:  engine.FixedClock(now),
		ids:    testutil.NewSequenceGenerator("emitted"),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	stream, err := scenario.events()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	result := NewResult()
	ctx := context.Background()

	if len(scenario.Rules) > 0 {
		stream, err = h.applyRules(ctx, scenario.Rules, stream, result)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
	}

	block, err := parser.Compile(scenario.PQL)
	if err != nil {
		checkCompileError(err, scenario.Expect.Error, result)
		return result, nil
	}
	if scenario.Expect.Error != "" {
		result.AddError(fmt.Sprintf("expected %s error, pattern compiled", scenario.Expect.Error))
		return result, nil
	}

	if err := h.match(block, stream, result); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	checkExpect(scenario.Expect, result)
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// applyRules runs the rule files over stream in a fresh in-memory store
// and returns the stored stream, emitted events included.
func (h *Harness) applyRules(ctx context.Context, paths []string, stream event.Stream, result *Result) (event.Stream, error) {
	var rules []*rule.Rule
	for _, path := range paths {
		defs, err := loadDefinitions(path)
		if err != nil {
			return nil, err
		}
		built, err := defs.Build(
			rule.WithIDGenerator(h.ids),
			rule.WithEngineOptions(engine.WithClock(h.clock), engine.WithLogger(h.logger)),
			rule.WithLogger(h.logger),
		)
		if err != nil {
			return nil, err
		}
		rules = append(rules, built...)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if _, err := st.AppendEvents(ctx, stream); err != nil {
		return nil, err
	}
	stored, err := st.All(ctx)
	if err != nil {
		return nil, err
	}

	rs := rule.NewRuleSet(rules, rule.WithSetLogger(h.logger))
	entries, err := rs.Apply(ctx, stored, st.Begin())
	if err != nil {
		return nil, err
	}
	result.Emitted = event.Stream{}
	for _, entry := range entries {
		result.Emitted = append(result.Emitted, entry.Events...)
	}

	return st.All(ctx)
}

func loadDefinitions(path string) (*compiler.Definitions, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	if info.IsDir() {
		return compiler.LoadDir(path)
	}
	return compiler.LoadFile(path)
}

// match applies block twice and records the first application.
func (h *Harness) match(block *ast.Block, stream event.Stream, result *Result) error {
	opts := []engine.Option{engine.WithClock(h.clock), engine.WithLogger(h.logger)}

	first, err := engine.Apply(block, stream, opts...)
	if err != nil {
		return err
	}
	second, err := engine.Apply(block, stream, opts...)
	if err != nil {
		return err
	}

	firstHashes, err := bindingHashes(first.Bindings())
	if err != nil {
		return err
	}
	secondHashes, err := bindingHashes(second.Bindings())
	if err != nil {
		return err
	}
	if !slices.Equal(firstHashes, secondHashes) {
		result.AddError("non-deterministic bindings: two applications of the pattern differ")
	}

	result.Successful = first.Successful()
	result.Cardinality = first.Cardinality()
	for _, b := range first.Bindings() {
		result.Bindings = append(result.Bindings, summarize(b))
		result.Documents = append(result.Documents, b.Document())
	}
	return nil
}

func bindingHashes(bindings []engine.Binding) ([]string, error) {
	hashes := make([]string, len(bindings))
	for i, b := range bindings {
		h, err := b.Hash()
		if err != nil {
			return nil, err
		}
		hashes[i] = h
	}
	return hashes, nil
}

// summarize maps each name to its event id, or a list of ids.
func summarize(b engine.Binding) map[string]any {
	out := make(map[string]any, len(b))
	for name, bound := range b {
		if e, ok := bound.Event(); ok {
			out[name] = event.ToGo(e.ID())
			continue
		}
		ids := []any{}
		for _, e := range bound.Events() {
			ids = append(ids, event.ToGo(e.ID()))
		}
		out[name] = ids
	}
	return out
}

func checkCompileError(err error, want string, result *Result) {
	var got string
	switch {
	case parser.IsSyntaxError(err):
		got = ErrorSyntax
	case ast.IsStructuralError(err):
		got = ErrorStructural
	case errors.Is(err, ast.ErrNotImplemented):
		got = ErrorNotImplemented
	}

	switch {
	case want == "":
		result.AddError(fmt.Sprintf("pattern failed to compile: %v", err))
	case got != want:
		result.AddError(fmt.Sprintf("expected %s error, got: %v", want, err))
	}
}

func checkExpect(want Expect, result *Result) {
	if want.Successful != nil && *want.Successful != result.Successful {
		result.AddError(fmt.Sprintf("successful: expected %t, got %t", *want.Successful, result.Successful))
	}
	if want.Cardinality != nil && *want.Cardinality != result.Cardinality {
		result.AddError(fmt.Sprintf("cardinality: expected %d, got %d", *want.Cardinality, result.Cardinality))
	}
	if want.Bindings == nil {
		return
	}
	if len(want.Bindings) != len(result.Bindings) {
		result.AddError(fmt.Sprintf("bindings: expected %d, got %d: %v",
			len(want.Bindings), len(result.Bindings), result.Bindings))
		return
	}
	for i := range want.Bindings {
		if !matchFields(result.Bindings[i], want.Bindings[i], true) {
			result.AddError(fmt.Sprintf("bindings[%d]: expected %v, got %v",
				i, want.Bindings[i], result.Bindings[i]))
		}
	}
}
