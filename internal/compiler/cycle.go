package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/pql/internal/ast"
	"github.com/roach88/pql/internal/event"
)

// CycleWarning reports rules that may keep triggering each other.
//
// A rule set runs each rule once per application, so a cycle never loops
// within one run. It does mean every run over the grown stream can find
// new bindings, and the max entries quota is what eventually stops it.
type CycleWarning struct {
	Path    []string `json:"path"`    // ["rule-a", "rule-b", "rule-a"]
	Message string   `json:"message"`
	Level   string   `json:"level"` // "warning"
}

// AnalyzeCycles builds a graph with an edge from rule A to rule B when A
// emits an event type B's pattern can match, and reports every strongly
// connected component with more than one rule or a self-loop.
//
// A statement whose condition is a conjunction containing type = "T" or
// type IN [...] matches only those types; any other statement may match
// any type.
func AnalyzeCycles(rules []RuleSpec) []CycleWarning {
	if len(rules) == 0 {
		return []CycleWarning{}
	}

	graph, order := buildDependencyGraph(rules)
	sccs := tarjanSCC(graph, order)

	warnings := []CycleWarning{}
	for _, scc := range sccs {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			warnings = append(warnings, cycleWarning(scc, graph, order))
		}
	}
	return warnings
}

// dependencyGraph maps a rule name to the rules its events may trigger.
type dependencyGraph map[string][]string

func buildDependencyGraph(rules []RuleSpec) (dependencyGraph, []string) {
	graph := make(dependencyGraph, len(rules))
	order := make([]string, 0, len(rules))

	for _, from := range rules {
		order = append(order, from.Config.Name)
		graph[from.Config.Name] = []string{}

		var emits []string
		for _, tmpl := range from.Config.Emit {
			emits = append(emits, tmpl.Type)
		}

		for _, to := range rules {
			types, wildcard := matchedTypes(to.Block)
			if wildcard || slices.ContainsFunc(emits, func(t string) bool { return slices.Contains(types, t) }) {
				graph[from.Config.Name] = append(graph[from.Config.Name], to.Config.Name)
			}
		}
	}
	return graph, order
}

// matchedTypes returns the event types block can bind. wildcard is true
// when some statement is not restricted by type.
func matchedTypes(block *ast.Block) (types []string, wildcard bool) {
	if block == nil {
		return nil, true
	}
	for _, stmt := range block.Statements {
		st, ok := statementTypes(stmt.Where)
		if !ok {
			return nil, true
		}
		types = append(types, st...)
	}
	return types, false
}

func statementTypes(cond *ast.Condition) ([]string, bool) {
	if cond == nil {
		return nil, false
	}
	operands := []ast.Operand{cond.First}
	for _, clause := range cond.Rest {
		if clause.Op != ast.And {
			return nil, false
		}
		operands = append(operands, clause.Operand)
	}

	for _, op := range operands {
		cmp, ok := op.(*ast.Comparison)
		if !ok {
			continue
		}
		ref, ok := cmp.Left.(*ast.Reference)
		if !ok || ref.Escapes != 0 || ref.Subject != "" || ref.Field != event.FieldType {
			continue
		}
		switch cmp.Op {
		case ast.Equals:
			if lit, ok := cmp.Right.(*ast.StringLiteral); ok {
				return []string{lit.Value}, true
			}
		case ast.In:
			if list, ok := cmp.Right.(*ast.ListLiteral); ok {
				var types []string
				for _, elem := range list.Elements {
					lit, ok := elem.(*ast.StringLiteral)
					if !ok {
						return nil, false
					}
					types = append(types, lit.Value)
				}
				return types, true
			}
		}
	}
	return nil, false
}

func hasSelfLoop(node string, graph dependencyGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components with Tarjan's algorithm,
// visiting roots in order so the result is deterministic.
func tarjanSCC(graph dependencyGraph, order []string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is the root of an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

func cycleWarning(scc []string, graph dependencyGraph, order []string) CycleWarning {
	if len(scc) == 1 {
		name := scc[0]
		return CycleWarning{
			Path:    []string{name, name},
			Message: fmt.Sprintf("rule %s can match events it emits", name),
			Level:   "warning",
		}
	}

	path := cyclePath(scc, graph, order)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("potential rule cycle: %s", strings.Join(path, " → ")),
		Level:   "warning",
	}
}

// cyclePath walks edges inside the SCC from its earliest rule until it
// returns to the start.
func cyclePath(scc []string, graph dependencyGraph, order []string) []string {
	members := make(map[string]bool, len(scc))
	for _, node := range scc {
		members[node] = true
	}

	var start string
	for _, node := range order {
		if members[node] {
			start = node
			break
		}
	}

	path := []string{start}
	visited := map[string]bool{start: true}
	current := start
	for {
		var next string
		for _, neighbor := range graph[current] {
			if neighbor == start && len(path) > 1 {
				next = neighbor
				break
			}
			if members[neighbor] && !visited[neighbor] {
				next = neighbor
				break
			}
		}
		if next == "" {
			return path
		}
		path = append(path, next)
		if next == start {
			return path
		}
		visited[next] = true
		current = next
	}
}
