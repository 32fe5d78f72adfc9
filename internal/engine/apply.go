package engine

import (
	"log/slog"

	"github.com/roach88/pql/internal/ast"
	"github.com/roach88/pql/internal/event"
)

// Apply evaluates block against stream.
//
// The only errors are structural: duplicate statement names, joins to
// unknown or later statements (*ast.StructuralError) and literals without
// a defined value (ast.ErrNotImplemented). Nothing about the stream's
// contents can make Apply fail; statements that match nothing simply make
// the result unsuccessful.
func Apply(block *ast.Block, stream event.Stream, opts ...Option) (*BlockApplication, error) {
	if err := ast.Validate(block); err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	ev := &evaluator{
		stream: stream,
		now:    event.NewTime(cfg.clock.Now()),
		logger: cfg.logger,
	}
	if cfg.useCache {
		ev.cache = make(map[*ast.ValueExpression]event.Value)
	}

	result := &BlockApplication{
		Applications: make([]*Application, 0, len(block.Statements)),
	}
	positions := make(map[string]int, len(block.Statements))

	for i, s := range block.Statements {
		app := ev.applyStatement(s, result.Applications, positions)
		result.Applications = append(result.Applications, app)
		if s.Name != "" {
			positions[s.Name] = i
		}

		ev.logger.Debug("statement applied",
			"statement", i+1,
			"name", s.Name,
			"joined", app.Joined,
			"matches", len(app.Matches),
		)
	}

	result.Stats = ev.stats
	ev.logger.Debug("block applied",
		"statements", len(block.Statements),
		"events", len(stream),
		"successful", result.Successful(),
		"cardinality", result.Cardinality(),
		"subquery_evaluations", ev.stats.SubqueryEvaluations,
		"cache_hits", ev.stats.CacheHits,
	)
	return result, nil
}

// evaluator holds the state of one Apply call.
type evaluator struct {
	stream event.Stream
	now    event.Time
	cache  map[*ast.ValueExpression]event.Value // nil when disabled
	stats  Stats
	logger *slog.Logger
}

// scope is one link of the candidate chain. candidate is the event under
// test; outer is the enclosing scope of a value expression. subject is the
// left-hand event while a join condition is evaluated.
type scope struct {
	candidate event.Event
	outer     *scope
	subject   *event.Event
}

// lookup returns the candidate escapes levels out, or false when the
// reference escapes past the outermost scope.
func (s *scope) lookup(escapes int) (event.Event, bool) {
	cur := s
	for i := 0; i < escapes; i++ {
		cur = cur.outer
		if cur == nil {
			return event.Event{}, false
		}
	}
	return cur.candidate, true
}

func (ev *evaluator) applyStatement(s *ast.Statement, precedents []*Application, positions map[string]int) *Application {
	app := &Application{Name: s.Name, Joined: s.Join != nil}

	filtered := ev.filter(s.Where, nil, nil)
	matches, ok := ev.selectMatches(s.Modifiers, []Match{{Events: filtered}})
	if !ok {
		return app
	}

	if s.Join != nil {
		target := positions[s.Join.Target]
		matches = ev.join(s.Join, target, precedents[target], matches)
	}

	app.Matches = matches
	return app
}

// filter returns the events of the stream satisfying cond, in stream order.
func (ev *evaluator) filter(cond *ast.Condition, outer *scope, subject *event.Event) event.Stream {
	out := event.Stream{}
	for _, e := range ev.stream {
		sc := &scope{candidate: e, outer: outer, subject: subject}
		if ev.test(cond, sc) {
			out = append(out, e)
		}
	}
	return out
}
