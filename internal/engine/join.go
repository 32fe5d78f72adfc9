package engine

import (
	"github.com/roach88/pql/internal/ast"
	"github.com/roach88/pql/internal/event"
)

// join attaches the right-hand matches to every match of the target
// application. An empty right-hand match attaches as is. Otherwise only the
// events satisfying the join condition against some left-hand event are
// kept, and a match left with no events is dropped.
func (ev *evaluator) join(j *ast.Join, target int, left *Application, right []Match) []Match {
	var out []Match
	for li, lm := range left.Matches {
		ref := &MatchRef{Statement: target, Index: li}
		for _, rm := range right {
			if len(rm.Events) == 0 {
				out = append(out, Match{Events: event.Stream{}, Singular: rm.Singular, Join: ref})
				continue
			}

			kept := event.Stream{}
			for _, re := range rm.Events {
				if ev.joins(j.Where, re, lm.Events) {
					kept = append(kept, re)
				}
			}
			if len(kept) > 0 {
				out = append(out, Match{Events: kept, Singular: rm.Singular, Join: ref})
			}
		}
	}
	return out
}

// joins reports whether candidate satisfies cond with any of subjects.
func (ev *evaluator) joins(cond *ast.Condition, candidate event.Event, subjects event.Stream) bool {
	for i := range subjects {
		sc := &scope{candidate: candidate, subject: &subjects[i]}
		if ev.test(cond, sc) {
			return true
		}
	}
	return false
}
