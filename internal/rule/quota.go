package rule

import (
	"errors"
	"fmt"
)

// DefaultMaxEntries bounds the entries one RuleSet.Apply may emit.
const DefaultMaxEntries = 1000

// quota counts entries emitted during one RuleSet.Apply.
//
// Each emitted entry extends the stream the next rule sees, so a rule set
// whose rules keep matching their own output would never stop. The quota
// turns that into an error.
type quota struct {
	limit   int
	current int
}

func newQuota(limit int) *quota {
	return &quota{limit: limit}
}

// check counts one more entry and fails once the limit is passed.
func (q *quota) check(rule string) error {
	q.current++
	if q.current > q.limit {
		return &EntriesExceededError{
			Rule:    rule,
			Entries: q.current,
			Limit:   q.limit,
		}
	}
	return nil
}

// EntriesExceededError is returned when a rule set emits more entries than
// its limit allows in one application.
type EntriesExceededError struct {
	Rule    string // rule whose entry passed the limit
	Entries int
	Limit   int
}

func (e *EntriesExceededError) Error() string {
	return fmt.Sprintf("rule %s exceeded max entries quota: %d entries > %d limit",
		e.Rule, e.Entries, e.Limit)
}

// IsEntriesExceededError reports whether err is an EntriesExceededError.
// Uses errors.As to handle wrapped errors.
func IsEntriesExceededError(err error) bool {
	var ee *EntriesExceededError
	return errors.As(err, &ee)
}
