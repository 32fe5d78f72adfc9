package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/pql/internal/event"
	"github.com/roach88/pql/internal/testutil"
)

func TestSystemClock_UTC(t *testing.T) {
	before := time.Now()
	now := SystemClock{}.Now()
	after := time.Now()

	assert.Equal(t, time.UTC, now.Location())
	assert.False(t, now.Before(before.Add(-time.Second)))
	assert.False(t, now.After(after.Add(time.Second)))
}

func TestFixedClock_Stable(t *testing.T) {
	instant := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := FixedClock(instant)

	assert.True(t, instant.Equal(c.Now()))
	assert.True(t, c.Now().Equal(c.Now()), "fixed clock must never advance")
}

func TestWithClock_NilKeepsDefault(t *testing.T) {
	cfg := defaultConfig()
	WithClock(nil)(&cfg)
	assert.IsType(t, SystemClock{}, cfg.clock)
}

func TestApply_ReadsClockOncePerApplication(t *testing.T) {
	clock := testutil.NewDeterministicClock(testutil.Epoch, time.Hour)
	stream := event.Stream{ev("id", 1, "at", testutil.Epoch.Add(30*time.Minute))}
	src := `MATCH ALL AS a WHERE at < NOW; MATCH ALL AS b WHERE at < NOW`

	result := apply(t, src, stream, WithClock(clock))
	assert.Equal(t, int64(1), clock.Reads())
	assert.False(t, result.Successful(), "both statements see the first instant")

	result = apply(t, src, stream, WithClock(clock))
	assert.Equal(t, int64(2), clock.Reads())
	assert.True(t, result.Successful(), "the second application reads a later instant")
}
