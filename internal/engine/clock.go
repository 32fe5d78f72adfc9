package engine

import "time"

// Clock supplies the instant NOW literals evaluate to.
//
// Apply reads the clock once and uses that instant for every NOW in the
// block, so one application never observes two different times.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock always returns the same instant.
type FixedClock time.Time

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time {
	return time.Time(c)
}
