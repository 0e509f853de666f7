// Package system supplies the wall clock behind prediction timestamps.
package system

import "time"

// Clock stamps history entries and events.
type Clock struct{}

// New returns the wall clock.
func New() *Clock {
	return &Clock{}
}

// Now is the current UTC time at microsecond precision, the resolution a
// Postgres timestamptz keeps, so stored and in-memory entries compare equal.
func (Clock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
