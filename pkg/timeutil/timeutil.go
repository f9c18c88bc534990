// Package timeutil provides time helpers for the feed ranking engine:
// content age measurement, exponential half-life decay, and a clock
// abstraction so scoring stays deterministic under test.
// No external dependencies - uses only standard library.
package timeutil

import (
	"math"
	"time"
)

// Clock supplies the current time. The scorer takes a Clock so tests can
// freeze the instant and assert exact scores.
type Clock interface {
	Now() time.Time
}

// SystemClock is the real wall clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock always returns the same instant. Test use only.
type FixedClock struct {
	At time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time {
	return c.At
}

// AgeHours returns the age of a timestamp at the given instant, in hours.
// Timestamps in the future age as zero rather than boosting scores.
func AgeHours(createdAt, at time.Time) float64 {
	age := at.Sub(createdAt).Hours()
	if age < 0 {
		return 0
	}
	return age
}

// HalfLifeDecay returns the multiplicative decay factor for content of the
// given age: 0.5^(ageHours/halfLifeHours). The factor approaches but never
// reaches zero, so old content decays toward irrelevance without being
// pruned outright.
func HalfLifeDecay(ageHours, halfLifeHours float64) float64 {
	if halfLifeHours <= 0 {
		return 1
	}
	return math.Pow(0.5, ageHours/halfLifeHours)
}

// WithinLastDay reports whether ts is at most 24h before at.
func WithinLastDay(ts, at time.Time) bool {
	return at.Sub(ts) <= 24*time.Hour && !ts.After(at)
}
