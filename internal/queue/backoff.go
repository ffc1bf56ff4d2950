package queue

import (
	"math"
	"time"
)

// BackoffConfig controls the exponential retry schedule for a job that
// fails transiently (spec §4.3: delay = base * multiplier^(attempt-1)).
type BackoffConfig struct {
	MaxAttempts int
	Base        time.Duration
	Multiplier  float64
}

// DefaultBackoff matches §4.3/§6: base 2s, doubling, 5 attempts.
var DefaultBackoff = BackoffConfig{
	MaxAttempts: 5,
	Base:        2 * time.Second,
	Multiplier:  2,
}

// next returns the delay before attempt should run, and whether the job may
// be retried at all (false once attempt exceeds MaxAttempts).
func (bc BackoffConfig) next(attempt int) (time.Duration, bool) {
	if bc.MaxAttempts > 0 && attempt > bc.MaxAttempts {
		return 0, false
	}
	exp := float64(bc.Base) * math.Pow(bc.Multiplier, float64(attempt-1))
	return time.Duration(exp), true
}
