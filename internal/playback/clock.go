package playback

import "time"

// Clock abstracts wall-clock reads and timer channels so the
// orchestrator's time-dependent behavior (window matching, the stop
// watchdog) is deterministic under test.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock returns the real wall clock.
func SystemClock() Clock {
	return systemClock{}
}
