// Package collect runs the auxiliary collection loop: it calls the
// collection endpoint, reads the server-advertised slot times, and
// sleeps until shortly after the next slot instead of polling on a
// fixed cadence.
package collect

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

const (
	nowLayout  = "2006-01-02 15:04:05"
	slotLayout = "2006-01-02 15:04"
)

// ErrNoSlots is returned when the server advertises an empty slot list.
var ErrNoSlots = errors.New("collect: no slots advertised")

// nextDelay computes how long to sleep until the next collection slot.
// nowLocal is the server-local clock ("YYYY-MM-DD HH:mm:ss"); slots are
// "HH:MM" instants. The next slot is the first one strictly later than
// now today, or the earliest slot tomorrow; buffer is added so the call
// lands inside the slot's window rather than on its leading edge.
func nextDelay(nowLocal string, slots []string, buffer time.Duration) (time.Duration, error) {
	if len(slots) == 0 {
		return 0, ErrNoSlots
	}
	now, err := time.Parse(nowLayout, nowLocal)
	if err != nil {
		return 0, fmt.Errorf("collect: parse server clock %q: %w", nowLocal, err)
	}
	day := nowLocal[:len("2006-01-02")]

	sorted := append([]string(nil), slots...)
	sort.Strings(sorted)

	var target time.Time
	found := false
	for _, slot := range sorted {
		at, err := time.Parse(slotLayout, day+" "+slot)
		if err != nil {
			return 0, fmt.Errorf("collect: parse slot %q: %w", slot, err)
		}
		if at.After(now) {
			target = at
			found = true
			break
		}
	}
	if !found {
		// All of today's slots have passed: wrap to tomorrow's earliest.
		at, err := time.Parse(slotLayout, day+" "+sorted[0])
		if err != nil {
			return 0, fmt.Errorf("collect: parse slot %q: %w", sorted[0], err)
		}
		target = at.Add(24 * time.Hour)
	}

	delay := target.Sub(now) + buffer
	if delay < buffer {
		delay = buffer
	}
	return delay, nil
}
