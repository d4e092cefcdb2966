// Package schedule resolves which time window, if any, is authoritative
// for a given instant. Lookup order is: literal-date entry, then the
// synthetic weekday entry, then silence.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bgmd/bgmd/internal/store"
)

var (
	// ErrNoSchedule means no entry exists for today at all; the device
	// stays silent.
	ErrNoSchedule = errors.New("no schedule for today")
	// ErrNoActiveWindow means an entry exists but no window covers the
	// current time; the device stands by.
	ErrNoActiveWindow = errors.New("no active window")
)

// EntrySource is the read-side store surface the resolver needs.
type EntrySource interface {
	ScheduleEntry(ctx context.Context, dateKey string) (*store.ScheduleEntry, error)
}

// Selected is a resolved window together with the entry it came from.
type Selected struct {
	DateKey  string
	Priority int
	Window   store.TimeWindow
}

// Resolver picks the active window for "now".
type Resolver struct {
	src EntrySource
}

// NewResolver builds a Resolver over the given entry source.
func NewResolver(src EntrySource) *Resolver {
	return &Resolver{src: src}
}

// Resolve returns the window covering now. A literal-date entry always
// wins over the weekday entry; within the entry the first window whose
// [start, end) contains now is returned. Absence is reported through the
// package sentinels, never invented.
func (r *Resolver) Resolve(ctx context.Context, now time.Time) (*Selected, error) {
	entry, err := r.src.ScheduleEntry(ctx, now.Format("2006-01-02"))
	if errors.Is(err, store.ErrScheduleNotFound) {
		entry, err = r.src.ScheduleEntry(ctx, WeekdayKey(now))
		if errors.Is(err, store.ErrScheduleNotFound) {
			return nil, ErrNoSchedule
		}
	}
	if err != nil {
		return nil, fmt.Errorf("look up schedule: %w", err)
	}

	hhmm := now.Format("15:04")
	for _, w := range entry.Windows {
		if windowContains(w, hhmm) {
			return &Selected{
				DateKey:  entry.DateKey,
				Priority: entry.Priority,
				Window:   w,
			}, nil
		}
	}
	return nil, ErrNoActiveWindow
}

// WeekdayKey maps a time to its synthetic schedule key, Monday=1 through
// Sunday=7.
func WeekdayKey(t time.Time) string {
	idx := int(t.Weekday())
	if idx == 0 {
		idx = 7 // time.Sunday is 0
	}
	return fmt.Sprintf("WEEKDAY_%d", idx)
}

// windowContains reports whether the half-open interval [Start, End)
// contains the "HH:MM" instant. Zero-padded "HH:MM" strings order
// correctly as text, so plain string comparison suffices.
func windowContains(w store.TimeWindow, hhmm string) bool {
	return hhmm >= w.Start && hhmm < w.End
}
