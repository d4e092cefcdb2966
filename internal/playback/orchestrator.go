// Package playback owns the live playback state machine. The
// orchestrator decides what should be playing right now, reacts to
// readiness and config-update events, arms a precision stop watchdog for
// the active window's end, and hot-swaps playlists without restarting
// playback when nothing material changed.
package playback

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/bgmd/bgmd/internal/event"
	"github.com/bgmd/bgmd/internal/schedule"
	"github.com/bgmd/bgmd/internal/store"
	"github.com/bgmd/bgmd/pkg/logger"
)

// State is the orchestrator's coarse playback state.
type State int

const (
	// StateIdle means nothing has been loaded yet.
	StateIdle State = iota
	// StateStandby means the device is deliberately silent.
	StateStandby
	// StatePlaying means a playlist is loaded and the engine is playing.
	StatePlaying
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStandby:
		return "standby"
	case StatePlaying:
		return "playing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Standby reason strings, surfaced through the control socket. These are
// states, not errors.
const (
	ReasonNoSchedule      = "no schedule today"
	ReasonNoWindow        = "outside playback window"
	ReasonWaitingSync     = "waiting for sync"
	ReasonWaitingDownload = "waiting for download"
	ReasonWindowEnded     = "window ended"
	ReasonBlocked         = "device blocked"
	ReasonScheduleError   = "schedule unavailable"
)

// Status is a snapshot of the orchestrator's externally visible state.
type Status struct {
	State      State
	Reason     string
	NowPlaying string
	PlaylistID int
}

// ReadStore is the read-only store surface the orchestrator consults.
type ReadStore interface {
	Playlist(ctx context.Context, id int) (*store.Playlist, error)
	Song(ctx context.Context, id int) (*store.Song, error)
}

// Orchestrator is an active object: Run's goroutine serializes reconcile
// requests, bus events and watchdog expiry, which makes reconciliation
// non-reentrant and guarantees at most one armed watchdog.
type Orchestrator struct {
	store    ReadStore
	resolver *schedule.Resolver
	engine   Engine
	bus      *event.Bus
	fs       afero.Fs
	clock    Clock
	log      logger.Logger

	reconcileCh chan struct{}

	// Run-goroutine-only fields.
	watchdogC   <-chan time.Time
	watchdogEnd string
	playingID   int
	mode        store.PlayMode

	mu     sync.Mutex
	status Status
}

// New builds an Orchestrator. A nil clock gets the system clock; a nil
// fs gets the OS filesystem.
func New(rs ReadStore, resolver *schedule.Resolver, engine Engine, bus *event.Bus, fs afero.Fs, clock Clock, l logger.Logger) *Orchestrator {
	if clock == nil {
		clock = SystemClock()
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if l == nil {
		l = logger.NewNopLogger()
	}
	o := &Orchestrator{
		store:       rs,
		resolver:    resolver,
		engine:      engine,
		bus:         bus,
		fs:          fs,
		clock:       clock,
		log:         l,
		reconcileCh: make(chan struct{}, 1),
		status:      Status{State: StateIdle},
	}
	engine.SetOnTrackChange(o.NoteTrackChange)
	return o
}

// Status returns a copy of the current snapshot.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// RequestReconcile asks the run loop to reconcile soon. Requests are
// coalesced; calling it while one is pending is a no-op.
func (o *Orchestrator) RequestReconcile() {
	select {
	case o.reconcileCh <- struct{}{}:
	default:
	}
}

// NoteTrackChange records an engine track transition and republishes the
// now-playing announcement. Safe to call from any goroutine.
func (o *Orchestrator) NoteTrackChange(title string) {
	o.mu.Lock()
	o.status.NowPlaying = title
	o.mu.Unlock()
	o.bus.Publish(event.NowPlaying{Title: title})
}

// Run drives the state machine until ctx is cancelled. It performs an
// initial reconcile (service-start trigger), then reacts to reconcile
// requests, song-ready and playlist-updated events, device blocks, and
// watchdog expiry.
func (o *Orchestrator) Run(ctx context.Context) error {
	sub := o.bus.Subscribe(32)
	defer sub.Close()

	o.reconcile(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-o.reconcileCh:
			o.reconcile(ctx)

		case e := <-sub.C:
			switch ev := e.(type) {
			case event.SongReady:
				if o.Status().State == StatePlaying {
					o.insertReady(ev)
				} else {
					// Cold-start path: the first ready song may unlock playback.
					o.reconcile(ctx)
				}
			case event.PlaylistUpdated:
				o.reconcile(ctx)
			case event.DeviceBlocked:
				o.log.Warning("playback: device blocked: %s", ev.Reason)
				o.engine.Stop()
				o.engine.Load(nil)
				o.watchdogC = nil
				o.playingID = 0
				o.setStandby(ReasonBlocked)
				o.bus.Publish(event.NowPlaying{})
			}

		case <-o.watchdogC:
			o.watchdogC = nil
			o.log.Info("playback: window ended at %s, stopping", o.watchdogEnd)
			o.stopPlayback(ReasonWindowEnded)
			// Back-to-back windows: immediately look for a successor.
			o.reconcile(ctx)
		}
	}
}

// reconcile implements the decision procedure: resolve the active
// window, locate its playlist, filter to ready songs, arm the watchdog,
// and (re)load the engine only when the resolved playlist changed.
func (o *Orchestrator) reconcile(ctx context.Context) {
	now := o.clock.Now()

	sel, err := o.resolver.Resolve(ctx, now)
	if err != nil {
		switch {
		case errors.Is(err, schedule.ErrNoSchedule):
			o.stopPlayback(ReasonNoSchedule)
		case errors.Is(err, schedule.ErrNoActiveWindow):
			o.stopPlayback(ReasonNoWindow)
		default:
			o.log.Error("playback: resolve: %v", err)
			o.stopPlayback(ReasonScheduleError)
		}
		return
	}

	pl, err := o.store.Playlist(ctx, sel.Window.PlaylistID)
	if errors.Is(err, store.ErrPlaylistNotFound) {
		o.log.Info("playback: playlist %d not yet synced", sel.Window.PlaylistID)
		o.setStandby(ReasonWaitingSync)
		return
	}
	if err != nil {
		o.log.Error("playback: load playlist %d: %v", sel.Window.PlaylistID, err)
		o.setStandby(ReasonWaitingSync)
		return
	}

	tracks := o.readyTracks(ctx, pl)
	if len(tracks) == 0 {
		o.log.Info("playback: no ready songs for playlist %d", pl.ID)
		o.setStandby(ReasonWaitingDownload)
		return
	}

	switch o.armWatchdog(now, sel.Window.End) {
	case watchdogElapsed:
		// Clock drift or a late trigger: the window is over. Stop and
		// look for the next window instead of loading.
		o.stopPlayback(ReasonWindowEnded)
		o.RequestReconcile()
		return
	case watchdogInvalid:
		// Malformed end time: fail safe to silence rather than play
		// indefinitely. No re-request — the entry would match again.
		o.stopPlayback(ReasonWindowEnded)
		return
	}

	if o.Status().State == StatePlaying && o.playingID == pl.ID {
		// Same playlist already playing: re-armed the watchdog, nothing
		// else to do. Avoids restart thrash on redundant reconciles.
		return
	}

	if pl.Mode == store.ModeRandom {
		rand.Shuffle(len(tracks), func(i, j int) {
			tracks[i], tracks[j] = tracks[j], tracks[i]
		})
	}

	o.engine.Load(tracks)
	o.engine.Play()
	o.playingID = pl.ID
	o.mode = pl.Mode

	first := tracks[0].Title
	o.mu.Lock()
	o.status = Status{State: StatePlaying, NowPlaying: first, PlaylistID: pl.ID}
	o.mu.Unlock()
	o.bus.Publish(event.NowPlaying{Title: first})
	o.log.Info("playback: playing playlist %d (%d songs, %s mode), starting with %q",
		pl.ID, len(tracks), pl.Mode, first)
}

// readyTracks filters the playlist to songs that are ready and whose
// local file still exists, preserving stored order.
func (o *Orchestrator) readyTracks(ctx context.Context, pl *store.Playlist) []Track {
	var tracks []Track
	for _, id := range pl.SongIDs {
		song, err := o.store.Song(ctx, id)
		if err != nil {
			continue
		}
		if song.Status != store.StatusReady || song.LocalPath == "" {
			continue
		}
		if exists, _ := afero.Exists(o.fs, song.LocalPath); !exists {
			continue
		}
		tracks = append(tracks, Track{SongID: song.ID, Path: song.LocalPath, Title: song.Title})
	}
	return tracks
}

// insertReady slots a newly ready song into the live queue without a
// full reconcile, so the current track is not interrupted. Random mode
// picks a uniform insertion index; sequence mode appends.
func (o *Orchestrator) insertReady(e event.SongReady) {
	track := Track{SongID: e.SongID, Path: e.Path, Title: e.Title}
	if o.mode == store.ModeRandom {
		o.engine.Insert(rand.Intn(o.engine.Len()+1), track)
	} else {
		o.engine.Insert(o.engine.Len(), track)
	}
	o.log.Info("playback: inserted newly ready song %q into live queue", e.Title)
}

type watchdogState int

const (
	watchdogArmed watchdogState = iota
	watchdogElapsed
	watchdogInvalid
)

// armWatchdog replaces the pending stop watchdog with one firing at
// today's end time. The previous timer channel is abandoned, so a
// superseded watchdog can never fire.
func (o *Orchestrator) armWatchdog(now time.Time, end string) watchdogState {
	endOfDay, err := time.Parse("15:04", end)
	if err != nil {
		o.log.Error("playback: malformed window end %q: %v", end, err)
		return watchdogInvalid
	}
	endAt := time.Date(now.Year(), now.Month(), now.Day(),
		endOfDay.Hour(), endOfDay.Minute(), 0, 0, now.Location())
	delta := endAt.Sub(now)
	if delta <= 0 {
		return watchdogElapsed
	}
	o.watchdogC = o.clock.After(delta)
	o.watchdogEnd = end
	o.log.Info("playback: stop watchdog armed for %s (in %s)", end, delta.Round(time.Second))
	return watchdogArmed
}

// stopPlayback halts the engine, clears the watchdog and publishes the
// empty now-playing announcement.
func (o *Orchestrator) stopPlayback(reason string) {
	o.engine.Stop()
	o.watchdogC = nil
	o.playingID = 0
	o.setStandby(reason)
	o.bus.Publish(event.NowPlaying{})
}

// setStandby updates the snapshot without touching the engine.
func (o *Orchestrator) setStandby(reason string) {
	o.mu.Lock()
	o.status = Status{State: StateStandby, Reason: reason}
	o.mu.Unlock()
}
