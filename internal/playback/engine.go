package playback

import "github.com/bgmd/bgmd/pkg/logger"

// Track is one playable item handed to the Engine.
type Track struct {
	SongID int
	Path   string
	Title  string
}

// Engine is the external media playback engine. bgmd only decides what
// should play; decoding and output live behind this interface.
//
// All Engine calls are made from the orchestrator's run goroutine — the
// single presentation context — so implementations need no internal
// locking against bgmd itself.
type Engine interface {
	// Load replaces the queue with the given tracks. A nil slice clears it.
	Load(tracks []Track)
	// Play starts (or resumes) playback of the loaded queue.
	Play()
	// Stop halts playback. The queue is kept.
	Stop()
	// Insert places a track at the given queue index without
	// interrupting the current item.
	Insert(index int, track Track)
	// Len returns the current queue length.
	Len() int
	// SetOnTrackChange registers fn to be invoked with the new track's
	// title whenever the engine advances to another track. The
	// orchestrator registers itself here; implementations may call fn
	// from any goroutine.
	SetOnTrackChange(fn func(title string))
}

// LogEngine is the default Engine used when no real audio backend is
// wired in: it records queue state and logs transitions. Useful for
// development hosts and for soak-testing the control loop.
type LogEngine struct {
	log     logger.Logger
	tracks  []Track
	onTrack func(title string)
}

// NewLogEngine builds a LogEngine.
func NewLogEngine(l logger.Logger) *LogEngine {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &LogEngine{log: l}
}

// Load implements Engine.
func (e *LogEngine) Load(tracks []Track) {
	e.tracks = append(e.tracks[:0:0], tracks...)
	e.log.Info("engine: loaded %d tracks", len(tracks))
}

// Play implements Engine. With no real audio backend there are no
// mid-queue advances; the head of the queue is reported as the one
// transition that happens.
func (e *LogEngine) Play() {
	if len(e.tracks) == 0 {
		e.log.Warning("engine: play requested with empty queue")
		return
	}
	e.log.Info("engine: playing %q", e.tracks[0].Title)
	if e.onTrack != nil {
		e.onTrack(e.tracks[0].Title)
	}
}

// Stop implements Engine.
func (e *LogEngine) Stop() {
	e.log.Info("engine: stopped")
}

// Insert implements Engine.
func (e *LogEngine) Insert(index int, track Track) {
	if index < 0 {
		index = 0
	}
	if index > len(e.tracks) {
		index = len(e.tracks)
	}
	e.tracks = append(e.tracks[:index], append([]Track{track}, e.tracks[index:]...)...)
	e.log.Info("engine: inserted %q at %d", track.Title, index)
}

// Len implements Engine.
func (e *LogEngine) Len() int {
	return len(e.tracks)
}

// SetOnTrackChange implements Engine.
func (e *LogEngine) SetOnTrackChange(fn func(title string)) {
	e.onTrack = fn
}

var _ Engine = (*LogEngine)(nil)
