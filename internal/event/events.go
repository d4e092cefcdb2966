// Package event provides the typed in-process publish/subscribe bus that
// wires bgmd's components together. The event set is closed: every message
// on the bus is one of the variants declared in this file.
package event

// Event is the marker interface implemented by all bus message variants.
type Event interface {
	// Kind returns a stable name for the event variant, used in logs.
	Kind() string
}

// SongReady is published by the download pipeline once a song's content
// hash has been verified against a fully downloaded local file.
type SongReady struct {
	SongID int
	Path   string
	Title  string
}

// Kind implements Event.
func (SongReady) Kind() string { return "song-ready" }

// DownloadProgress reports batch download progress. Finished is true on the
// final event of a pipeline run, even if some songs failed.
type DownloadProgress struct {
	Completed int
	Total     int
	Finished  bool
}

// Kind implements Event.
func (DownloadProgress) Kind() string { return "download-progress" }

// PlaylistUpdated is published after every successful config apply so the
// orchestrator re-reconciles against possibly-changed schedule data.
type PlaylistUpdated struct{}

// Kind implements Event.
func (PlaylistUpdated) Kind() string { return "playlist-updated" }

// NowPlaying announces the currently playing title. An empty Title means
// nothing is playing.
type NowPlaying struct {
	Title string
}

// Kind implements Event.
func (NowPlaying) Kind() string { return "now-playing" }

// DeviceIdentity is published when the device identity token is first
// generated, and again on request for late subscribers.
type DeviceIdentity struct {
	ID string
}

// Kind implements Event.
func (DeviceIdentity) Kind() string { return "device-identity" }

// DeviceBlocked is published when the remote config API reports the device
// as blocked. Playback must stop until a later sync clears the state.
type DeviceBlocked struct {
	Reason string
}

// Kind implements Event.
func (DeviceBlocked) Kind() string { return "device-blocked" }
