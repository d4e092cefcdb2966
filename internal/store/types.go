package store

import "fmt"

// SongStatus tracks a song's download lifecycle.
type SongStatus int

const (
	// StatusPending means the song is known but not yet downloaded.
	StatusPending SongStatus = 0
	// StatusDownloading means a fetch is in flight.
	StatusDownloading SongStatus = 1
	// StatusReady means the local file exists and its digest verified.
	StatusReady SongStatus = 2
)

// String implements fmt.Stringer.
func (s SongStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusDownloading:
		return "downloading"
	case StatusReady:
		return "ready"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Song is one media item referenced by the remote configuration.
type Song struct {
	ID        int
	Title     string
	MD5       string
	URL       string
	Size      int64
	LocalPath string // empty until downloaded
	Status    SongStatus
}

// Schedule priority tiers. Matching never consults these — lookup
// short-circuits on literal date before weekday — but they are persisted
// for diagnostics and potential future tie-breaks.
const (
	PriorityWeekday = 1
	PriorityHoliday = 2
	PrioritySpecial = 3
)

// TimeWindow is a half-open daily interval [Start, End) bound to one
// playlist. Start and End are "HH:MM" strings, same-day only.
type TimeWindow struct {
	Start      string
	End        string
	PlaylistID int
}

// ScheduleEntry pairs a date key with its ordered time windows.
// DateKey is either a literal "YYYY-MM-DD" date or a synthetic
// "WEEKDAY_<1..7>" key (1=Monday .. 7=Sunday).
type ScheduleEntry struct {
	DateKey  string
	Priority int
	Windows  []TimeWindow
}

// PlayMode selects the ordering of songs handed to the playback engine.
type PlayMode string

const (
	ModeSequence PlayMode = "sequence"
	ModeRandom   PlayMode = "random"
)

// Playlist is an ordered list of song ids plus a play mode.
type Playlist struct {
	ID      int
	Name    string
	Mode    PlayMode
	SongIDs []int
}

// ConfigUpdate is one remote configuration generation, translated to
// store types. ApplyConfig writes it atomically: songs are upserted if
// unseen and pruned if obsolete, schedules and playlists are replaced
// wholesale, and the version token is advanced.
type ConfigUpdate struct {
	Version   string
	Songs     []Song
	Schedules []ScheduleEntry
	Playlists []Playlist
}
