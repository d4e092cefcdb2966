// Package remote holds the wire models and HTTP clients for the two
// remote endpoints bgmd talks to: the configuration API (POST
// check_update) and the auxiliary collection API (GET).
package remote

// Config API response status values.
const (
	StatusLatest         = "latest"
	StatusUpdateRequired = "update_required"
	StatusError          = "error"
	StatusBlocked        = "blocked"
)

// CheckUpdateRequest is the body sent to the config endpoint. The device
// id doubles as the account identity; current_version is the client's
// freshness cursor.
type CheckUpdateRequest struct {
	DeviceID       string `json:"device_id"`
	CurrentVersion string `json:"current_version"`
}

// CheckUpdateResponse is the config endpoint's envelope. Config is only
// present when Status is "update_required".
type CheckUpdateResponse struct {
	Status     string         `json:"status"`
	NewVersion string         `json:"new_version"`
	Config     *Configuration `json:"config"`
}

// Configuration is the full remote config payload.
type Configuration struct {
	Resources    []Song                  `json:"resources"`
	Playlists    map[string]PlaylistSpec `json:"playlists"`
	Assignments  Assignments             `json:"assignments"`
	HolidayDates []string                `json:"holiday_dates"`
}

// Song describes one remote media resource.
type Song struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	MD5   string `json:"md5"`
	URL   string `json:"url"`
	Size  int64  `json:"size"`
}

// PlaylistSpec is a playlist body keyed by its string id in Configuration.
type PlaylistSpec struct {
	Mode string `json:"mode"` // "sequence" or "random"
	IDs  []int  `json:"ids"`
}

// Assignments maps dates and weekdays to their time windows.
type Assignments struct {
	// Specials maps literal "YYYY-MM-DD" dates to windows (tier 3).
	Specials map[string][]TimeWindow `json:"specials"`
	// Holidays is the shared window list applied to every HolidayDates
	// entry (tier 2). May be absent.
	Holidays []TimeWindow `json:"holidays"`
	// Weekdays maps "1".."7" (Monday..Sunday) to windows (tier 1).
	Weekdays map[string][]TimeWindow `json:"weekdays"`
}

// TimeWindow is a half-open "HH:MM" interval bound to a playlist.
type TimeWindow struct {
	Start      string `json:"start"`
	End        string `json:"end"`
	PlaylistID int    `json:"playlist_id"`
}

// CollectResponse is the auxiliary collection endpoint's response. Slots
// are server-advertised "HH:MM" collection instants; NowLocal is the
// server-local clock ("YYYY-MM-DD HH:mm:ss").
type CollectResponse struct {
	OK        bool     `json:"ok"`
	NowLocal  string   `json:"now_local"`
	Timezone  string   `json:"timezone"`
	WindowMin int      `json:"window_min"`
	Slots     []string `json:"slots"`
	InWindow  bool     `json:"in_window"`
	Action    string   `json:"action"`
	Reason    string   `json:"reason"`
}
