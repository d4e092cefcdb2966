package store

import (
	"context"
	"errors"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleUpdate() ConfigUpdate {
	return ConfigUpdate{
		Version: "v2",
		Songs: []Song{
			{ID: 1, Title: "Morning", MD5: "0123456789abcdef0123456789abcdef", URL: "http://x/1.mp3", Size: 100},
			{ID: 2, Title: "Evening", MD5: "abcdef0123456789abcdef0123456789", URL: "http://x/2.mp3", Size: 200},
		},
		Schedules: []ScheduleEntry{
			{DateKey: "WEEKDAY_3", Priority: PriorityWeekday, Windows: []TimeWindow{
				{Start: "09:00", End: "12:00", PlaylistID: 1},
				{Start: "14:00", End: "18:00", PlaylistID: 1},
			}},
			{DateKey: "2025-12-25", Priority: PrioritySpecial, Windows: []TimeWindow{
				{Start: "10:00", End: "11:00", PlaylistID: 1},
			}},
		},
		Playlists: []Playlist{
			{ID: 1, Name: "Playlist_1", Mode: ModeSequence, SongIDs: []int{1, 2}},
		},
	}
}

func TestApplyConfigRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.ApplyConfig(ctx, sampleUpdate()); err != nil {
		t.Fatalf("ApplyConfig: %v", err)
	}

	entry, err := s.ScheduleEntry(ctx, "WEEKDAY_3")
	if err != nil {
		t.Fatalf("ScheduleEntry: %v", err)
	}
	if len(entry.Windows) != 2 || entry.Windows[0].Start != "09:00" || entry.Windows[1].PlaylistID != 1 {
		t.Errorf("unexpected windows: %+v", entry.Windows)
	}
	if entry.Priority != PriorityWeekday {
		t.Errorf("priority = %d, want %d", entry.Priority, PriorityWeekday)
	}

	p, err := s.Playlist(ctx, 1)
	if err != nil {
		t.Fatalf("Playlist: %v", err)
	}
	if p.Mode != ModeSequence || len(p.SongIDs) != 2 || p.SongIDs[0] != 1 {
		t.Errorf("unexpected playlist: %+v", p)
	}

	v, err := s.ConfigValue(ctx, KeyConfigVersion)
	if err != nil || v != "v2" {
		t.Errorf("version = %q (%v), want v2", v, err)
	}

	n, err := s.CountPending(ctx)
	if err != nil || n != 2 {
		t.Errorf("CountPending = %d (%v), want 2", n, err)
	}
}

func TestApplyConfigReplacesAndPrunes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.ApplyConfig(ctx, sampleUpdate()); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	// Song 1 finishes downloading between the two generations.
	if err := s.MarkSongReady(ctx, 1, "/music/a.mp3"); err != nil {
		t.Fatalf("MarkSongReady: %v", err)
	}

	next := ConfigUpdate{
		Version: "v3",
		Songs: []Song{
			{ID: 1, Title: "Morning", MD5: "0123456789abcdef0123456789abcdef", URL: "http://x/1.mp3"},
			{ID: 3, Title: "Night", MD5: "ffffffffffffffffffffffffffffffff", URL: "http://x/3.mp3"},
		},
		Schedules: []ScheduleEntry{
			{DateKey: "WEEKDAY_5", Priority: PriorityWeekday, Windows: []TimeWindow{
				{Start: "08:00", End: "10:00", PlaylistID: 2},
			}},
		},
		Playlists: []Playlist{
			{ID: 2, Name: "Playlist_2", Mode: ModeRandom, SongIDs: []int{1, 3}},
		},
	}
	if err := s.ApplyConfig(ctx, next); err != nil {
		t.Fatalf("second apply: %v", err)
	}

	// Old schedule and playlist generations are gone.
	if _, err := s.ScheduleEntry(ctx, "WEEKDAY_3"); !errors.Is(err, ErrScheduleNotFound) {
		t.Errorf("stale schedule entry survived: %v", err)
	}
	if _, err := s.Playlist(ctx, 1); !errors.Is(err, ErrPlaylistNotFound) {
		t.Errorf("stale playlist survived: %v", err)
	}

	// Known song kept its download state; obsolete song pruned; new song pending.
	song, err := s.Song(ctx, 1)
	if err != nil {
		t.Fatalf("Song(1): %v", err)
	}
	if song.Status != StatusReady || song.LocalPath != "/music/a.mp3" {
		t.Errorf("song 1 lost its state: %+v", song)
	}
	if _, err := s.Song(ctx, 2); !errors.Is(err, ErrSongNotFound) {
		t.Errorf("obsolete song 2 survived: %v", err)
	}
	song3, err := s.Song(ctx, 3)
	if err != nil || song3.Status != StatusPending {
		t.Errorf("song 3 = %+v (%v), want pending", song3, err)
	}
}

func TestPendingSongsAndStatus(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.ApplyConfig(ctx, sampleUpdate()); err != nil {
		t.Fatalf("ApplyConfig: %v", err)
	}
	if err := s.SetSongStatus(ctx, 1, StatusDownloading); err != nil {
		t.Fatalf("SetSongStatus: %v", err)
	}

	pending, err := s.PendingSongs(ctx)
	if err != nil {
		t.Fatalf("PendingSongs: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("len(pending) = %d, want 2 (downloading still counts)", len(pending))
	}

	if err := s.MarkSongReady(ctx, 1, "/music/a.mp3"); err != nil {
		t.Fatalf("MarkSongReady: %v", err)
	}
	pending, err = s.PendingSongs(ctx)
	if err != nil || len(pending) != 1 || pending[0].ID != 2 {
		t.Errorf("pending after ready = %+v (%v)", pending, err)
	}
}

func TestConfigValueUnsetIsEmpty(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	v, err := s.ConfigValue(ctx, KeyDeviceID)
	if err != nil || v != "" {
		t.Errorf("unset key = %q (%v), want empty", v, err)
	}
	if err := s.SetConfigValue(ctx, KeyDeviceID, "abc"); err != nil {
		t.Fatalf("SetConfigValue: %v", err)
	}
	if err := s.SetConfigValue(ctx, KeyDeviceID, "def"); err != nil {
		t.Fatalf("SetConfigValue overwrite: %v", err)
	}
	v, err = s.ConfigValue(ctx, KeyDeviceID)
	if err != nil || v != "def" {
		t.Errorf("value = %q (%v), want def", v, err)
	}
}
