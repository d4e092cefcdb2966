package server

import (
	"context"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"

	"github.com/bgmd/bgmd/internal/store"
)

// codeSyncFailed reports a failed on-demand config exchange.
const codeSyncFailed = jrpc2.Code(-32001)

// StatusResult is the response for status.get.
type StatusResult struct {
	State        string `json:"state"`
	Reason       string `json:"reason,omitempty"`
	NowPlaying   string `json:"nowPlaying,omitempty"`
	PlaylistID   int    `json:"playlistId,omitempty"`
	PendingSongs int    `json:"pendingSongs"`
	Version      string `json:"version"`
	DeviceID     string `json:"deviceId"`
}

// SyncResult is the response for sync.check.
type SyncResult struct {
	OK bool `json:"ok"`
}

// SongItem is a single entry in the song.list response.
type SongItem struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	LocalPath string `json:"localPath,omitempty"`
}

// SongListResult is the response for song.list.
type SongListResult struct {
	Songs []SongItem `json:"songs"`
}

func (s *Server) methods() handler.Map {
	return handler.Map{
		"status.get": handler.New(s.statusGet),
		"sync.check": handler.New(s.syncCheck),
		"song.list":  handler.New(s.songList),
	}
}

// statusGet reports the daemon's current playback and library state.
func (s *Server) statusGet(ctx context.Context) (*StatusResult, error) {
	st := s.playback.Status()
	pending, err := s.library.CountPending(ctx)
	if err != nil {
		return nil, err
	}
	version, err := s.library.ConfigValue(ctx, store.KeyConfigVersion)
	if err != nil {
		return nil, err
	}
	deviceID, err := s.library.ConfigValue(ctx, store.KeyDeviceID)
	if err != nil {
		return nil, err
	}
	return &StatusResult{
		State:        st.State.String(),
		Reason:       st.Reason,
		NowPlaying:   st.NowPlaying,
		PlaylistID:   st.PlaylistID,
		PendingSongs: pending,
		Version:      version,
		DeviceID:     deviceID,
	}, nil
}

// syncCheck triggers one config exchange and waits for its outcome.
func (s *Server) syncCheck(ctx context.Context) (*SyncResult, error) {
	if err := s.syncer.CheckUpdate(ctx); err != nil {
		return nil, &jrpc2.Error{Code: codeSyncFailed, Message: err.Error()}
	}
	return &SyncResult{OK: true}, nil
}

// songList dumps the library with download states.
func (s *Server) songList(ctx context.Context) (*SongListResult, error) {
	songs, err := s.library.AllSongs(ctx)
	if err != nil {
		return nil, err
	}
	out := &SongListResult{Songs: make([]SongItem, 0, len(songs))}
	for _, song := range songs {
		out.Songs = append(out.Songs, SongItem{
			ID:        song.ID,
			Title:     song.Title,
			Status:    song.Status.String(),
			LocalPath: song.LocalPath,
		})
	}
	return out, nil
}
