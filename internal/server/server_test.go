package server_test

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/bgmd/bgmd/internal/playback"
	"github.com/bgmd/bgmd/internal/server"
	"github.com/bgmd/bgmd/internal/store"
	"github.com/bgmd/bgmd/pkg/ctl"
	"github.com/bgmd/bgmd/pkg/logger"
)

type fakePlayback struct{ status playback.Status }

func (f *fakePlayback) Status() playback.Status { return f.status }

type fakeSyncer struct {
	calls int
	err   error
}

func (f *fakeSyncer) CheckUpdate(ctx context.Context) error {
	f.calls++
	return f.err
}

func startServer(t *testing.T, pb server.StatusSource, syncer server.SyncTrigger, lib server.Library) string {
	t.Helper()
	sock := filepath.Join(t.TempDir(), "bgmd.sock")
	srv := server.New(sock, pb, syncer, lib, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.Serve(ctx)

	// Wait for the socket to come up.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if conn, err := net.Dial("unix", sock); err == nil {
			conn.Close()
			return sock
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("control socket never came up")
	return ""
}

func seedLibrary(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	update := store.ConfigUpdate{
		Version: "3",
		Songs: []store.Song{
			{ID: 1, Title: "Alpha", MD5: "11111111111111111111111111111111", URL: "http://x/1"},
			{ID: 2, Title: "Beta", MD5: "22222222222222222222222222222222", URL: "http://x/2"},
		},
	}
	if err := s.ApplyConfig(ctx, update); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkSongReady(ctx, 1, "/music/a.mp3"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetConfigValue(ctx, store.KeyDeviceID, "dev-123"); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestStatusGetRoundTrip(t *testing.T) {
	lib := seedLibrary(t)
	pb := &fakePlayback{status: playback.Status{
		State:      playback.StatePlaying,
		NowPlaying: "Alpha",
		PlaylistID: 1,
	}}
	sock := startServer(t, pb, &fakeSyncer{}, lib)

	c, err := ctl.Dial(sock)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	st, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.State != "playing" || st.NowPlaying != "Alpha" || st.PlaylistID != 1 {
		t.Errorf("status = %+v", st)
	}
	if st.PendingSongs != 1 {
		t.Errorf("pending = %d, want 1", st.PendingSongs)
	}
	if st.Version != "3" || st.DeviceID != "dev-123" {
		t.Errorf("version/device = %q/%q", st.Version, st.DeviceID)
	}
}

func TestSyncCheckTriggersExchange(t *testing.T) {
	syncer := &fakeSyncer{}
	sock := startServer(t, &fakePlayback{}, syncer, seedLibrary(t))

	c, err := ctl.Dial(sock)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	res, err := c.SyncCheck(context.Background())
	if err != nil {
		t.Fatalf("SyncCheck: %v", err)
	}
	if !res.OK || syncer.calls != 1 {
		t.Errorf("ok=%v calls=%d", res.OK, syncer.calls)
	}
}

func TestSyncCheckSurfacesFailure(t *testing.T) {
	syncer := &fakeSyncer{err: errors.New("backend down")}
	sock := startServer(t, &fakePlayback{}, syncer, seedLibrary(t))

	c, err := ctl.Dial(sock)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, err := c.SyncCheck(context.Background()); err == nil {
		t.Fatal("expected an rpc error")
	}
}

func TestSongListReportsStates(t *testing.T) {
	sock := startServer(t, &fakePlayback{}, &fakeSyncer{}, seedLibrary(t))

	c, err := ctl.Dial(sock)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	res, err := c.Songs(context.Background())
	if err != nil {
		t.Fatalf("Songs: %v", err)
	}
	if len(res.Songs) != 2 {
		t.Fatalf("songs = %+v", res.Songs)
	}
	states := map[int]string{}
	for _, s := range res.Songs {
		states[s.ID] = s.Status
	}
	if states[1] != "ready" || states[2] != "pending" {
		t.Errorf("states = %+v", states)
	}
}
