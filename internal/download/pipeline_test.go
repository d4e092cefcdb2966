package download

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/bgmd/bgmd/internal/event"
	"github.com/bgmd/bgmd/internal/store"
	"github.com/bgmd/bgmd/pkg/logger"
)

// memStore is an in-memory SongStore for pipeline tests.
type memStore struct {
	mu    sync.Mutex
	songs map[int]*store.Song
	order []int
}

func newMemStore(songs ...store.Song) *memStore {
	m := &memStore{songs: make(map[int]*store.Song)}
	for i := range songs {
		s := songs[i]
		m.songs[s.ID] = &s
		m.order = append(m.order, s.ID)
	}
	return m
}

func (m *memStore) PendingSongs(ctx context.Context) ([]store.Song, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Song
	for _, id := range m.order {
		if s := m.songs[id]; s.Status != store.StatusReady {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memStore) SetSongStatus(ctx context.Context, id int, status store.SongStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.songs[id].Status = status
	return nil
}

func (m *memStore) MarkSongReady(ctx context.Context, id int, localPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.songs[id].Status = store.StatusReady
	m.songs[id].LocalPath = localPath
	return nil
}

func (m *memStore) song(id int) store.Song {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.songs[id]
}

func digestOf(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

func drainEvents(sub *event.Subscription) (ready []event.SongReady, final *event.DownloadProgress) {
	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-sub.C:
			switch ev := e.(type) {
			case event.SongReady:
				ready = append(ready, ev)
			case event.DownloadProgress:
				if ev.Finished {
					f := ev
					return ready, &f
				}
			}
		case <-deadline:
			return ready, nil
		}
	}
}

func TestValidHash(t *testing.T) {
	cases := []struct {
		hash string
		want bool
	}{
		{"0123456789abcdef0123456789abcdef", true},
		{"0123456789ABCDEF0123456789ABCDEF", true},
		{"0123456789abcdef0123456789abcde", false},  // 31 chars
		{"0123456789abcdef0123456789abcdefa", false}, // 33 chars
		{"zzzz456789abcdef0123456789abcdef", false},  // non-hex
		{"", false},
	}
	for _, c := range cases {
		if got := ValidHash(c.hash); got != c.want {
			t.Errorf("ValidHash(%q) = %v, want %v", c.hash, got, c.want)
		}
	}
}

func TestRunDownloadsAndVerifies(t *testing.T) {
	body := []byte("la la la")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	ms := newMemStore(store.Song{ID: 1, Title: "One", MD5: digestOf(body), URL: srv.URL})
	fs := afero.NewMemMapFs()
	bus := event.NewBus(nil)
	sub := bus.Subscribe(16)
	defer sub.Close()

	p := New(ms, fs, srv.Client(), bus, "/music", logger.NewNopLogger())
	p.Run(context.Background())

	ready, final := drainEvents(sub)
	if len(ready) != 1 || ready[0].SongID != 1 || ready[0].Title != "One" {
		t.Fatalf("ready events = %+v", ready)
	}
	if final == nil || final.Completed != 1 || final.Total != 1 {
		t.Fatalf("final progress = %+v", final)
	}

	song := ms.song(1)
	if song.Status != store.StatusReady {
		t.Errorf("status = %v, want ready", song.Status)
	}
	wantPath := filepath.Join("/music", digestOf(body)+".mp3")
	if song.LocalPath != wantPath {
		t.Errorf("local path = %q, want %q", song.LocalPath, wantPath)
	}
	if ok, _ := afero.Exists(fs, wantPath); !ok {
		t.Error("downloaded file missing from fs")
	}
}

func TestRunSkipsNetworkWhenFileValid(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	body := []byte("already here")
	sum := digestOf(body)
	fs := afero.NewMemMapFs()
	path := filepath.Join("/music", sum+".mp3")
	if err := afero.WriteFile(fs, path, body, 0o644); err != nil {
		t.Fatal(err)
	}

	ms := newMemStore(store.Song{ID: 4, Title: "Cached", MD5: sum, URL: srv.URL})
	bus := event.NewBus(nil)
	sub := bus.Subscribe(16)
	defer sub.Close()

	New(ms, fs, srv.Client(), bus, "/music", nil).Run(context.Background())

	if hits.Load() != 0 {
		t.Errorf("server hit %d times, want 0", hits.Load())
	}
	ready, _ := drainEvents(sub)
	if len(ready) != 1 || ready[0].Path != path {
		t.Errorf("ready = %+v", ready)
	}
	if ms.song(4).Status != store.StatusReady {
		t.Error("cached song not marked ready")
	}
}

func TestRunDeletesOnDigestMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("corrupted payload"))
	}))
	defer srv.Close()

	// Expected digest is valid hex but matches nothing the server sends.
	ms := newMemStore(store.Song{ID: 2, Title: "Two", MD5: "00000000000000000000000000000000", URL: srv.URL})
	fs := afero.NewMemMapFs()
	bus := event.NewBus(nil)
	sub := bus.Subscribe(16)
	defer sub.Close()

	New(ms, fs, srv.Client(), bus, "/music", nil).Run(context.Background())

	ready, final := drainEvents(sub)
	if len(ready) != 0 {
		t.Errorf("unexpected ready events: %+v", ready)
	}
	if final == nil || final.Completed != 0 || final.Total != 1 {
		t.Errorf("final progress = %+v", final)
	}
	if song := ms.song(2); song.Status == store.StatusReady {
		t.Error("mismatched song marked ready")
	}
	path := filepath.Join("/music", "00000000000000000000000000000000.mp3")
	if ok, _ := afero.Exists(fs, path); ok {
		t.Error("corrupted file not deleted")
	}
}

func TestRunRejectsInvalidHashWithoutNetwork(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	ms := newMemStore(store.Song{ID: 3, Title: "Bad", MD5: "not-a-digest", URL: srv.URL})
	bus := event.NewBus(nil)
	sub := bus.Subscribe(16)
	defer sub.Close()

	New(ms, afero.NewMemMapFs(), srv.Client(), bus, "/music", nil).Run(context.Background())

	if hits.Load() != 0 {
		t.Errorf("server hit %d times for invalid hash, want 0", hits.Load())
	}
	if song := ms.song(3); song.Status != store.StatusPending {
		t.Errorf("status = %v, want untouched pending", song.Status)
	}
}

func TestRunFailedSongDoesNotAbortBatch(t *testing.T) {
	good := []byte("good song")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write(good)
	}))
	defer srv.Close()

	ms := newMemStore(
		store.Song{ID: 1, Title: "Bad", MD5: "11111111111111111111111111111111", URL: srv.URL + "/bad"},
		store.Song{ID: 2, Title: "Good", MD5: digestOf(good), URL: srv.URL + "/good"},
	)
	bus := event.NewBus(nil)
	sub := bus.Subscribe(16)
	defer sub.Close()

	New(ms, afero.NewMemMapFs(), srv.Client(), bus, "/music", nil).Run(context.Background())

	ready, final := drainEvents(sub)
	if len(ready) != 1 || ready[0].SongID != 2 {
		t.Fatalf("ready = %+v, want only song 2", ready)
	}
	if final == nil || final.Completed != 1 || final.Total != 2 || !final.Finished {
		t.Errorf("final = %+v", final)
	}
	// The failed song keeps a non-ready status and will retry next run.
	if ms.song(1).Status == store.StatusReady {
		t.Error("failed song marked ready")
	}
}

func TestRunIsSelfExcluding(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	ms := newMemStore(store.Song{ID: 1, Title: "Slow", MD5: digestOf([]byte("x")), URL: srv.URL})
	bus := event.NewBus(nil)
	ml := logger.NewMockLogger()
	p := New(ms, afero.NewMemMapFs(), srv.Client(), bus, "/music", ml)

	done := make(chan struct{})
	go func() {
		p.Run(context.Background())
		close(done)
	}()

	// Wait for the first run to be mid-flight, then call again.
	for !p.running.Load() {
		time.Sleep(time.Millisecond)
	}
	p.Run(context.Background()) // must return immediately as a no-op

	close(release)
	<-done

	found := false
	for _, msg := range ml.InfoCalls {
		if msg == "download: run already in progress, skipping" {
			found = true
		}
	}
	if !found {
		t.Error("second Run did not short-circuit")
	}
}
