// Package download implements the content-addressed media pipeline: it
// fetches every pending song referenced by the current configuration,
// verifies integrity, marks items ready, and emits readiness events.
//
// Downloads are deliberately sequential — one fetch at a time bounds
// bandwidth on constrained devices and keeps song-ready events naturally
// ordered.
package download

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"

	"github.com/bgmd/bgmd/internal/event"
	"github.com/bgmd/bgmd/internal/store"
	"github.com/bgmd/bgmd/pkg/logger"
)

// SongStore is the store surface the pipeline needs.
type SongStore interface {
	PendingSongs(ctx context.Context) ([]store.Song, error)
	SetSongStatus(ctx context.Context, id int, status store.SongStatus) error
	MarkSongReady(ctx context.Context, id int, localPath string) error
}

// Pipeline downloads pending songs into a content-addressed directory.
type Pipeline struct {
	store  SongStore
	fs     afero.Fs
	client *http.Client
	bus    *event.Bus
	dir    string
	log    logger.Logger

	running atomic.Bool
}

// New builds a Pipeline writing into dir on fs. A nil client gets a
// 10 minute timeout suitable for large media files on slow links.
func New(s SongStore, fs afero.Fs, client *http.Client, bus *event.Bus, dir string, l logger.Logger) *Pipeline {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Minute}
	}
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Pipeline{
		store:  s,
		fs:     fs,
		client: client,
		bus:    bus,
		dir:    dir,
		log:    l,
	}
}

// localName derives the storage filename from the content hash. Hash
// naming is collision-free across configs and makes re-downloads of
// already-present content a no-op.
func localName(md5sum string) string {
	return md5sum + ".mp3"
}

// Run processes every pending song once, in stored order. It is
// idempotent and self-excluding: a call while another run is in flight
// returns immediately. Per-song failures are logged and skipped; they
// never abort the batch. A final DownloadProgress event with
// Finished=true is always published.
func (p *Pipeline) Run(ctx context.Context) {
	if !p.running.CompareAndSwap(false, true) {
		p.log.Info("download: run already in progress, skipping")
		return
	}
	defer p.running.Store(false)

	if err := p.fs.MkdirAll(p.dir, 0o755); err != nil {
		p.log.Error("download: create media dir: %v", err)
		return
	}

	pending, err := p.store.PendingSongs(ctx)
	if err != nil {
		p.log.Error("download: list pending songs: %v", err)
		return
	}
	total := len(pending)
	p.log.Info("download: %d songs pending", total)
	p.bus.Publish(event.DownloadProgress{Completed: 0, Total: total})

	completed := 0
	for _, song := range pending {
		if ctx.Err() != nil {
			break
		}
		if err := p.fetchOne(ctx, song); err != nil {
			p.log.Warning("download: song %d (%s): %v", song.ID, song.Title, err)
			continue
		}
		completed++
		p.bus.Publish(event.DownloadProgress{Completed: completed, Total: total})
	}

	p.bus.Publish(event.DownloadProgress{Completed: completed, Total: total, Finished: true})
	if completed < total {
		p.log.Warning("download: batch finished %d/%d (%d failed or skipped)", completed, total, total-completed)
	} else {
		p.log.Info("download: batch finished %d/%d", completed, total)
	}
}

// fetchOne brings a single song to ready state, or reports why it
// couldn't. Songs whose digest cannot be trusted are rejected before any
// network traffic.
func (p *Pipeline) fetchOne(ctx context.Context, song store.Song) error {
	if !ValidHash(song.MD5) {
		return fmt.Errorf("refusing download: md5 %q is not a 32-char hex digest", song.MD5)
	}

	target := filepath.Join(p.dir, localName(song.MD5))

	// Dedup: a file named by this hash that verifies needs no network.
	if exists, _ := afero.Exists(p.fs, target); exists {
		ok, err := digestMatches(p.fs, target, song.MD5)
		if err == nil && ok {
			p.log.Info("download: song %d already on disk, marking ready", song.ID)
			return p.markReady(ctx, song, target)
		}
	}

	if err := p.store.SetSongStatus(ctx, song.ID, store.StatusDownloading); err != nil {
		return err
	}

	if err := p.stream(ctx, song.URL, target); err != nil {
		return err
	}

	ok, err := digestMatches(p.fs, target, song.MD5)
	if err != nil {
		return err
	}
	if !ok {
		p.fs.Remove(target)
		return fmt.Errorf("digest mismatch after download, file deleted")
	}
	return p.markReady(ctx, song, target)
}

// stream fetches url into target. Non-2xx responses leave the song
// untouched so the next pipeline run retries it.
func (p *Pipeline) stream(ctx context.Context, url, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("fetch returned status %d", resp.StatusCode)
	}

	if err := afero.WriteReader(p.fs, target, resp.Body); err != nil {
		p.fs.Remove(target)
		return fmt.Errorf("write %s: %w", target, err)
	}
	return nil
}

// markReady persists readiness and announces it on the bus.
func (p *Pipeline) markReady(ctx context.Context, song store.Song, path string) error {
	if err := p.store.MarkSongReady(ctx, song.ID, path); err != nil {
		return err
	}
	p.bus.Publish(event.SongReady{SongID: song.ID, Path: path, Title: song.Title})
	p.log.Info("download: song ready: %s", song.Title)
	return nil
}
