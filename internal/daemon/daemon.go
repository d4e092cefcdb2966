// Package daemon wires the bgmd components together and manages their
// lifecycle: store, event bus, sync heartbeat, download pipeline,
// playback orchestrator, collection loop and the control socket.
package daemon

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/bgmd/bgmd/internal/collect"
	"github.com/bgmd/bgmd/internal/download"
	"github.com/bgmd/bgmd/internal/event"
	"github.com/bgmd/bgmd/internal/playback"
	"github.com/bgmd/bgmd/internal/remote"
	"github.com/bgmd/bgmd/internal/schedule"
	"github.com/bgmd/bgmd/internal/server"
	"github.com/bgmd/bgmd/internal/store"
	syncctl "github.com/bgmd/bgmd/internal/sync"
	"github.com/bgmd/bgmd/pkg/logger"
)

// Config holds the daemon's settings.
type Config struct {
	// DataDir holds the database, the music library and (by default)
	// the control socket.
	DataDir string

	// ConfigURL is the check_update endpoint.
	ConfigURL string

	// CollectURL is the auxiliary collection endpoint. Empty disables
	// the collection loop.
	CollectURL string

	// Secret is sent as the X-Api-Secret header on config requests.
	Secret string

	// SocketPath is the control socket location. Empty defaults to
	// <DataDir>/bgmd.sock.
	SocketPath string
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "bgmd-data"
	}
	if c.SocketPath == "" {
		c.SocketPath = filepath.Join(c.DataDir, "bgmd.sock")
	}
}

// Daemon is the assembled bgmd process.
type Daemon struct {
	cfg Config
	log logger.Logger

	store      *store.Store
	bus        *event.Bus
	orch       *playback.Orchestrator
	controller *syncctl.Controller
	collector  *collect.Collector
	server     *server.Server

	// collectReady is closed by the sync controller after the first
	// successful config exchange; the collection loop waits on it.
	collectReady chan struct{}
}

// New opens the store and wires every component. engine may be nil, in
// which case the logging engine stands in for a real audio backend.
func New(cfg Config, engine playback.Engine, l logger.Logger) (*Daemon, error) {
	cfg.applyDefaults()
	if l == nil {
		l = logger.NewNopLogger()
	}
	if engine == nil {
		engine = playback.NewLogEngine(l)
	}

	fs := afero.NewOsFs()
	if err := fs.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}
	st, err := store.Open(filepath.Join(cfg.DataDir, "bgmd.db"))
	if err != nil {
		return nil, err
	}

	bus := event.NewBus(l)
	client := remote.NewClient(nil, cfg.ConfigURL, cfg.CollectURL, cfg.Secret)
	pipeline := download.New(st, fs, nil, bus, filepath.Join(cfg.DataDir, "music"), l)
	resolver := schedule.NewResolver(st)
	orch := playback.New(st, resolver, engine, bus, fs, nil, l)

	d := &Daemon{
		cfg:          cfg,
		log:          l,
		store:        st,
		bus:          bus,
		orch:         orch,
		collector:    collect.New(client, l),
		collectReady: make(chan struct{}),
	}
	d.controller = syncctl.New(st, client, pipeline, bus, l, func() {
		close(d.collectReady)
	})
	d.server = server.New(cfg.SocketPath, orch, d.controller, st, l)
	return d, nil
}

// Run starts every component and blocks until ctx is cancelled or a
// component fails. The collection loop only starts once the first
// config exchange has succeeded.
func (d *Daemon) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return d.orch.Run(ctx) })
	g.Go(func() error { return d.controller.Run(ctx) })
	g.Go(func() error { return d.server.Serve(ctx) })
	if d.cfg.CollectURL != "" {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-d.collectReady:
			}
			return d.collector.Run(ctx)
		})
	}

	d.log.Info("daemon: running (data dir %s)", d.cfg.DataDir)
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close releases the store.
func (d *Daemon) Close() error {
	return d.store.Close()
}
