// Package sync keeps the device's configuration fresh. A single
// controller goroutine polls the config endpoint on a stable cadence,
// switches to a fast cadence while downloads are outstanding, applies
// replacement configs transactionally, and announces identity, playlist
// and block events on the bus.
package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bgmd/bgmd/internal/event"
	"github.com/bgmd/bgmd/internal/remote"
	"github.com/bgmd/bgmd/internal/store"
	"github.com/bgmd/bgmd/pkg/logger"
)

const (
	// StableInterval is the heartbeat when the library is fully ready.
	StableInterval = 30 * time.Minute
	// FastInterval is the heartbeat while songs are still pending.
	FastInterval = time.Minute
)

// ConfigStore is the store surface the controller needs.
type ConfigStore interface {
	ConfigValue(ctx context.Context, key string) (string, error)
	SetConfigValue(ctx context.Context, key, value string) error
	ApplyConfig(ctx context.Context, update store.ConfigUpdate) error
	CountPending(ctx context.Context) (int, error)
}

// Checker is the config endpoint surface.
type Checker interface {
	CheckUpdate(ctx context.Context, req remote.CheckUpdateRequest) (*remote.CheckUpdateResponse, error)
}

// Downloader kicks off a download pass. Implementations must be safe to
// call while a previous pass is still running.
type Downloader interface {
	Run(ctx context.Context)
}

// Controller owns the sync heartbeat.
type Controller struct {
	store  ConfigStore
	client Checker
	dl     Downloader
	bus    *event.Bus
	log    logger.Logger

	stable time.Duration
	fast   time.Duration

	// startCollector is invoked exactly once, after the first successful
	// config exchange, so the collection loop never runs before the
	// device has talked to the backend.
	startCollector func()
	collectorOnce  sync.Once

	mu sync.Mutex // serializes CheckUpdate across timer and on-demand calls

	// runCtx is the daemon-lifetime context captured by Run. Download
	// passes are kicked on it, never on a caller's context: an
	// on-demand exchange arrives on a request-scoped context that is
	// cancelled as soon as the handler returns, which would abort the
	// very downloads it just triggered. Guarded by mu.
	runCtx context.Context

	after func(d time.Duration) <-chan time.Time
}

// New builds a Controller. startCollector may be nil.
func New(cs ConfigStore, client Checker, dl Downloader, bus *event.Bus, l logger.Logger, startCollector func()) *Controller {
	if l == nil {
		l = logger.NewNopLogger()
	}
	if startCollector == nil {
		startCollector = func() {}
	}
	return &Controller{
		store:          cs,
		client:         client,
		dl:             dl,
		bus:            bus,
		log:            l,
		stable:         StableInterval,
		fast:           FastInterval,
		startCollector: startCollector,
		after:          time.After,
	}
}

// Run performs an immediate check, then heartbeats until ctx is
// cancelled. The interval is recomputed every iteration: pending songs
// pull the cadence down to the fast interval and also re-kick the
// downloader so failed songs are retried.
func (c *Controller) Run(ctx context.Context) error {
	c.mu.Lock()
	c.runCtx = ctx
	c.mu.Unlock()

	if err := c.CheckUpdate(ctx); err != nil {
		c.log.Warning("sync: initial check failed: %v", err)
	}
	for {
		interval := c.stable
		pending, err := c.store.CountPending(ctx)
		if err != nil {
			c.log.Error("sync: count pending: %v", err)
		} else if pending > 0 {
			interval = c.fast
			go c.dl.Run(ctx)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.after(interval):
		}
		if err := c.CheckUpdate(ctx); err != nil {
			c.log.Warning("sync: check failed: %v", err)
		}
	}
}

// CheckUpdate performs one config exchange. Safe for concurrent use;
// calls are serialized so two exchanges can never interleave their
// read-version/apply-config steps.
func (c *Controller) CheckUpdate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	deviceID, err := c.ensureDeviceID(ctx)
	if err != nil {
		return err
	}
	version, err := c.store.ConfigValue(ctx, store.KeyConfigVersion)
	if err != nil {
		return fmt.Errorf("sync: read version: %w", err)
	}
	if version == "" {
		version = "0"
	}

	resp, err := c.client.CheckUpdate(ctx, remote.CheckUpdateRequest{
		DeviceID:       deviceID,
		CurrentVersion: version,
	})
	if err != nil {
		return fmt.Errorf("sync: check_update (%s): %w", remote.Classify(err), err)
	}

	switch resp.Status {
	case remote.StatusLatest:
		c.log.Info("sync: configuration is current (version %s)", version)

	case remote.StatusUpdateRequired:
		if resp.Config == nil {
			return fmt.Errorf("sync: update_required without config payload")
		}
		update := buildUpdate(resp.NewVersion, resp.Config, c.log)
		if err := c.store.ApplyConfig(ctx, update); err != nil {
			return fmt.Errorf("sync: apply config: %w", err)
		}
		c.log.Info("sync: applied configuration version %s (%d songs, %d playlists)",
			resp.NewVersion, len(update.Songs), len(update.Playlists))
		c.bus.Publish(event.PlaylistUpdated{})
		dlCtx := c.runCtx
		if dlCtx == nil {
			dlCtx = context.Background()
		}
		go c.dl.Run(dlCtx)

	case remote.StatusBlocked:
		c.log.Warning("sync: device is blocked by the backend")
		c.bus.Publish(event.DeviceBlocked{Reason: "blocked by backend"})
		return nil

	case remote.StatusError:
		return fmt.Errorf("sync: backend reported an error")

	default:
		return fmt.Errorf("sync: unknown status %q", resp.Status)
	}

	c.collectorOnce.Do(c.startCollector)
	return nil
}

// ensureDeviceID returns the persisted device identity, minting and
// announcing a fresh UUID on first run.
func (c *Controller) ensureDeviceID(ctx context.Context) (string, error) {
	id, err := c.store.ConfigValue(ctx, store.KeyDeviceID)
	if err != nil {
		return "", fmt.Errorf("sync: read device id: %w", err)
	}
	if id != "" {
		return id, nil
	}
	id = uuid.NewString()
	if err := c.store.SetConfigValue(ctx, store.KeyDeviceID, id); err != nil {
		return "", fmt.Errorf("sync: persist device id: %w", err)
	}
	c.log.Info("sync: generated device id %s", id)
	c.bus.Publish(event.DeviceIdentity{ID: id})
	return id, nil
}
