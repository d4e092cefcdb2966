package collect

import (
	"context"
	"time"

	"github.com/bgmd/bgmd/internal/remote"
	"github.com/bgmd/bgmd/pkg/logger"
)

const (
	// defaultBuffer keeps each call inside its slot window rather than
	// racing the slot's leading edge.
	defaultBuffer = 5 * time.Minute
	// defaultFallback is the retry cadence when the endpoint is
	// unreachable or its response is unusable.
	defaultFallback = 30 * time.Minute
)

// Caller is the collection endpoint surface the collector needs.
type Caller interface {
	Collect(ctx context.Context) (*remote.CollectResponse, error)
}

// Collector drives the slot-paced collection loop. It is started once,
// after the first successful config sync, and runs until its context is
// cancelled; individual call failures never terminate it.
type Collector struct {
	client   Caller
	log      logger.Logger
	buffer   time.Duration
	fallback time.Duration

	// after is swapped out in tests.
	after func(d time.Duration) <-chan time.Time
}

// New builds a Collector with the default buffer and fallback cadence.
func New(client Caller, l logger.Logger) *Collector {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Collector{
		client:   client,
		log:      l,
		buffer:   defaultBuffer,
		fallback: defaultFallback,
		after:    time.After,
	}
}

// Run loops: call, compute the delay to the next slot, sleep, repeat.
func (c *Collector) Run(ctx context.Context) error {
	for {
		delay := c.step(ctx)
		c.log.Info("collect: next call in %s", delay.Round(time.Second))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.after(delay):
		}
	}
}

// step performs one collection call and returns the delay until the
// next one. Any failure falls back to the fixed retry cadence.
func (c *Collector) step(ctx context.Context) time.Duration {
	resp, err := c.client.Collect(ctx)
	if err != nil {
		c.log.Warning("collect: call failed (%s): %v", remote.Classify(err), err)
		return c.fallback
	}
	if !resp.OK {
		c.log.Warning("collect: server declined: %s", resp.Reason)
		return c.fallback
	}
	delay, err := nextDelay(resp.NowLocal, resp.Slots, c.buffer)
	if err != nil {
		c.log.Warning("collect: cannot schedule next slot: %v", err)
		return c.fallback
	}
	if !resp.InWindow && resp.Reason != "" {
		c.log.Info("collect: outside window: %s", resp.Reason)
	}
	return delay
}
