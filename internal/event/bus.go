package event

import (
	"sync"

	"github.com/bgmd/bgmd/pkg/logger"
)

// Bus is an asynchronous in-process publish/subscribe hub. Publish never
// blocks: each subscriber has a buffered channel, and events that would
// block on a full subscriber are dropped with a warning.
type Bus struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
	log  logger.Logger
}

// Subscription is one subscriber's view of the bus. Events are received
// from C until Close is called.
type Subscription struct {
	// C delivers published events in publish order.
	C <-chan Event

	ch   chan Event
	bus  *Bus
	once sync.Once
}

// NewBus creates an empty bus. A nil logger is replaced with NopLogger.
func NewBus(l logger.Logger) *Bus {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Bus{
		subs: make(map[*Subscription]struct{}),
		log:  l,
	}
}

// Subscribe registers a new subscriber with the given channel buffer.
// A buffer below 1 is raised to 1.
func (b *Bus) Subscribe(buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	s := &Subscription{C: ch, ch: ch, bus: b}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// Close unregisters the subscription and closes its channel.
// Safe to call multiple times.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s)
		s.bus.mu.Unlock()
		close(s.ch)
	})
}

// Publish delivers e to every current subscriber without blocking.
// Subscribers that cannot keep up lose the event.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs {
		select {
		case s.ch <- e:
		default:
			b.log.Warning("event bus: dropped %s event for slow subscriber", e.Kind())
		}
	}
}

// SubscriberCount returns the number of active subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
