package monitor

import (
	"context"
	"sync"

	"github.com/mattn/go-pubsub"
	"github.com/pkg/errors"
)

// Broadcaster is a Sink that hands readings to in-process subscribers, such
// as HTTP clients waiting for the next frame. Delivery runs on the pubsub
// goroutine, so a slow subscriber never stalls the monitor.
type Broadcaster struct {
	ps *pubsub.PubSub

	// pubMu orders Pub against Close; mu guards the waiters, which deliver
	// takes on the pubsub goroutine.
	pubMu  sync.Mutex
	closed bool

	mu      sync.Mutex
	nextID  int
	waiters map[int]func(Reading)
}

// NewBroadcaster creates a broadcaster with no subscribers.
func NewBroadcaster() (*Broadcaster, error) {
	b := &Broadcaster{
		ps:      pubsub.New(),
		waiters: make(map[int]func(Reading)),
	}
	if err := b.ps.Sub(b.deliver); err != nil {
		b.ps.Close()
		return nil, errors.Wrap(err, "failed to subscribe broadcaster")
	}
	return b, nil
}

func (b *Broadcaster) Name() string {
	return "broadcast"
}

// Handle publishes a copy of r. Readings after Close are dropped.
func (b *Broadcaster) Handle(ctx context.Context, r *Reading) error {
	b.pubMu.Lock()
	defer b.pubMu.Unlock()
	if !b.closed {
		b.ps.Pub(*r)
	}
	return nil
}

// Close stops delivery and drops every subscriber. It is safe to call more
// than once.
func (b *Broadcaster) Close() error {
	b.pubMu.Lock()
	defer b.pubMu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	b.ps.Close()

	b.mu.Lock()
	b.waiters = make(map[int]func(Reading))
	b.mu.Unlock()
	return nil
}

// Subscribe calls cb for every reading handled from now on, until the
// returned function is called. cb must not block.
func (b *Broadcaster) Subscribe(cb func(Reading)) context.CancelFunc {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.waiters[id] = cb
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.waiters, id)
		b.mu.Unlock()
	}
}

// Subscribers returns the number of active subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.waiters)
}

func (b *Broadcaster) deliver(r Reading) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, cb := range b.waiters {
		cb(r)
	}
}
