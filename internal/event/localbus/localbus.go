// Package localbus provides an in-process event bus with per-subscription
// fan-out. It backs the memory deployment mode and the test suites; the
// production transport is the Kafka bus.
package localbus

import (
	"context"
	"errors"
	"sync"

	"civic/internal/event"
)

// Config tunes bus behavior.
type Config struct {
	// BufferSize is the channel buffer per subscription. Default 64.
	BufferSize int

	// OnError is invoked when a handler returns an error. The local bus does
	// not redeliver; a durable broker owns that concern in production.
	OnError func(env event.Envelope, err error)
}

// Bus is an in-memory implementation of event.Bus with typed subscriptions.
type Bus struct {
	cfg Config

	mu     sync.RWMutex
	byType map[event.Type][]*subscription
	closed bool
	wg     sync.WaitGroup
}

type subscription struct {
	handler event.Handler
	inbox   chan event.Envelope
}

// New creates a local bus.
func New(cfg Config) *Bus {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 64
	}
	return &Bus{
		cfg:    cfg,
		byType: make(map[event.Type][]*subscription),
	}
}

// Subscribe registers a handler for the given event types. Each subscription
// processes its inbox sequentially on its own goroutine, so distinct
// subscribers react to the same envelope concurrently.
func (b *Bus) Subscribe(types []event.Type, handler event.Handler) {
	sub := &subscription{
		handler: handler,
		inbox:   make(chan event.Envelope, b.cfg.BufferSize),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, t := range types {
		b.byType[t] = append(b.byType[t], sub)
	}

	b.wg.Add(1)
	go b.process(sub)
}

// Publish delivers the envelope to every subscription registered for its type.
// Delivery blocks when a subscription inbox is full, so publishers see
// backpressure instead of silent drops.
func (b *Bus) Publish(ctx context.Context, env event.Envelope) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return errors.New("localbus: closed")
	}
	subs := b.byType[env.DetailType]
	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.inbox <- env:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Close stops accepting publishes and waits for in-flight envelopes to drain.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	seen := make(map[*subscription]bool)
	for _, subs := range b.byType {
		for _, sub := range subs {
			if !seen[sub] {
				seen[sub] = true
				close(sub.inbox)
			}
		}
	}
	b.mu.Unlock()

	b.wg.Wait()
}

func (b *Bus) process(sub *subscription) {
	defer b.wg.Done()
	for env := range sub.inbox {
		if err := sub.handler.Handle(context.Background(), env); err != nil && b.cfg.OnError != nil {
			b.cfg.OnError(env, err)
		}
	}
}
