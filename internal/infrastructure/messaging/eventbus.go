// Package messaging implements the in-process event bus connecting
// engagement ingestion to the feed engine's cache and trending hooks.
package messaging

import (
	"errors"
	"sync"

	"github.com/bazario/bazario-feed/internal/domain/event"
	"github.com/bazario/bazario-feed/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// ErrBusClosed is returned when publishing to a closed bus.
var ErrBusClosed = errors.New("messaging: event bus is closed")

// InMemoryBus is a simple in-memory implementation of event.Bus.
// Suitable for single-instance deployments and testing.
//
// Handlers run asynchronously on a bounded worker pool; a handler error
// is logged and dropped, it never propagates to the publisher. Feed
// invalidation and trending bumps are both idempotent enough that a lost
// event is corrected by the next one.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[event.Type][]event.Handler
	workers  chan struct{}
	closed   bool
	wg       sync.WaitGroup
	log      *logger.Logger
}

// NewInMemoryBus creates a bus running handlers on at most workerPoolSize
// concurrent goroutines.
func NewInMemoryBus(workerPoolSize int, log *logger.Logger) *InMemoryBus {
	if workerPoolSize <= 0 {
		workerPoolSize = 10
	}
	if log == nil {
		log = logger.Default()
	}
	return &InMemoryBus{
		handlers: make(map[event.Type][]event.Handler),
		workers:  make(chan struct{}, workerPoolSize),
		log:      log.With(logger.Component("event_bus")),
	}
}

// Subscribe registers a handler for an event type.
func (b *InMemoryBus) Subscribe(eventType event.Type, handler event.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish delivers an event to all handlers subscribed to its type.
func (b *InMemoryBus) Publish(ev event.Event) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	handlers := b.handlers[ev.EventType()]
	// Add while still holding the lock: Close flips closed under the
	// write lock before waiting, so it can never observe a zero counter
	// that a concurrent Publish is about to raise.
	b.wg.Add(len(handlers))
	b.mu.RUnlock()

	for _, h := range handlers {
		h := h
		b.workers <- struct{}{}
		go func() {
			defer func() {
				<-b.workers
				b.wg.Done()
			}()
			if err := h(ev); err != nil {
				b.log.Error("event handler failed",
					logger.String("event_type", string(ev.EventType())),
					logger.Err(err),
				)
			}
		}()
	}
	return nil
}

// Close stops delivery and waits for in-flight handlers.
func (b *InMemoryBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}
