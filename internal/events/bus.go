// Package events provides a non-blocking publish-subscribe bus carrying
// device state snapshots to SSE clients and other observers.
package events

import (
	"sync"

	"github.com/micro-nova/bias-go/internal/models"
)

const subBufferSize = 8

// Bus fans out state snapshots. Subscribers that are slow to consume
// have updates dropped rather than blocking the publisher.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan models.State
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan models.State)}
}

// Subscribe registers an observer and returns its update channel along
// with a cancel function that removes the subscription and closes the
// channel. Calling cancel more than once is safe.
func (b *Bus) Subscribe() (<-chan models.State, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan models.State, subBufferSize)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers a snapshot to every subscriber, dropping it for any
// whose buffer is full.
func (b *Bus) Publish(state models.State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- state:
		default:
		}
	}
}

// SubscriberCount returns the current number of subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
