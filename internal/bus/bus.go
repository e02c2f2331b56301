// Package bus is the process-wide broadcast channel for domain events.
package bus

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultCapacity is the per-subscriber buffer used when none is given.
const DefaultCapacity = 1000

// Bus fans out every published event to all current subscribers.
// Each subscriber has its own bounded buffer; when it is full the oldest
// buffered event for that subscriber is dropped. Publishers never block.
type Bus struct {
	mu       sync.RWMutex
	subs     map[uint64]*Subscription
	nextID   uint64
	capacity int
	now      func() time.Time
}

// New creates a bus whose subscribers buffer up to capacity events.
func New(capacity int) *Bus {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Bus{
		subs:     make(map[uint64]*Subscription),
		capacity: capacity,
		now:      time.Now,
	}
}

// Capacity returns the per-subscriber buffer size.
func (b *Bus) Capacity() int {
	return b.capacity
}

// Subscription is one subscriber's receive end.
type Subscription struct {
	id     uint64
	bus    *Bus
	ch     chan Event
	mu     sync.Mutex
	closed bool
	lagged atomic.Uint64
}

// Subscribe registers a new subscriber. Events published before this call
// are never delivered to it.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		id:  b.nextID,
		bus: b,
		ch:  make(chan Event, b.capacity),
	}
	b.subs[sub.id] = sub
	return sub
}

// Publish delivers ev to every subscriber. A zero Timestamp is set to now.
func (b *Bus) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = b.now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		sub.offer(ev)
	}
}

// SubscriberCount returns the number of live subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// offer enqueues ev, evicting the oldest buffered event if necessary.
func (s *Subscription) offer(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.ch <- ev:
			return
		default:
		}
		select {
		case <-s.ch:
			s.lagged.Add(1)
		default:
		}
	}
}

// C returns the channel events arrive on. It is closed by Close.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Lagged returns how many events were dropped for this subscriber.
func (s *Subscription) Lagged() uint64 {
	return s.lagged.Load()
}

// Close unsubscribes and closes the channel. Safe to call more than once.
func (s *Subscription) Close() {
	s.bus.mu.Lock()
	delete(s.bus.subs, s.id)
	s.bus.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}
