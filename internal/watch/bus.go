// Package watch observes the previewed file and fans change notifications
// out to every connected browser tab.
package watch

import "sync"

// Bus is a single-producer, multi-consumer notification channel carrying
// unit events. Each SSE connection takes its own Subscription at connect
// time and sees only events published after that point; a slow subscriber
// never blocks the publisher or its siblings.
type Bus struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// Subscription is one consumer handle on a Bus. Receive on C; Close when
// the connection goes away.
type Subscription struct {
	C   chan struct{}
	bus *Bus
}

// NewBus returns an empty bus with no subscribers.
func NewBus() *Bus {
	return &Bus{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a new consumer. The returned channel holds at most
// one pending notification; bursts of publishes coalesce, which is exactly
// what a "reload the page" signal wants.
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{C: make(chan struct{}, 1), bus: b}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Publish notifies every current subscriber without blocking.
func (b *Bus) Publish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		select {
		case sub.C <- struct{}{}:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close deregisters the subscription and closes its channel.
func (s *Subscription) Close() {
	s.bus.mu.Lock()
	_, ok := s.bus.subs[s]
	if ok {
		delete(s.bus.subs, s)
	}
	s.bus.mu.Unlock()
	if ok {
		close(s.C)
	}
}
