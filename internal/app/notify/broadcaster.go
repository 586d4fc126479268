// Package notify provides fan-out of playback events to subscribers.
package notify

import (
	"sync"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/amplfr/amplfrd/internal/app/player"
)

// Notification is a playback event stamped with a monotonic sequence number
// so subscribers can detect gaps.
type Notification struct {
	SequenceNo uint64
	Event      player.Event
}

// subscription represents one subscriber's buffered delivery channel.
type subscription struct {
	id string
	ch chan Notification
}

// Broadcaster distributes playback events to any number of subscribers.
// Slow subscribers drop notifications instead of stalling the player.
type Broadcaster struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscriptions: make(map[string]*subscription),
	}
}

// Subscribe registers a subscriber and returns its ID and delivery channel.
func (b *Broadcaster) Subscribe() (string, <-chan Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscription{
		id: uuid.New().String(),
		ch: make(chan Notification, 16),
	}
	b.subscriptions[sub.id] = sub
	return sub.id, sub.ch
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subscriptions[id]
	if !ok {
		return
	}
	delete(b.subscriptions, id)
	close(sub.ch)
}

// Broadcast stamps the event with the next sequence number and delivers it to
// every subscriber without blocking.
func (b *Broadcaster) Broadcast(e player.Event) {
	b.mu.Lock()
	b.sequenceNo++
	n := Notification{SequenceNo: b.sequenceNo, Event: e}
	b.mu.Unlock()

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subscriptions {
		select {
		case sub.ch <- n:
		default:
			zlog.Debug().Msgf("notify: subscriber %s lagging, dropping event %s", sub.id, e.Type)
		}
	}
}

// Run forwards the player's event channel into the broadcaster until the
// channel closes.
func (b *Broadcaster) Run(events <-chan player.Event) {
	for e := range events {
		b.Broadcast(e)
	}
}

// SubscriberCount returns the number of active subscriptions.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscriptions)
}
