// Package stream implements the in-process subscription fabric: bounded
// broadcast channels keyed by user id and by topic name, fanned out to
// WebSocket and SSE consumers.
package stream

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pushbin/pushbin-server/internal/message"
)

const (
	// bufferSize is the per-subscription ring capacity. A subscriber that
	// falls further behind skips the oldest frames and is told how many it
	// missed.
	bufferSize = 256

	// sweepInterval controls how often idle channels are reclaimed.
	sweepInterval = 60 * time.Second
)

// Hub maintains the broadcast channels for user streams and topic streams.
// The maps are read-mostly: broadcasts and repeat subscriptions take the read
// lock; only the first subscriber of a key and the sweep take the write lock.
type Hub struct {
	mu     sync.RWMutex
	users  map[int64]*broadcaster
	topics map[string]*broadcaster
	log    zerolog.Logger
}

// NewHub creates an empty subscription hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		users:  make(map[int64]*broadcaster),
		topics: make(map[string]*broadcaster),
		log:    logger.With().Str("component", "stream").Logger(),
	}
}

// SubscribeUser returns a subscription to the user's aggregate stream,
// creating the channel on first use. The subscription is live before
// SubscribeUser returns: any broadcast that starts after it is guaranteed to
// reach the subscription or be counted as lag.
func (h *Hub) SubscribeUser(userID int64) *Subscription {
	h.mu.RLock()
	if b, ok := h.users[userID]; ok {
		sub := b.subscribe()
		h.mu.RUnlock()
		return sub
	}
	h.mu.RUnlock()

	h.mu.Lock()
	b, ok := h.users[userID]
	if !ok {
		b = newBroadcaster()
		h.users[userID] = b
	}
	sub := b.subscribe()
	h.mu.Unlock()
	return sub
}

// SubscribeTopic returns a subscription to the named topic's stream, creating
// the channel on first use.
func (h *Hub) SubscribeTopic(name string) *Subscription {
	h.mu.RLock()
	if b, ok := h.topics[name]; ok {
		sub := b.subscribe()
		h.mu.RUnlock()
		return sub
	}
	h.mu.RUnlock()

	h.mu.Lock()
	b, ok := h.topics[name]
	if !ok {
		b = newBroadcaster()
		h.topics[name] = b
	}
	sub := b.subscribe()
	h.mu.Unlock()
	return sub
}

// BroadcastToUser delivers a message view to every subscriber of the user's
// stream. Publishers never block; slow subscribers lose their oldest frames.
func (h *Hub) BroadcastToUser(userID int64, view message.View) {
	h.mu.RLock()
	b, ok := h.users[userID]
	h.mu.RUnlock()
	if ok {
		b.publish(view)
	}
}

// BroadcastToTopic delivers a message view to every subscriber of the topic's
// stream.
func (h *Hub) BroadcastToTopic(name string, view message.View) {
	h.mu.RLock()
	b, ok := h.topics[name]
	h.mu.RUnlock()
	if ok {
		b.publish(view)
	}
}

// Run sweeps idle channels every sweepInterval until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			h.Sweep()
		}
	}
}

// Sweep removes channels that have no live subscribers. Subscribe holds the
// hub's read lock while registering with a broadcaster, so a channel observed
// empty here cannot gain a subscriber concurrently.
func (h *Hub) Sweep() {
	h.mu.Lock()
	defer h.mu.Unlock()

	removed := 0
	for id, b := range h.users {
		if b.subscriberCount() == 0 {
			delete(h.users, id)
			removed++
		}
	}
	for name, b := range h.topics {
		if b.subscriberCount() == 0 {
			delete(h.topics, name)
			removed++
		}
	}

	if removed > 0 {
		h.log.Debug().Int("removed", removed).Msg("Reclaimed idle stream channels")
	}
}

// ChannelCounts returns the current number of user and topic channels.
func (h *Hub) ChannelCounts() (users, topics int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users), len(h.topics)
}
