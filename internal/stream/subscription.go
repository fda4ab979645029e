package stream

import (
	"context"
	"errors"
	"sync"

	"github.com/pushbin/pushbin-server/internal/message"
)

// ErrClosed is returned by Next after the subscription has been closed.
var ErrClosed = errors.New("subscription closed")

// broadcaster is the sending end of one channel: a set of subscriptions that
// every published view is offered to.
type broadcaster struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[*Subscription]struct{})}
}

func (b *broadcaster) subscribe() *Subscription {
	sub := &Subscription{
		notify: make(chan struct{}, 1),
	}
	sub.unsubscribe = func() {
		b.mu.Lock()
		delete(b.subs, sub)
		b.mu.Unlock()
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

func (b *broadcaster) publish(view message.View) {
	b.mu.Lock()
	targets := make([]*Subscription, 0, len(b.subs))
	for sub := range b.subs {
		targets = append(targets, sub)
	}
	b.mu.Unlock()

	for _, sub := range targets {
		sub.push(view)
	}
}

func (b *broadcaster) subscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Subscription is the receiving end of a broadcast channel. It buffers up to
// bufferSize views; when the buffer is full the oldest view is discarded and
// the lag counter advances, so a slow consumer resumes at the newest frames
// instead of disconnecting. Publishers never block on a subscription.
type Subscription struct {
	mu          sync.Mutex
	buf         []message.View
	dropped     uint64
	closed      bool
	notify      chan struct{}
	unsubscribe func()
}

// push appends a view to the buffer, discarding the oldest entry when full.
func (s *Subscription) push(view message.View) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if len(s.buf) >= bufferSize {
		s.buf = s.buf[1:]
		s.dropped++
	}
	s.buf = append(s.buf, view)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Next blocks until a view is available, the subscription is closed, or ctx is
// done. The returned lag count is the number of views discarded since the
// previous call; a non-zero value tells the consumer it skipped frames.
func (s *Subscription) Next(ctx context.Context) (message.View, uint64, error) {
	for {
		s.mu.Lock()
		if len(s.buf) > 0 {
			view := s.buf[0]
			s.buf = s.buf[1:]
			lagged := s.dropped
			s.dropped = 0
			s.mu.Unlock()
			return view, lagged, nil
		}
		closed := s.closed
		s.mu.Unlock()

		if closed {
			return message.View{}, 0, ErrClosed
		}

		select {
		case <-ctx.Done():
			return message.View{}, 0, ctx.Err()
		case <-s.notify:
		}
	}
}

// Close detaches the subscription from its broadcaster. After Close, Next
// drains nothing and returns ErrClosed.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.buf = nil
	s.mu.Unlock()

	s.unsubscribe()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}
