package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pushbin/pushbin-server/internal/message"
)

func testHub() *Hub {
	return NewHub(zerolog.Nop())
}

func view(id int64, text string) message.View {
	return message.View{ID: id, Message: text, Priority: 5}
}

func receiveOne(t *testing.T, sub *Subscription) (message.View, uint64) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, lagged, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	return v, lagged
}

func TestSubscribeThenBroadcast(t *testing.T) {
	t.Parallel()
	h := testHub()

	sub := h.SubscribeTopic("alerts.cpu")
	defer sub.Close()

	h.BroadcastToTopic("alerts.cpu", view(1, "spike"))

	v, lagged := receiveOne(t, sub)
	if v.Message != "spike" || v.ID != 1 {
		t.Errorf("received %+v, want id=1 message=spike", v)
	}
	if lagged != 0 {
		t.Errorf("lagged = %d, want 0", lagged)
	}
}

func TestBroadcastToUserKeyedSeparately(t *testing.T) {
	t.Parallel()
	h := testHub()

	userSub := h.SubscribeUser(7)
	defer userSub.Close()
	topicSub := h.SubscribeTopic("alerts")
	defer topicSub.Close()

	h.BroadcastToUser(7, view(1, "for-user"))

	v, _ := receiveOne(t, userSub)
	if v.Message != "for-user" {
		t.Errorf("user subscriber received %q, want for-user", v.Message)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, _, err := topicSub.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("topic subscriber received a user broadcast, err = %v", err)
	}
}

func TestBroadcastWithoutSubscribersDoesNotBlock(t *testing.T) {
	t.Parallel()
	h := testHub()

	done := make(chan struct{})
	go func() {
		h.BroadcastToTopic("nobody.listening", view(1, "x"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast to an empty topic blocked")
	}
}

func TestFIFOOrderWithinKey(t *testing.T) {
	t.Parallel()
	h := testHub()

	sub := h.SubscribeTopic("t")
	defer sub.Close()

	for i := int64(1); i <= 10; i++ {
		h.BroadcastToTopic("t", view(i, "m"))
	}

	for i := int64(1); i <= 10; i++ {
		v, _ := receiveOne(t, sub)
		if v.ID != i {
			t.Fatalf("frame %d has id %d, want %d", i, v.ID, i)
		}
	}
}

func TestSlowSubscriberLagsAndResumes(t *testing.T) {
	t.Parallel()
	h := testHub()

	sub := h.SubscribeTopic("firehose")
	defer sub.Close()

	const published = bufferSize + 50
	for i := int64(1); i <= published; i++ {
		h.BroadcastToTopic("firehose", view(i, "m"))
	}

	v, lagged := receiveOne(t, sub)
	if lagged != 50 {
		t.Errorf("lagged = %d, want 50", lagged)
	}
	if v.ID != 51 {
		t.Errorf("first frame after lag has id %d, want 51 (oldest surviving)", v.ID)
	}

	// The consumer resumes and drains the rest without further lag.
	for i := int64(52); i <= published; i++ {
		v, lagged := receiveOne(t, sub)
		if lagged != 0 {
			t.Fatalf("unexpected lag %d at frame %d", lagged, i)
		}
		if v.ID != i {
			t.Fatalf("frame has id %d, want %d", v.ID, i)
		}
	}
}

func TestPublisherNeverBlocksOnSlowSubscriber(t *testing.T) {
	t.Parallel()
	h := testHub()

	sub := h.SubscribeTopic("t")
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		for i := int64(0); i < 5*bufferSize; i++ {
			h.BroadcastToTopic("t", view(i, "m"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}
}

func TestSweepReclaimsIdleChannels(t *testing.T) {
	t.Parallel()
	h := testHub()

	active := h.SubscribeTopic("active")
	defer active.Close()

	idle := h.SubscribeTopic("idle")
	idle.Close()
	h.SubscribeUser(3).Close()

	h.Sweep()

	users, topics := h.ChannelCounts()
	if users != 0 {
		t.Errorf("user channels after sweep = %d, want 0", users)
	}
	if topics != 1 {
		t.Errorf("topic channels after sweep = %d, want 1 (the active one)", topics)
	}

	// A channel with a live receiver keeps working after the sweep.
	h.BroadcastToTopic("active", view(1, "still-alive"))
	v, _ := receiveOne(t, active)
	if v.Message != "still-alive" {
		t.Errorf("received %q after sweep, want still-alive", v.Message)
	}
}

func TestNextAfterClose(t *testing.T) {
	t.Parallel()
	h := testHub()

	sub := h.SubscribeTopic("t")
	sub.Close()

	_, _, err := sub.Next(context.Background())
	if !errors.Is(err, ErrClosed) {
		t.Errorf("Next() after Close error = %v, want ErrClosed", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()
	h := testHub()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not exit promptly on cancellation")
	}
}
