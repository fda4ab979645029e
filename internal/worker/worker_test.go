package worker

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushbin/pushbin-server/internal/attachment"
	"github.com/pushbin/pushbin-server/internal/message"
	"github.com/pushbin/pushbin-server/internal/ratelimit"
	"github.com/pushbin/pushbin-server/internal/storage"
	"github.com/pushbin/pushbin-server/internal/stream"
	"github.com/pushbin/pushbin-server/internal/topic"
	"github.com/pushbin/pushbin-server/internal/webhook"
)

// fakeMessages returns a fixed claim batch once, then nothing.
type fakeMessages struct {
	message.Repository
	mu      sync.Mutex
	claim   []message.Message
	claimed bool
}

func (f *fakeMessages) ClaimScheduled(_ context.Context) ([]message.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimed {
		return nil, nil
	}
	f.claimed = true
	return f.claim, nil
}

func (f *fakeMessages) DeleteExpired(_ context.Context) (int64, error) { return 0, nil }

type fakeTopics struct {
	topic.Repository
	byID map[int64]*topic.Topic
}

func (f *fakeTopics) GetByID(_ context.Context, id int64) (*topic.Topic, error) {
	t, ok := f.byID[id]
	if !ok {
		return nil, topic.ErrNotFound
	}
	return t, nil
}

type fakeAttachments struct {
	attachment.Repository
	mu      sync.Mutex
	expired []attachment.Attachment
	deleted []int64
}

func (f *fakeAttachments) ListExpired(_ context.Context) ([]attachment.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.expired, nil
}

func (f *fakeAttachments) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

// recordingStorage implements storage.Provider and records deletions.
type recordingStorage struct {
	mu      sync.Mutex
	deleted []string
}

func (r *recordingStorage) Put(context.Context, string, io.Reader) error { return nil }

func (r *recordingStorage) Get(context.Context, string) (io.ReadCloser, error) {
	return nil, storage.ErrKeyNotFound
}

func (r *recordingStorage) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, key)
	return nil
}

type emptyWebhookRepo struct{ webhook.Repository }

func (emptyWebhookRepo) ListOutgoingForTopic(context.Context, string) ([]webhook.Config, error) {
	return nil, nil
}

func newTestRunner(msgs *fakeMessages, topics *fakeTopics, atts *fakeAttachments, store *recordingStorage) (*Runner, *stream.Hub) {
	hub := stream.NewHub(zerolog.Nop())
	dispatcher := webhook.NewDispatcher(emptyWebhookRepo{}, zerolog.Nop())
	limiter := ratelimit.New(10, 10)
	return NewRunner(msgs, atts, topics, hub, dispatcher, limiter, store, zerolog.Nop()), hub
}

func TestDeliverScheduledBroadcastsClaimedMessages(t *testing.T) {
	t.Parallel()

	topicID := int64(3)
	userID := int64(7)
	now := time.Now()
	msgs := &fakeMessages{claim: []message.Message{
		{ID: 1, TopicID: &topicID, UserID: &userID, Message: "due", Priority: 5, CreatedAt: now},
		{ID: 2, UserID: &userID, Message: "app-due", Priority: 5, CreatedAt: now},
	}}
	topics := &fakeTopics{byID: map[int64]*topic.Topic{3: {ID: 3, Name: "alerts.cpu"}}}

	runner, hub := newTestRunner(msgs, topics, &fakeAttachments{}, &recordingStorage{})

	topicSub := hub.SubscribeTopic("alerts.cpu")
	defer topicSub.Close()
	userSub := hub.SubscribeUser(7)
	defer userSub.Close()

	require.NoError(t, runner.deliverScheduled(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	v, _, err := topicSub.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "due", v.Message)
	require.NotNil(t, v.Topic)
	assert.Equal(t, "alerts.cpu", *v.Topic)

	v, _, err = userSub.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "app-due", v.Message)
}

func TestDeliverScheduledClaimsOnlyOnce(t *testing.T) {
	t.Parallel()

	userID := int64(7)
	msgs := &fakeMessages{claim: []message.Message{
		{ID: 1, UserID: &userID, Message: "once", Priority: 5, CreatedAt: time.Now()},
	}}

	runner, hub := newTestRunner(msgs, &fakeTopics{}, &fakeAttachments{}, &recordingStorage{})

	sub := hub.SubscribeUser(7)
	defer sub.Close()

	require.NoError(t, runner.deliverScheduled(context.Background()))
	require.NoError(t, runner.deliverScheduled(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, _, err := sub.Next(ctx)
	require.NoError(t, err)

	shortCtx, shortCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer shortCancel()
	_, _, err = sub.Next(shortCtx)
	assert.Error(t, err, "the second sweep must not deliver the row again")
}

func TestReapAttachmentsDeletesFileThenRow(t *testing.T) {
	t.Parallel()

	atts := &fakeAttachments{expired: []attachment.Attachment{
		{ID: 11, StorageType: storage.TypeLocal, StoragePath: "aaaa_file.bin"},
	}}
	store := &recordingStorage{}

	runner, _ := newTestRunner(&fakeMessages{}, &fakeTopics{}, atts, store)
	require.NoError(t, runner.reapAttachments(context.Background()))

	store.mu.Lock()
	assert.Equal(t, []string{"aaaa_file.bin"}, store.deleted)
	store.mu.Unlock()

	atts.mu.Lock()
	assert.Equal(t, []int64{11}, atts.deleted)
	atts.mu.Unlock()
}

func TestStartStopsPromptlyOnCancel(t *testing.T) {
	t.Parallel()

	runner, _ := newTestRunner(&fakeMessages{}, &fakeTopics{}, &fakeAttachments{}, &recordingStorage{})

	ctx, cancel := context.WithCancel(context.Background())
	runner.Start(ctx)

	done := make(chan struct{})
	go func() {
		cancel()
		time.Sleep(50 * time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("workers did not stop promptly")
	}
}
