// Package worker runs the background loops: scheduled message delivery,
// message and attachment expiry, and rate-limit bucket sweeping.
package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/pushbin/pushbin-server/internal/attachment"
	"github.com/pushbin/pushbin-server/internal/message"
	"github.com/pushbin/pushbin-server/internal/ratelimit"
	"github.com/pushbin/pushbin-server/internal/storage"
	"github.com/pushbin/pushbin-server/internal/stream"
	"github.com/pushbin/pushbin-server/internal/topic"
	"github.com/pushbin/pushbin-server/internal/webhook"
)

// Loop periods. The scheduled loop is tight so delayed messages land close to
// their due time; the reapers are cheap full-table deletes and run slowly.
const (
	scheduledInterval        = 10 * time.Second
	messageExpiryInterval    = 300 * time.Second
	attachmentExpiryInterval = 3600 * time.Second
	rateLimitSweepInterval   = 300 * time.Second
)

// Runner owns the worker goroutines. All loops share one cancellation context
// and exit promptly when it is cancelled.
type Runner struct {
	messages    message.Repository
	attachments attachment.Repository
	topics      topic.Repository
	hub         *stream.Hub
	dispatcher  *webhook.Dispatcher
	limiter     *ratelimit.Limiter
	storage     storage.Provider
	log         zerolog.Logger
}

// NewRunner creates a worker runner.
func NewRunner(
	messages message.Repository,
	attachments attachment.Repository,
	topics topic.Repository,
	hub *stream.Hub,
	dispatcher *webhook.Dispatcher,
	limiter *ratelimit.Limiter,
	store storage.Provider,
	logger zerolog.Logger,
) *Runner {
	return &Runner{
		messages:    messages,
		attachments: attachments,
		topics:      topics,
		hub:         hub,
		dispatcher:  dispatcher,
		limiter:     limiter,
		storage:     store,
		log:         logger.With().Str("component", "worker").Logger(),
	}
}

// Start launches all worker loops. They stop when ctx is cancelled.
func (r *Runner) Start(ctx context.Context) {
	go r.loop(ctx, "scheduled-delivery", scheduledInterval, r.deliverScheduled)
	go r.loop(ctx, "message-expiry", messageExpiryInterval, r.reapMessages)
	go r.loop(ctx, "attachment-expiry", attachmentExpiryInterval, r.reapAttachments)
	go r.loop(ctx, "ratelimit-sweep", rateLimitSweepInterval, func(context.Context) error {
		r.limiter.Sweep()
		return nil
	})
}

// loop runs fn every interval until ctx is cancelled. Errors are logged; the
// loop keeps running.
func (r *Runner) loop(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) {
	r.log.Info().Str("worker", name).Dur("interval", interval).Msg("Worker started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Str("worker", name).Msg("Worker shutting down")
			return
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				r.log.Error().Err(err).Str("worker", name).Msg("Worker iteration failed")
			}
		}
	}
}

// deliverScheduled atomically claims every due scheduled message and fans each
// one out. The claim statement stamps delivered_at in one round trip, so a row
// is delivered at most once even with several workers racing.
func (r *Runner) deliverScheduled(ctx context.Context) error {
	claimed, err := r.messages.ClaimScheduled(ctx)
	if err != nil {
		return err
	}

	for i := range claimed {
		m := &claimed[i]

		topicName := ""
		if m.TopicID != nil {
			t, err := r.topics.GetByID(ctx, *m.TopicID)
			if err != nil {
				r.log.Warn().Err(err).Int64("message_id", m.ID).Msg("Failed to resolve topic for scheduled message")
				continue
			}
			topicName = t.Name
		}

		view := m.ToView(topicName)
		if topicName != "" {
			r.hub.BroadcastToTopic(topicName, view)
			r.dispatcher.Fire(ctx, topicName, view)
		} else if m.UserID != nil {
			r.hub.BroadcastToUser(*m.UserID, view)
		}

		r.log.Info().Int64("message_id", m.ID).Msg("Delivered scheduled message")
	}

	return nil
}

// reapMessages deletes messages whose expiry has passed.
func (r *Runner) reapMessages(ctx context.Context) error {
	deleted, err := r.messages.DeleteExpired(ctx)
	if err != nil {
		return err
	}
	if deleted > 0 {
		r.log.Info().Int64("deleted", deleted).Msg("Reaped expired messages")
	}
	return nil
}

// reapAttachments deletes expired attachments, removing the stored file before
// the row. File deletion is best-effort; a failure is logged and the row is
// removed anyway so the reaper does not retry forever.
func (r *Runner) reapAttachments(ctx context.Context) error {
	expired, err := r.attachments.ListExpired(ctx)
	if err != nil {
		return err
	}

	for i := range expired {
		a := &expired[i]
		if a.StorageType == storage.TypeLocal {
			if err := r.storage.Delete(ctx, a.StoragePath); err != nil {
				r.log.Warn().Err(err).Str("path", a.StoragePath).Msg("Failed to delete attachment file")
			}
		}
		if err := r.attachments.Delete(ctx, a.ID); err != nil {
			r.log.Warn().Err(err).Int64("attachment_id", a.ID).Msg("Failed to delete attachment row")
			continue
		}
		r.log.Info().Int64("attachment_id", a.ID).Msg("Reaped expired attachment")
	}

	return nil
}
