package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pushbin/pushbin-server/internal/message"
)

// Dispatcher fires outgoing webhooks for published topic messages. Failures
// never surface to the publisher; they are logged and retried up to the
// config's retry budget, then dropped.
type Dispatcher struct {
	repo   Repository
	client *http.Client
	log    zerolog.Logger

	// lifecycle bounds the delivery goroutines. Shutdown cancels it, which
	// abandons in-flight retries.
	lifecycle context.Context
	cancel    context.CancelFunc
}

// NewDispatcher creates an outgoing webhook dispatcher.
func NewDispatcher(repo Repository, logger zerolog.Logger) *Dispatcher {
	lifecycle, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		repo:      repo,
		client:    &http.Client{Timeout: 15 * time.Second},
		log:       logger.With().Str("component", "webhook-dispatcher").Logger(),
		lifecycle: lifecycle,
		cancel:    cancel,
	}
}

// Shutdown abandons all in-flight deliveries and retries.
func (d *Dispatcher) Shutdown() {
	d.cancel()
}

// Fire looks up the enabled outgoing configs targeting the topic and delivers
// the message view to each in its own goroutine. It returns immediately.
func (d *Dispatcher) Fire(ctx context.Context, topicName string, view message.View) {
	configs, err := d.repo.ListOutgoingForTopic(ctx, topicName)
	if err != nil {
		d.log.Error().Err(err).Str("topic", topicName).Msg("Failed to query outgoing webhooks")
		return
	}

	for _, cfg := range configs {
		if cfg.TargetURL == nil || *cfg.TargetURL == "" {
			d.log.Warn().Int64("webhook_id", cfg.ID).Msg("Outgoing webhook has no target URL")
			continue
		}
		go d.deliver(d.lifecycle, cfg, view)
	}
}

// deliver sends one webhook call, retrying on non-2xx or transport failure
// with the config's fixed delay. In-flight retries are abandoned when ctx is
// cancelled at shutdown.
func (d *Dispatcher) deliver(ctx context.Context, cfg Config, view message.View) {
	body := RenderBody(cfg.BodyTemplate, view)
	method := normalizeMethod(cfg.HTTPMethod)

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		status, err := d.send(ctx, cfg, method, body)
		if err == nil && status >= 200 && status < 300 {
			d.log.Info().Int64("webhook_id", cfg.ID).Str("url", *cfg.TargetURL).
				Int("attempt", attempt+1).Msg("Outgoing webhook delivered")
			return
		}

		event := d.log.Warn().Int64("webhook_id", cfg.ID).Str("url", *cfg.TargetURL).
			Int("attempt", attempt+1).Int("max_attempts", cfg.MaxRetries+1)
		if err != nil {
			event.Err(err)
		} else {
			event.Int("status", status)
		}
		event.Msg("Outgoing webhook attempt failed")

		if attempt < cfg.MaxRetries {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(cfg.RetryDelaySecs) * time.Second):
			}
		}
	}

	d.log.Error().Int64("webhook_id", cfg.ID).Str("url", *cfg.TargetURL).
		Msg("Outgoing webhook exhausted all retries")
}

func (d *Dispatcher) send(ctx context.Context, cfg Config, method, body string) (int, error) {
	var reader io.Reader
	if method != http.MethodGet {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, *cfg.TargetURL, reader)
	if err != nil {
		return 0, err
	}

	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/json")
	}
	if cfg.Headers != nil {
		var headers map[string]string
		if err := json.Unmarshal([]byte(*cfg.Headers), &headers); err == nil {
			for k, v := range headers {
				req.Header.Set(k, v)
			}
		}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// RenderBody substitutes the template placeholders with values from the
// message view. A nil template produces the full message JSON.
func RenderBody(tmpl *string, view message.View) string {
	viewJSON, err := json.Marshal(view)
	if err != nil {
		viewJSON = []byte("{}")
	}

	if tmpl == nil || *tmpl == "" {
		return string(viewJSON)
	}

	title := ""
	if view.Title != nil {
		title = *view.Title
	}
	topicName := ""
	if view.Topic != nil {
		topicName = *view.Topic
	}

	r := strings.NewReplacer(
		"{{message}}", view.Message,
		"{{title}}", title,
		"{{topic}}", topicName,
		"{{priority}}", strconv.Itoa(view.Priority),
		"{{json}}", string(viewJSON),
	)
	return r.Replace(*tmpl)
}

// normalizeMethod restricts the configured HTTP method to the supported set,
// defaulting to POST.
func normalizeMethod(method string) string {
	switch strings.ToUpper(method) {
	case http.MethodGet:
		return http.MethodGet
	case http.MethodPut:
		return http.MethodPut
	case http.MethodPatch:
		return http.MethodPatch
	default:
		return http.MethodPost
	}
}
