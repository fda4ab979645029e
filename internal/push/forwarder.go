package push

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Forwarder relays opaque push bodies to registered device endpoints. Delivery
// is best-effort: transport failures are logged and swallowed so the relay
// caller always gets an acknowledgement.
type Forwarder struct {
	client *http.Client
	log    zerolog.Logger
}

// NewForwarder creates a push forwarder with a 10-second delivery timeout.
func NewForwarder(logger zerolog.Logger) *Forwarder {
	return &Forwarder{
		client: &http.Client{Timeout: 10 * time.Second},
		log:    logger.With().Str("component", "push-forwarder").Logger(),
	}
}

// Forward POSTs the body to the registration's endpoint.
func (f *Forwarder) Forward(ctx context.Context, reg *Registration, body []byte) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reg.Endpoint, bytes.NewReader(body))
	if err != nil {
		f.log.Warn().Err(err).Str("endpoint", reg.Endpoint).Msg("Failed to build push forward request")
		return
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.log.Warn().Err(err).Str("endpoint", reg.Endpoint).Msg("Push forward failed")
		return
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	f.log.Debug().Str("endpoint", reg.Endpoint).Int("status", resp.StatusCode).Msg("Push forwarded")
}
