package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/rs/zerolog"

	"github.com/pushbin/pushbin-server/internal/stream"
)

// writeWait is the time allowed to write a frame to a streaming peer.
const writeWait = 10 * time.Second

// serveSubscription forwards fan-out frames to a WebSocket until the peer
// disconnects. Each view is one text frame of JSON. Ping frames are answered
// with pongs by the connection's default ping handler; a lagged subscription
// skips the discarded frames and resumes at the oldest frame still buffered.
func serveSubscription(conn *websocket.Conn, sub *stream.Subscription, log zerolog.Logger) {
	defer func() {
		sub.Close()
		_ = conn.Close()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The read loop exists to process control frames and to detect the close
	// handshake; data frames from subscribers are ignored.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		view, lagged, err := sub.Next(ctx)
		if err != nil {
			return
		}
		if lagged > 0 {
			log.Debug().Uint64("skipped", lagged).Msg("Slow stream consumer skipped frames")
		}

		payload, err := json.Marshal(view)
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal stream frame")
			continue
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
