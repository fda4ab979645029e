package push

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestForwardDeliversBody(t *testing.T) {
	t.Parallel()

	received := make(chan []byte, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received <- body
	}))
	defer srv.Close()

	f := NewForwarder(zerolog.Nop())
	f.Forward(context.Background(), &Registration{Endpoint: srv.URL}, []byte("push-payload"))

	select {
	case body := <-received:
		assert.Equal(t, "push-payload", string(body))
	case <-time.After(2 * time.Second):
		t.Fatal("body was not forwarded")
	}
}

func TestForwardSwallowsTransportErrors(t *testing.T) {
	t.Parallel()

	f := NewForwarder(zerolog.Nop())
	// Nothing listens here; Forward must not panic or block beyond its timeout.
	f.Forward(context.Background(), &Registration{Endpoint: "http://127.0.0.1:1"}, []byte("x"))
}
