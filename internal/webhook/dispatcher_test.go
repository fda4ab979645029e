package webhook

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticRepo serves a fixed config list for dispatcher tests.
type staticRepo struct {
	Repository
	configs []Config
}

func (r *staticRepo) ListOutgoingForTopic(_ context.Context, _ string) ([]Config, error) {
	return r.configs, nil
}

func outgoingConfig(url string, retries, delaySecs int) Config {
	body := `{"text":"{{message}}"}`
	return Config{
		ID:             1,
		Direction:      DirectionOutgoing,
		Enabled:        true,
		TargetURL:      &url,
		HTTPMethod:     "POST",
		BodyTemplate:   &body,
		MaxRetries:     retries,
		RetryDelaySecs: delaySecs,
	}
}

func TestDispatcherDelivers(t *testing.T) {
	t.Parallel()

	received := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received <- string(body)
	}))
	defer srv.Close()

	d := NewDispatcher(&staticRepo{configs: []Config{outgoingConfig(srv.URL, 0, 0)}}, zerolog.Nop())
	d.Fire(context.Background(), "alerts.cpu", testView())

	select {
	case body := <-received:
		assert.Equal(t, `{"text":"spike"}`, body)
	case <-time.After(2 * time.Second):
		t.Fatal("webhook was not delivered")
	}
}

func TestDispatcherSetsHeadersAndContentType(t *testing.T) {
	t.Parallel()

	headers := make(chan http.Header, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
	}))
	defer srv.Close()

	custom := `{"X-Custom":"yes"}`
	cfg := outgoingConfig(srv.URL, 0, 0)
	cfg.Headers = &custom

	d := NewDispatcher(&staticRepo{configs: []Config{cfg}}, zerolog.Nop())
	d.Fire(context.Background(), "alerts.cpu", testView())

	select {
	case h := <-headers:
		assert.Equal(t, "application/json", h.Get("Content-Type"))
		assert.Equal(t, "yes", h.Get("X-Custom"))
	case <-time.After(2 * time.Second):
		t.Fatal("webhook was not delivered")
	}
}

func TestDispatcherRetriesOnFailure(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
	}))
	defer srv.Close()

	d := NewDispatcher(&staticRepo{configs: []Config{outgoingConfig(srv.URL, 5, 0)}}, zerolog.Nop())
	d.Fire(context.Background(), "alerts.cpu", testView())

	require.Eventually(t, func() bool { return calls.Load() == 3 }, 3*time.Second, 10*time.Millisecond,
		"delivery should succeed on the third attempt and stop retrying")

	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 3, calls.Load(), "no further attempts after success")
}

func TestDispatcherGivesUpAfterMaxRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewDispatcher(&staticRepo{configs: []Config{outgoingConfig(srv.URL, 2, 0)}}, zerolog.Nop())
	d.Fire(context.Background(), "alerts.cpu", testView())

	require.Eventually(t, func() bool { return calls.Load() == 3 }, 3*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 3, calls.Load(), "1 attempt + 2 retries, then drop")
}

func TestDispatcherAbandonsRetriesOnShutdown(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewDispatcher(&staticRepo{configs: []Config{outgoingConfig(srv.URL, 10, 30)}}, zerolog.Nop())
	d.Fire(context.Background(), "alerts.cpu", testView())

	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	d.Shutdown()

	time.Sleep(100 * time.Millisecond)
	assert.EqualValues(t, 1, calls.Load(), "cancellation must abandon the retry sleep")
}
