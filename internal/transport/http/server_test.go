package http

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirechat-notify/internal/auth"
	"github.com/vovakirdan/wirechat-notify/internal/config"
	"github.com/vovakirdan/wirechat-notify/internal/core"
)

func testJWTConfig() *auth.JWTConfig {
	return &auth.JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "chat_server",
		Audience: "chat_web",
		TTL:      time.Hour,
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *core.Registry, *auth.JWTConfig) {
	t.Helper()

	registry := core.NewRegistry(16, false)
	jwtConfig := testJWTConfig()
	logger := zerolog.Nop()

	cfg := config.Default()
	cfg.Heartbeat = 50 * time.Millisecond

	server := NewServer(registry, auth.NewVerifier(jwtConfig), cfg, &logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return ts, registry, jwtConfig
}

func newTestRouter(registry *core.Registry) *core.Router {
	logger := zerolog.Nop()
	return core.NewRouter(registry, &logger)
}

func mintToken(t *testing.T, cfg *auth.JWTConfig, userID uint64) string {
	t.Helper()

	token, err := auth.GenerateToken(cfg, userID, "Test User", "test@example.com")
	require.NoError(t, err)
	return token
}

// openStream connects to /events and returns a line channel fed by a
// reader goroutine, so tests can wait on frames with a timeout. The
// returned func closes the client side of the stream.
func openStream(t *testing.T, ts *httptest.Server, token string) (<-chan string, func()) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events?token="+url.QueryEscape(token), nil)
	require.NoError(t, err)

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if line := scanner.Text(); line != "" {
				lines <- line
			}
		}
	}()
	return lines, cancel
}

// waitForLine reads lines until one satisfies match or the timeout hits.
func waitForLine(t *testing.T, lines <-chan string, match func(string) bool) string {
	t.Helper()

	deadline := time.After(3 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatal("stream closed before expected line arrived")
			}
			if match(line) {
				return line
			}
		case <-deadline:
			t.Fatal("timed out waiting for stream line")
		}
	}
}

// waitForSubscriber blocks until the user's stream is attached, so a
// publish afterwards is guaranteed to land after the subscribe.
func waitForSubscriber(t *testing.T, registry *core.Registry, userID uint64) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if registry.Subscribers(userID) > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("subscriber never attached")
}

func TestHealthEndpoint(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIndexPageServed(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

func TestStreamRejectsMissingCredentials(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStreamRejectsMalformedAuthHeader(t *testing.T) {
	ts, _, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/events", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStreamRejectsInvalidToken(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/events?token=definitely-not-a-jwt")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestStreamRejectionCreatesNoSubscription(t *testing.T) {
	ts, registry, _ := newTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/events?token=bad")
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, 0, registry.Subscribers(1))
}

func TestStreamAcceptsBearerHeader(t *testing.T) {
	ts, registry, jwtConfig := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, jwtConfig, 7))

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	waitForSubscriber(t, registry, 7)
}
