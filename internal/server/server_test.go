// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/doubtbot/internal/conversation"
	"github.com/jeranaias/doubtbot/internal/telemetry"
)

func echo(reply string, err error) conversation.Generator {
	return conversation.GeneratorFunc(func(context.Context, string) (string, error) {
		return reply, err
	})
}

func quietServer(gen conversation.Generator) *Server {
	return NewServer("", gen).WithLogger(log.New(io.Discard, "", 0))
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// =============================================================================
// CHAT
// =============================================================================

func TestChat_Success(t *testing.T) {
	var got string
	gen := conversation.GeneratorFunc(func(_ context.Context, prompt string) (string, error) {
		got = prompt
		return "**Hi** <there>", nil
	})
	h := quietServer(gen).WithModel("gemini-2.0-flash").Handler()

	rec := do(t, h, http.MethodPost, "/api/chat", `{"prompt":"  Hello  "}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Hello", got)
	assert.Equal(t, "**Hi** <there>", resp.Reply)
	assert.Equal(t, "<strong>Hi</strong> &lt;there&gt;", resp.HTML)
	assert.False(t, resp.Failed)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "gemini-2.0-flash", resp.Model)
}

func TestChat_FailureReturnsFallback(t *testing.T) {
	h := quietServer(echo("", errors.New("upstream down"))).Handler()

	rec := do(t, h, http.MethodPost, "/api/chat", `{"prompt":"Hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Failed)
	assert.Equal(t, conversation.FallbackReply, resp.Reply)
	assert.Equal(t, "Sorry, I encountered an error. Please try again.", resp.HTML)
}

func TestChat_BadRequests(t *testing.T) {
	h := quietServer(echo("ok", nil)).Handler()

	tests := []struct {
		name string
		body string
	}{
		{"empty prompt", `{"prompt":"   "}`},
		{"malformed", `{"prompt":`},
		{"unknown field", `{"prompt":"x","stream":true}`},
		{"too long", `{"prompt":"` + strings.Repeat("a", MaxPromptLength+1) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/chat", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"invalid_request"`)
		})
	}
}

func TestChat_MethodNotAllowed(t *testing.T) {
	rec := do(t, quietServer(echo("ok", nil)).Handler(), http.MethodGet, "/api/chat", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestChat_RecordsUsage(t *testing.T) {
	store, err := telemetry.Open(filepath.Join(t.TempDir(), "usage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := quietServer(echo("", context.DeadlineExceeded)).
		WithModel("gemini-2.5-pro").
		WithTelemetry(store, store).
		Handler()

	rec := do(t, h, http.MethodPost, "/api/chat", `{"prompt":"Hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rows, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "gemini-2.5-pro", rows[0].Model)
	assert.Equal(t, telemetry.OutcomeFailed, rows[0].Outcome)
	assert.Equal(t, "timeout", rows[0].ErrorKind)

	rec = do(t, h, http.MethodGet, "/api/stats?since=1h", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Requests)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.ByErrorKind["timeout"])
}

// =============================================================================
// FORMAT, STATS, HEALTH
// =============================================================================

func TestFormat(t *testing.T) {
	h := quietServer(echo("", nil)).Handler()

	rec := do(t, h, http.MethodPost, "/api/format", `{"text":"# Title\n\nuse `+"`go test`"+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp FormatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, `<h1>Title</h1><br/><br/>use <code class="code-inline">go test</code>`, resp.HTML)
}

func TestStats_Disabled(t *testing.T) {
	rec := do(t, quietServer(echo("", nil)).Handler(), http.MethodGet, "/api/stats", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStats_BadSince(t *testing.T) {
	store, err := telemetry.Open(filepath.Join(t.TempDir(), "usage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := quietServer(echo("", nil)).WithTelemetry(nil, store).Handler()
	rec := do(t, h, http.MethodGet, "/api/stats?since=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	rec := do(t, quietServer(echo("", nil)).WithModel("m").Handler(), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, Version, resp.Version)
	assert.Equal(t, "m", resp.Model)
	assert.False(t, resp.Telemetry)
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func TestSecurityHeaders(t *testing.T) {
	rec := do(t, quietServer(echo("", nil)).Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestBodyLimit(t *testing.T) {
	h := quietServer(echo("ok", nil)).WithMaxBodyBytes(64).Handler()

	body := `{"prompt":"` + strings.Repeat("x", 100) + `"}`
	rec := do(t, h, http.MethodPost, "/api/chat", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	// Without a Content-Length the reader enforces the limit.
	req := httptest.NewRequest(http.MethodPost, "/api/format", io.MultiReader(bytes.NewBufferString(body)))
	req.ContentLength = -1
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRateLimit(t *testing.T) {
	srv := quietServer(echo("", nil)).WithRateLimit(0.001, 2)
	t.Cleanup(srv.limiter.Stop)
	h := srv.Handler()

	for i := 0; i < 2; i++ {
		rec := do(t, h, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}

	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimiter_PerIP(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))
	assert.Equal(t, 0, rl.Remaining("10.0.0.1"))
	assert.GreaterOrEqual(t, rl.RetryAfter("10.0.0.1"), 1)
}

func TestRecovery(t *testing.T) {
	h := Chain(RecoveryMiddleware())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(mw("a"), mw("b"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}))
	do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, []string{"a", "b", "handler"}, order)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"direct", "203.0.113.7:4000", "", "203.0.113.7"},
		{"untrusted proxy ignored", "203.0.113.7:4000", "198.51.100.1", "203.0.113.7"},
		{"trusted proxy", "127.0.0.1:4000", "198.51.100.1, 10.0.0.1", "198.51.100.1"},
		{"invalid forwarded", "127.0.0.1:4000", "not-an-ip", "127.0.0.1"},
		{"mapped loopback proxy", "[::ffff:127.0.0.1]:4000", "198.51.100.1", "198.51.100.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, GetClientIP(req))
		})
	}
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestServe_GracefulShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := quietServer(echo("pong", nil))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln, 2*time.Second) }()

	url := "http://" + ln.Addr().String() + "/api/chat"
	require.Eventually(t, func() bool {
		resp, err := http.Post(url, "application/json", strings.NewReader(`{"prompt":"ping"}`))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServe_StopsOnShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := quietServer(echo("pong", nil))
	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background(), ln, time.Second) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return true
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, srv.Shutdown(context.Background()))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}
}
