// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/doubtbot/internal/conversation"
	"github.com/jeranaias/doubtbot/internal/format"
	"github.com/jeranaias/doubtbot/internal/telemetry"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:8787"

	// DefaultMaxBodyBytes is the default request body limit.
	DefaultMaxBodyBytes = 64 * 1024

	// MaxPromptLength is the maximum prompt length in bytes after trimming.
	MaxPromptLength = 32 * 1024

	// Version is the API version reported by /health.
	Version = "1.0.0"
)

// ============================================================================
// COLLABORATORS
// ============================================================================

// StatsSource provides the usage summary for /api/stats.
type StatsSource interface {
	Summary(ctx context.Context, since time.Time) (telemetry.Summary, error)
}

// Recorder stores usage rows. *telemetry.Store satisfies both Recorder and
// StatsSource.
type Recorder = conversation.Recorder

// Classifier labels remote errors for telemetry.
type Classifier = conversation.Classifier

// ============================================================================
// SERVER
// ============================================================================

// Server is the HTTP API in front of the conversation core.
type Server struct {
	addr   string
	router *http.ServeMux
	server *http.Server

	gen       conversation.Generator
	modelID   string
	classify  Classifier
	recorder  Recorder
	stats     StatsSource
	formatter *format.Formatter
	limiter   *RateLimiter
	maxBody   int64
	logger    *log.Logger
	started   time.Time

	mu sync.RWMutex
}

// NewServer creates a server that answers prompts with gen.
// If addr is empty, DefaultAddr is used.
func NewServer(addr string, gen conversation.Generator) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	s := &Server{
		addr:      addr,
		router:    http.NewServeMux(),
		gen:       gen,
		classify:  conversation.DefaultClassifier,
		formatter: format.New(format.HTML, format.WithEscapedText(true)),
		maxBody:   DefaultMaxBodyBytes,
		logger:    log.Default(),
		started:   time.Now(),
	}
	s.setupRoutes()
	return s
}

// WithModel sets the model ID reported in responses and telemetry.
func (s *Server) WithModel(id string) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modelID = id
	return s
}

// WithClassifier sets the error classifier used for telemetry.
func (s *Server) WithClassifier(c Classifier) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c != nil {
		s.classify = c
	}
	return s
}

// WithTelemetry records usage to rec and serves /api/stats from stats.
// Either may be nil.
func (s *Server) WithTelemetry(rec Recorder, stats StatsSource) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorder = rec
	s.stats = stats
	return s
}

// WithFormatter replaces the formatter used for the "html" fields.
func (s *Server) WithFormatter(f *format.Formatter) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f != nil {
		s.formatter = f
	}
	return s
}

// WithRateLimit enables per-IP rate limiting.
func (s *Server) WithRateLimit(rps float64, burst int) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limiter = nil
	if rps > 0 {
		s.limiter = NewRateLimiter(rps, burst)
	}
	return s
}

// WithMaxBodyBytes sets the request body limit.
func (s *Server) WithMaxBodyBytes(n int64) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > 0 {
		s.maxBody = n
	}
	return s
}

// WithLogger sets the request logger.
func (s *Server) WithLogger(l *log.Logger) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l != nil {
		s.logger = l
	}
	return s
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// ============================================================================
// ROUTES
// ============================================================================

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("POST /api/chat", s.handleChat)
	s.router.HandleFunc("POST /api/format", s.handleFormat)
	s.router.HandleFunc("GET /api/stats", s.handleStats)
	s.router.HandleFunc("GET /health", s.handleHealth)
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()

	middlewares := []func(http.Handler) http.Handler{
		RecoveryMiddleware(),
		SecurityHeadersMiddleware(),
		LoggingMiddleware(s.logger),
	}
	if s.limiter != nil {
		middlewares = append(middlewares, RateLimitMiddleware(s.limiter))
	}
	middlewares = append(middlewares, BodyLimitMiddleware(s.maxBody))

	return Chain(middlewares...)(s.router)
}

// ============================================================================
// API TYPES
// ============================================================================

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Prompt string `json:"prompt"`
}

// ChatResponse is the reply to POST /api/chat. A failed remote call still
// yields 200 with the fallback text and Failed set.
type ChatResponse struct {
	ID        string `json:"id"`
	Reply     string `json:"reply"`
	HTML      string `json:"html"`
	Failed    bool   `json:"failed"`
	Model     string `json:"model,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

// FormatRequest is the body of POST /api/format.
type FormatRequest struct {
	Text string `json:"text"`
}

// FormatResponse is the reply to POST /api/format.
type FormatResponse struct {
	HTML string `json:"html"`
}

// HealthResponse is the reply to GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Model         string `json:"model,omitempty"`
	Telemetry     bool   `json:"telemetry"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// StatsResponse is the reply to GET /api/stats.
type StatsResponse struct {
	Since        time.Time      `json:"since"`
	Requests     int            `json:"requests"`
	Succeeded    int            `json:"succeeded"`
	Failed       int            `json:"failed"`
	SuccessRate  float64        `json:"success_rate"`
	AvgLatencyMs int64          `json:"avg_latency_ms"`
	MaxLatencyMs int64          `json:"max_latency_ms"`
	PromptChars  int64          `json:"prompt_chars"`
	ReplyChars   int64          `json:"reply_chars"`
	ByModel      map[string]int `json:"by_model"`
	ByErrorKind  map[string]int `json:"by_error_kind"`
}

// ============================================================================
// HANDLERS
// ============================================================================

// handleChat handles POST /api/chat. Each request runs in its own session;
// the API keeps no conversation state between requests.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !s.decode(w, r, &req) {
		return
	}

	prompt := conversation.NormalizePrompt(req.Prompt)
	if prompt == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "prompt must not be empty")
		return
	}
	if len(prompt) > MaxPromptLength {
		writeError(w, http.StatusBadRequest, "invalid_request",
			fmt.Sprintf("prompt exceeds maximum length of %d bytes", MaxPromptLength))
		return
	}

	s.mu.RLock()
	gen, modelID, classify, rec, f := s.gen, s.modelID, s.classify, s.recorder, s.formatter
	s.mu.RUnlock()

	opts := []conversation.SessionOption{conversation.WithClassifier(classify)}
	if rec != nil {
		opts = append(opts, conversation.WithRecorder(rec, modelID))
	}
	session := conversation.NewSession(gen, opts...)

	turn, err := session.Submit(r.Context(), prompt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	resp := ChatResponse{
		ID:    turn.ID,
		Reply: turn.Content,
		HTML:  f.Format(turn.Content),
		Model: modelID,
	}
	if result, ok := session.LastResult(); ok {
		resp.Failed = result.Err != nil
		resp.LatencyMs = result.Latency.Milliseconds()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleFormat handles POST /api/format.
func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request) {
	var req FormatRequest
	if !s.decode(w, r, &req) {
		return
	}

	s.mu.RLock()
	f := s.formatter
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, FormatResponse{HTML: f.Format(req.Text)})
}

// handleStats handles GET /api/stats[?since=24h].
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	stats := s.stats
	s.mu.RUnlock()

	if stats == nil {
		writeError(w, http.StatusNotFound, "not_found", "telemetry is disabled")
		return
	}

	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "since must be a positive duration such as 24h")
			return
		}
		since = time.Now().Add(-d)
	}

	sum, err := stats.Summary(r.Context(), since)
	if err != nil {
		log.Printf("STATS_FAILED | error=%v", err)
		writeError(w, http.StatusInternalServerError, "internal", "could not read usage statistics")
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		Since:        sum.Since,
		Requests:     sum.Requests,
		Succeeded:    sum.Succeeded,
		Failed:       sum.Failed,
		SuccessRate:  sum.SuccessRate(),
		AvgLatencyMs: sum.AvgLatency.Milliseconds(),
		MaxLatencyMs: sum.MaxLatency.Milliseconds(),
		PromptChars:  sum.PromptChars,
		ReplyChars:   sum.ReplyChars,
		ByModel:      sum.ByModel,
		ByErrorKind:  sum.ByErrorKind,
	})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		Version:       Version,
		Model:         s.modelID,
		Telemetry:     s.stats != nil,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	})
}

// decode reads a JSON body into v, writing the error response on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if isBodyTooLarge(err) {
			s.mu.RLock()
			limit := s.maxBody
			s.mu.RUnlock()
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large",
				fmt.Sprintf("Request body exceeds maximum size of %d bytes", limit))
			return false
		}
		// Details stay in the log.
		log.Printf("Invalid request body: %v", err)
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request format")
		return false
	}
	return true
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// ListenAndServe serves until ctx is done, then shuts down gracefully,
// giving in-flight requests up to grace to finish.
func (s *Server) ListenAndServe(ctx context.Context, grace time.Duration) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln, grace)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener, grace time.Duration) error {
	handler := s.Handler()

	s.mu.Lock()
	s.server = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	log.Printf("SERVER_START | addr=%s version=%s", ln.Addr(), Version)

	stopped := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(stopped)
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-stopped:
			return nil
		case <-gctx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()

	if srv == nil {
		return nil
	}

	log.Printf("SERVER_SHUTDOWN | starting graceful shutdown")
	return srv.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": message,
			"type":    kind,
			"code":    status,
		},
	})
}
