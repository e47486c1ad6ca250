// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"errors"
	"log"
	"time"
	"unicode/utf8"

	"github.com/jeranaias/doubtbot/internal/model"
	"github.com/jeranaias/doubtbot/internal/telemetry"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrEmptyPrompt is returned when the prompt is blank after normalisation.
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrBusy is returned when a request is already pending.
	ErrBusy = errors.New("a request is already pending")

	// ErrNoReply is returned when a call completes without an assistant turn.
	ErrNoReply = errors.New("no assistant reply")
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Generator produces a reply for a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Recorder stores usage for completed requests.
type Recorder interface {
	Record(ctx context.Context, u telemetry.Usage) error
}

// Classifier maps a remote error to a short kind label for telemetry.
type Classifier func(err error) string

// DefaultClassifier labels context errors and reports everything else as
// "error".
func DefaultClassifier(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

// =============================================================================
// EXCHANGE
// =============================================================================

// Result is the outcome of one remote call.
type Result struct {
	Request Request
	Reply   string
	Err     error
	Started time.Time
	Latency time.Duration
}

// Event returns the event that settles the pending request.
func (r Result) Event() Event {
	if r.Err != nil {
		return ResponseFailed{Err: r.Err}
	}
	return ResponseReceived{Text: r.Reply}
}

// Execute performs the remote call for req. It blocks until gen returns.
func Execute(ctx context.Context, gen Generator, req Request) Result {
	started := time.Now()
	reply, err := gen.Generate(ctx, req.Prompt)
	return Result{
		Request: req,
		Reply:   reply,
		Err:     err,
		Started: started,
		Latency: time.Since(started),
	}
}

// UsageFor builds the telemetry row for a result.
func UsageFor(r Result, modelID string, classify Classifier) telemetry.Usage {
	if classify == nil {
		classify = DefaultClassifier
	}
	u := telemetry.Usage{
		At:          r.Started,
		Model:       modelID,
		Latency:     r.Latency,
		PromptChars: utf8.RuneCountInString(r.Request.Prompt),
		Outcome:     telemetry.OutcomeOK,
	}
	if r.Err != nil {
		u.Outcome = telemetry.OutcomeFailed
		u.ErrorKind = classify(r.Err)
	} else {
		u.ReplyChars = utf8.RuneCountInString(r.Reply)
	}
	return u
}

// =============================================================================
// SESSION
// =============================================================================

// Session runs the submit flow synchronously: append the user turn, call the
// generator, append the reply or the fallback. Remote failures never escape
// Submit.
//
// Session is not safe for concurrent use.
type Session struct {
	store    *Store
	gen      Generator
	recorder Recorder
	modelID  string
	classify Classifier
	last     *Result
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithStore runs the session on an existing store.
func WithStore(store *Store) SessionOption {
	return func(s *Session) { s.store = store }
}

// WithRecorder records usage for each request under modelID.
func WithRecorder(rec Recorder, modelID string) SessionOption {
	return func(s *Session) {
		s.recorder = rec
		s.modelID = modelID
	}
}

// WithClassifier sets the error classifier used for telemetry.
func WithClassifier(c Classifier) SessionOption {
	return func(s *Session) { s.classify = c }
}

// NewSession creates a session that asks gen for replies.
func NewSession(gen Generator, opts ...SessionOption) *Session {
	s := &Session{gen: gen, classify: DefaultClassifier}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = NewStore()
	}
	return s
}

// Store returns the underlying store.
func (s *Session) Store() *Store {
	return s.store
}

// State returns the current conversation state.
func (s *Session) State() State {
	return s.store.State()
}

// Submit sends text and returns the assistant turn appended for it. The
// error is non-nil only when the submission was rejected.
func (s *Session) Submit(ctx context.Context, text string) (model.Turn, error) {
	if !s.store.CanSubmit() {
		return model.Turn{}, ErrBusy
	}
	eff := s.store.Dispatch(Submit{Text: text})
	if eff.Rejected || eff.Request == nil {
		return model.Turn{}, ErrEmptyPrompt
	}

	result := Execute(ctx, s.gen, *eff.Request)
	if result.Err != nil {
		log.Printf("conversation: request failed after %s: %v", result.Latency.Round(time.Millisecond), result.Err)
	}
	s.store.Dispatch(result.Event())
	s.last = &result
	s.record(ctx, result)

	last, ok := s.store.State().Transcript.Last()
	if !ok || last.Role != model.RoleAssistant {
		return model.Turn{}, ErrNoReply
	}
	return last, nil
}

// LastResult returns the outcome of the most recent remote call.
func (s *Session) LastResult() (Result, bool) {
	if s.last == nil {
		return Result{}, false
	}
	return *s.last, true
}

// Clear resets the transcript.
func (s *Session) Clear() error {
	if eff := s.store.Dispatch(Clear{}); eff.Rejected {
		return ErrBusy
	}
	return nil
}

// Record stores usage for a result produced outside Submit.
func (s *Session) Record(ctx context.Context, r Result) {
	s.record(ctx, r)
}

func (s *Session) record(ctx context.Context, r Result) {
	if s.recorder == nil {
		return
	}
	// Usage is recorded even when ctx was cancelled mid-request.
	if err := s.recorder.Record(context.WithoutCancel(ctx), UsageFor(r, s.modelID, s.classify)); err != nil {
		log.Printf("conversation: record usage: %v", err)
	}
}
