// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - The "ask" command: one question, one formatted reply.

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/jeranaias/doubtbot/internal/conversation"
	"github.com/jeranaias/doubtbot/internal/gemini"
)

// maxStdinQuery bounds a question read from stdin.
const maxStdinQuery = 64 * 1024

// HandleAsk handles the "ask" command.
func HandleAsk(args Args) error {
	env, err := LoadEnv(args)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	query := args.Query
	if strings.TrimSpace(query) == "" && !IsTTY() {
		data, err := io.ReadAll(io.LimitReader(env.In, maxStdinQuery))
		if err != nil {
			return fmt.Errorf("read question from stdin: %w", err)
		}
		query = string(data)
	}

	client := env.Client()
	if !client.IsConfigured() {
		return fmt.Errorf("%w; set GEMINI_API_KEY or run: doubtbot config set gemini.api_key KEY", gemini.ErrNotConfigured)
	}
	return runAsk(ctx, env, client, client.Model(), query, args)
}

// runAsk sends query through a one-turn session and prints the reply. A
// failed request still prints the fallback reply, then returns the cause.
func runAsk(ctx context.Context, env *Env, gen conversation.Generator, modelID, query string, args Args) error {
	if strings.TrimSpace(query) == "" {
		return ErrMissingArgument("question", `doubtbot ask "What is a goroutine?"`)
	}

	opts := []conversation.SessionOption{conversation.WithClassifier(gemini.Classify)}
	store, err := env.OpenTelemetry()
	if err != nil {
		fmt.Fprintln(env.Err, RenderWarning(err.Error()))
	}
	if store != nil {
		defer store.Close()
		opts = append(opts, conversation.WithRecorder(store, modelID))
	}
	session := conversation.NewSession(gen, opts...)

	if env.Interactive && !args.Quiet {
		fmt.Fprint(env.Err, DimStyle.Render("Thinking...")+"\r")
	}
	turn, err := session.Submit(ctx, query)
	if env.Interactive && !args.Quiet {
		fmt.Fprint(env.Err, "\r"+strings.Repeat(" ", len("Thinking..."))+"\r")
	}
	if err != nil {
		return err
	}

	var out string
	switch {
	case args.RawOutput:
		out = turn.Content
	case args.HTML:
		out = env.HTMLFormatter().Format(turn.Content)
	default:
		out = env.Renderer(GetTerminalWidth()).Render(turn.Content)
	}
	fmt.Fprintln(env.Out, strings.TrimRight(out, "\n"))

	if res, ok := session.LastResult(); ok && res.Err != nil {
		return fmt.Errorf("request failed (%s): %w", gemini.Classify(res.Err), res.Err)
	}
	return nil
}
