// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// serve.go - The "serve" command: the HTTP API.

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jeranaias/doubtbot/internal/conversation"
	"github.com/jeranaias/doubtbot/internal/gemini"
	"github.com/jeranaias/doubtbot/internal/server"
)

// shutdownGrace is how long in-flight requests get after SIGINT/SIGTERM.
const shutdownGrace = 10 * time.Second

// HandleServe handles the "serve" command.
func HandleServe(args Args) error {
	env, err := LoadEnv(args)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := env.Client()
	if !client.IsConfigured() {
		fmt.Fprintln(env.Err, RenderWarning("Gemini API key not configured; /api/chat will answer with the fallback reply"))
	}

	srv, cleanup, err := NewAPIServer(env, client, client.Model(), args.Addr)
	if err != nil {
		return err
	}
	defer cleanup()

	if !args.Quiet {
		fmt.Fprintf(env.Out, "%s listening on http://%s (model %s)\n",
			TitleStyle.Render("doubtbot API"), srv.Addr(), client.Model())
	}
	return srv.ListenAndServe(ctx, shutdownGrace)
}

// NewAPIServer builds the HTTP server from the configuration. addr
// overrides server.addr when set. The returned cleanup closes the usage
// store.
func NewAPIServer(env *Env, gen conversation.Generator, modelID, addr string) (*server.Server, func(), error) {
	cfg := env.Config
	if addr == "" {
		addr = cfg.Server.Addr
	}

	srv := server.NewServer(addr, gen).
		WithModel(modelID).
		WithClassifier(gemini.Classify).
		WithFormatter(env.HTMLFormatter()).
		WithRateLimit(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst).
		WithMaxBodyBytes(cfg.Server.MaxBodyBytes)

	store, err := env.OpenTelemetry()
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {}
	if store != nil {
		srv.WithTelemetry(store, store)
		cleanup = func() { store.Close() }
	}
	return srv, cleanup, nil
}
