// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the doubtbot HTTP API.
//
// Endpoints:
//   - POST /api/chat   - send one prompt, get the reply (raw and formatted)
//   - POST /api/format - run the markdown formatter over text
//   - GET  /api/stats  - usage summary from the telemetry store
//   - GET  /health     - liveness and version
//
// Every request passes through recovery, security headers, request logging,
// an optional per-IP rate limit and a body size limit.
//
// Formatted output escapes literal text before markup is applied.
//
// Usage:
//
//	srv := server.NewServer(cfg.Server.Addr, client).
//	    WithModel(client.Model()).
//	    WithRateLimit(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
//	err := srv.ListenAndServe(ctx, 10*time.Second)
package server
