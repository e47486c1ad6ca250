// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config reads, validates and writes doubtbot's settings.
//
// A Config starts from Default, is overlaid by the first file found
// (~/.doubtbot/config.toml, then config.json) and finally by GEMINI_API_KEY
// and DOUBTBOT_* environment variables. Load does all three; LoadTOML and
// LoadJSON read a single file into an existing Config.
//
// Sections map to the parts of the program that consume them: [gemini] for
// the API client, [scroll] for the transcript auto-scroll threshold, [ui]
// and [format] for rendering, [server] for "doubtbot serve", [telemetry]
// for the usage store and [log] for the log file.
//
// Keys are addressable with dots, which is what "doubtbot config get/set"
// uses:
//
//	v, _ := cfg.Get("scroll.near_bottom_threshold")
//	err := cfg.Set("ui.renderer", "glamour")
//
// Watcher re-reads the file with LoadFromPath whenever it changes, so the TUI
// picks up new settings without restarting.
package config
