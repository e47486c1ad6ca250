// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the non-TUI commands for
// doubtbot.
//
// # Key Types
//
//   - Command: the command selected on the command line
//   - Args: parsed global and command-specific flags
//   - Env: the effective configuration plus the streams a command writes to
//   - ChatREPL: line-mode chat on a readline prompt
//
// # Usage
//
//	cmd, args := cli.ParseArgs(os.Args[1:])
//	switch cmd {
//	case cli.CmdAsk:
//	    err = cli.HandleAsk(args)
//	case cli.CmdServe:
//	    err = cli.HandleServe(args)
//	}
//	if err != nil {
//	    cli.DisplayError(os.Stderr, cmd.String(), err, args.JSON)
//	    os.Exit(cli.GetExitCode(err))
//	}
//
// # Commands
//
//   - ask: one question, one formatted reply (terminal, HTML or raw)
//   - chat: interactive line-mode conversation with /clear and /export
//   - serve: the HTTP API
//   - stats: local usage statistics from the telemetry store
//   - config: show, path, schema, init, keys, get and set
//   - version, help
//
// Commands that report data accept --json.
package cli
