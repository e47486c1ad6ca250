// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing for doubtbot.
package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdServe
	CmdStats
	CmdConfig
	CmdVersion
	CmdHelp
)

// String returns the command name.
func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdAsk:
		return "ask"
	case CmdChat:
		return "chat"
	case CmdServe:
		return "serve"
	case CmdStats:
		return "stats"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	default:
		return "unknown"
	}
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string
	Model      string
	Renderer   string
	Quiet      bool
	JSON       bool

	// ask
	Query     string
	HTML      bool
	RawOutput bool

	// serve
	Addr string

	// stats
	Since  string
	Recent int

	// config
	Subcommand string
	ConfigKey  string
	ConfigVal  string
	Force      bool

	// Raw args (remaining after flag parsing)
	Raw []string
}

const usageText = `doubtbot - a terminal chat client for Gemini

Usage:
  doubtbot                        Start the chat TUI (default)
  doubtbot ask "question"         Ask a single question and print the reply
  doubtbot chat                   Line-mode chat with input history
  doubtbot serve [--addr ADDR]    Serve the HTTP API
  doubtbot stats                  Show local usage statistics
  doubtbot config [subcommand]    Configuration
  doubtbot version                Show version information
  doubtbot help                   Show this help

Ask Options:
  --html                          Print the reply as HTML markup
  --raw                           Print the reply without formatting
  Reads the question from stdin when none is given and stdin is piped.

Stats Options:
  --since DURATION|DATE           Window to summarise: 1h, 24h, 7d, 2025-01-31, or all (default: 24h)
  --recent N                      Also list the last N requests (default: 5)

Config Commands:
  doubtbot config show            Show the effective configuration (API key redacted)
  doubtbot config path            Show the config file path
  doubtbot config schema          Print the JSON Schema of the config file
  doubtbot config init [--force]  Write a default config file
  doubtbot config keys            List all settable keys
  doubtbot config get KEY         Print one value (e.g. scroll.near_bottom_threshold)
  doubtbot config set KEY VALUE   Set one value (e.g. ui.renderer glamour)

Global Options:
  --config PATH                   Load configuration from PATH
  -m, --model NAME                Model ID or alias (flash, pro, ...)
  --renderer NAME                 Reply renderer: builtin, glamour, plain
  --json                          Machine-readable output (stats, config, version)
  -q, --quiet                     Suppress banners and progress output
  -h, --help                      Show help
  -v, --version                   Show version

Environment:
  GEMINI_API_KEY                  Gemini API key
  DOUBTBOT_MODEL                  Overrides gemini.model
  DOUBTBOT_RENDERER               Overrides ui.renderer

Chat TUI Keys:
  Enter submit   End jump to newest   Ctrl+L clear   Ctrl+C quit
  /clear  /export [path]  /quit

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information to w.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "doubtbot version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	fmt.Fprintf(w, "  Go version: %s\n", runtime.Version())
}

// HandleVersion handles the "version" command with JSON output support.
func HandleVersion(args Args) error {
	if args.JSON {
		return NewJSONResponse("version", VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}).Write(os.Stdout)
	}
	PrintVersion(os.Stdout)
	return nil
}

// =============================================================================
// PARSING
// =============================================================================

// Parse parses os.Args and returns the command and args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses the given arguments (without the program name).
func ParseArgs(argv []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdTUI, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, parsedArgs

	case "ask", "a":
		parseAskArgs(&parsedArgs, remaining)
		return CmdAsk, parsedArgs

	case "chat", "repl":
		return CmdChat, parsedArgs

	case "serve", "server":
		parseServeArgs(&parsedArgs, remaining)
		return CmdServe, parsedArgs

	case "stats", "usage":
		parseStatsArgs(&parsedArgs, remaining)
		return CmdStats, parsedArgs

	case "config", "cfg":
		parseConfigArgs(&parsedArgs, remaining)
		return CmdConfig, parsedArgs

	case "version", "-v", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		return CmdHelp, parsedArgs

	default:
		// Anything else is taken as a question.
		parseAskArgs(&parsedArgs, append([]string{cmd}, remaining...))
		parsedArgs.Raw = append([]string{cmd}, remaining...)
		return CmdAsk, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsedArgs Args

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		case "--json":
			parsedArgs.JSON = true
		case "--config":
			if i+1 < len(args) {
				i++
				parsedArgs.ConfigPath = args[i]
			}
		case "-m", "--model":
			if i+1 < len(args) {
				i++
				parsedArgs.Model = args[i]
			}
		case "--renderer":
			if i+1 < len(args) {
				i++
				parsedArgs.Renderer = args[i]
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--config="):
				parsedArgs.ConfigPath = strings.TrimPrefix(arg, "--config=")
			case strings.HasPrefix(arg, "--model="):
				parsedArgs.Model = strings.TrimPrefix(arg, "--model=")
			case strings.HasPrefix(arg, "--renderer="):
				parsedArgs.Renderer = strings.TrimPrefix(arg, "--renderer=")
			default:
				remaining = append(remaining, arg)
			}
		}
	}

	return remaining, parsedArgs
}

// parseAskArgs parses ask command specific arguments.
func parseAskArgs(args *Args, remaining []string) {
	var query []string
	for _, arg := range remaining {
		switch arg {
		case "--html":
			args.HTML = true
		case "--raw":
			args.RawOutput = true
		default:
			query = append(query, arg)
		}
	}
	args.Query = strings.Join(query, " ")
}

// parseServeArgs parses serve command specific arguments.
func parseServeArgs(args *Args, remaining []string) {
	p := NewArgParser(remaining)
	args.Addr = p.Flag("addr")
}

// parseStatsArgs parses stats command specific arguments.
func parseStatsArgs(args *Args, remaining []string) {
	p := NewArgParser(remaining)
	args.Since = p.FlagOrDefault("since", "24h")
	args.Recent = p.FlagIntOrDefault("recent", 5)
}

// parseConfigArgs parses config command specific arguments.
func parseConfigArgs(args *Args, remaining []string) {
	p := NewArgParser(remaining)
	args.Subcommand = p.Subcommand()
	args.ConfigKey = p.Positional(1)
	args.ConfigVal = JoinPositionalArgs(p, 2)
	args.Force = p.BoolFlag("force")
}
