// doubtbot - a terminal chat client for Gemini.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/doubtbot/internal/cli"
	"github.com/jeranaias/doubtbot/internal/config"
	"github.com/jeranaias/doubtbot/internal/gemini"
	"github.com/jeranaias/doubtbot/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	var err error
	switch cmd {
	case cli.CmdAsk:
		err = cli.HandleAsk(args)
	case cli.CmdChat:
		err = cli.HandleChat(args)
	case cli.CmdServe:
		err = cli.HandleServe(args)
	case cli.CmdStats:
		err = cli.HandleStats(args)
	case cli.CmdConfig:
		err = cli.HandleConfig(args)
	case cli.CmdVersion:
		err = cli.HandleVersion(args)
	case cli.CmdHelp:
		cli.PrintUsage()
	default:
		err = runTUI(args)
	}

	if err != nil {
		cli.DisplayError(os.Stderr, cmd.String(), err, args.JSON)
		os.Exit(cli.GetExitCode(err))
	}
}

// runTUI starts the chat TUI.
func runTUI(args cli.Args) error {
	env, err := cli.LoadEnv(args)
	if err != nil {
		return err
	}
	cfg := env.Config

	// The alternate screen owns stdout, so logs go to a file or nowhere.
	if cfg.Log.File != "" {
		f, err := tea.LogToFile(cfg.Log.File, "doubtbot")
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	client := env.Client()
	if !client.IsConfigured() {
		log.Printf("gemini: no API key configured; replies will fail")
	}

	opts := []chat.Option{
		chat.WithTheme(env.Theme()),
		chat.WithClassifier(gemini.Classify),
	}
	store, err := env.OpenTelemetry()
	if err != nil {
		fmt.Fprintln(os.Stderr, cli.RenderWarning(err.Error()))
	}
	if store != nil {
		defer store.Close()
		opts = append(opts, chat.WithRecorder(store))
	}

	m := chat.New(cfg, client, opts...)
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),       // Use alternate screen buffer
		tea.WithMouseCellMotion(), // Enable mouse wheel scrolling
	)

	// Live reload of the config file. Command-line overrides win over the file.
	if env.ConfigFile != "" {
		w, err := config.NewWatcher(env.ConfigFile, func(next *config.Config, err error) {
			if next != nil && err == nil {
				err = cli.ApplyOverrides(next, args)
			}
			if err != nil {
				p.Send(chat.ConfigReloadedMsg{Err: err})
				return
			}
			p.Send(chat.ConfigReloadedMsg{Config: next})
		})
		if err == nil {
			defer w.Close()
			err = w.Start()
		}
		if err != nil {
			log.Printf("config: watch %s: %v", env.ConfigFile, err)
		}
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run doubtbot: %w", err)
	}
	return nil
}
