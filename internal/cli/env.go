// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// env.go - Shared setup for doubtbot commands.

package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jeranaias/doubtbot/internal/config"
	"github.com/jeranaias/doubtbot/internal/format"
	"github.com/jeranaias/doubtbot/internal/gemini"
	"github.com/jeranaias/doubtbot/internal/model"
	"github.com/jeranaias/doubtbot/internal/telemetry"
	"github.com/jeranaias/doubtbot/internal/ui/styles"
)

// Env is what every command runs against: the effective configuration and
// the streams to talk to.
type Env struct {
	Config *config.Config

	// ConfigFile is the file the config was loaded from, or "" when only
	// defaults were used.
	ConfigFile string

	In  io.Reader
	Out io.Writer
	Err io.Writer

	// Interactive is true when stdout is a terminal.
	Interactive bool

	theme *styles.Theme
}

// LoadEnv loads the configuration selected by args and applies the
// command-line overrides.
func LoadEnv(args Args) (*Env, error) {
	env := &Env{
		In:          os.Stdin,
		Out:         os.Stdout,
		Err:         os.Stderr,
		Interactive: IsStdoutTTY(),
	}

	cfg, file, err := loadConfig(args.ConfigPath)
	if err != nil {
		if cfg == nil {
			return nil, err
		}
		fmt.Fprintln(env.Err, RenderWarning(fmt.Sprintf("%v (using defaults)", err)))
	}
	if err := ApplyOverrides(cfg, args); err != nil {
		return nil, err
	}

	env.Config = cfg
	env.ConfigFile = file
	return env, nil
}

// loadConfig loads an explicit file, or the default locations. A default
// file that fails to parse yields defaults plus the error.
func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		cfg, err := config.LoadFromPath(path)
		if err != nil {
			return nil, path, &ConfigError{Path: path, Err: err}
		}
		return cfg, path, nil
	}

	file := defaultConfigFile()
	cfg, err := config.Load()
	if err != nil {
		if cfg == nil {
			return nil, file, &ConfigError{Path: file, Err: err}
		}
		return cfg, "", &ConfigError{Path: file, Err: err}
	}
	return cfg, file, nil
}

// defaultConfigFile returns the default config file that exists, TOML first.
func defaultConfigFile() string {
	for _, fn := range []func() (string, error){config.ConfigPathTOML, config.ConfigPathJSON} {
		if p, err := fn(); err == nil {
			if _, statErr := os.Stat(p); statErr == nil {
				return p
			}
		}
	}
	return ""
}

// ApplyOverrides applies --model and --renderer to cfg. It is also applied
// to configs reloaded while the TUI runs.
func ApplyOverrides(cfg *config.Config, args Args) error {
	if args.Model != "" {
		cfg.Gemini.Model = model.ResolveModelID(args.Model)
	}
	if args.Renderer != "" {
		if !format.ValidRenderer(args.Renderer) || args.Renderer == format.RendererHTML {
			return ErrInvalidFormat("--renderer", args.Renderer, "builtin, glamour or plain")
		}
		cfg.UI.Renderer = args.Renderer
	}
	return nil
}

// Theme returns the theme for the current terminal.
func (e *Env) Theme() *styles.Theme {
	if e.theme == nil {
		e.theme = styles.NewThemeForProfile(GetColorProfile(), HasDarkBackground())
	}
	return e.theme
}

// Client returns a Gemini client for the configured model.
func (e *Env) Client() *gemini.Client {
	g := e.Config.Gemini
	return gemini.NewClient(g.APIKey).
		WithBaseURL(g.BaseURL).
		WithModel(g.Model).
		WithTimeout(time.Duration(g.TimeoutSecs) * time.Second)
}

// OpenTelemetry opens the usage store, or returns nil when telemetry is
// disabled.
func (e *Env) OpenTelemetry() (*telemetry.Store, error) {
	t := e.Config.Telemetry
	if !t.Enabled || t.Path == "" {
		return nil, nil
	}
	store, err := telemetry.Open(t.Path)
	if err != nil {
		return nil, fmt.Errorf("open usage store: %w", err)
	}
	return store, nil
}

// Renderer returns the reply renderer for a terminal of the given width.
// HTML escaping applies to HTML output only and is never used here.
func (e *Env) Renderer(width int) format.Renderer {
	cfg := e.Config
	wrap := cfg.UI.WordWrap
	if wrap == 0 {
		wrap = width
	}
	opts := []format.Option{format.WithVerbatimCodeBlocks(cfg.Format.VerbatimCodeBlocks)}

	r, err := format.NewRenderer(cfg.UI.Renderer, e.Theme(), wrap, opts...)
	if err != nil {
		fmt.Fprintln(e.Err, RenderWarning(fmt.Sprintf("%v; using builtin", err)))
		return format.New(format.Terminal(e.Theme()), opts...)
	}
	return r
}

// HTMLFormatter returns the formatter used for HTML output. Literal text is
// always escaped in HTML.
func (e *Env) HTMLFormatter() *format.Formatter {
	return format.New(format.HTML,
		format.WithEscapedText(true),
		format.WithVerbatimCodeBlocks(e.Config.Format.VerbatimCodeBlocks))
}
