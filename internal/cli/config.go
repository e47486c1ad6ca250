// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - The "config" command.

package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/doubtbot/internal/config"
)

// HandleConfig handles the "config" command.
func HandleConfig(args Args) error {
	env := &Env{In: os.Stdin, Out: os.Stdout, Err: os.Stderr, Interactive: IsStdoutTTY()}

	// Commands that only touch the file must work even when it is invalid.
	switch args.Subcommand {
	case "path", "schema", "init", "keys", "set":
		return runConfig(env, args)
	}

	loaded, err := LoadEnv(args)
	if err != nil {
		return err
	}
	return runConfig(loaded, args)
}

func runConfig(env *Env, args Args) error {
	switch args.Subcommand {
	case "", "show":
		return handleConfigShow(env, args)
	case "path":
		return handleConfigPath(env, args)
	case "schema":
		return handleConfigSchema(env)
	case "init":
		return handleConfigInit(env, args)
	case "keys":
		for _, k := range config.GetAllKeys() {
			fmt.Fprintln(env.Out, k)
		}
		return nil
	case "get":
		return handleConfigGet(env, args.ConfigKey)
	case "set":
		return handleConfigSet(env, args)
	default:
		return &ValidationError{
			Field:   "config",
			Value:   args.Subcommand,
			Reason:  "unknown subcommand",
			Example: "doubtbot config [show|path|schema|init|keys|get KEY|set KEY VALUE]",
		}
	}
}

// configFilePath returns the file config commands read and write: --config
// if given, else an existing default file, else the default TOML path.
func configFilePath(args Args) (string, error) {
	if args.ConfigPath != "" {
		return args.ConfigPath, nil
	}
	if p := defaultConfigFile(); p != "" {
		return p, nil
	}
	p, err := config.ConfigPathTOML()
	if err != nil {
		return "", &ConfigError{Err: err}
	}
	return p, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// =============================================================================
// SUBCOMMANDS
// =============================================================================

func handleConfigShow(env *Env, args Args) error {
	cfg := env.Config
	if args.JSON {
		return NewJSONResponse("config show", ConfigData{
			Path:   env.ConfigFile,
			Exists: env.ConfigFile != "",
			Config: cfg.Redacted(),
		}).Write(env.Out)
	}

	fmt.Fprintln(env.Out, TitleStyle.Render("doubtbot configuration"))
	fmt.Fprintln(env.Out, RenderSeparator(40))
	section := ""
	for _, key := range config.GetAllKeys() {
		name, field, ok := strings.Cut(key, ".")
		if !ok {
			continue
		}
		if name != section {
			section = name
			fmt.Fprintln(env.Out, SectionStyle.Render("["+section+"]"))
		}
		value, err := cfg.Get(key)
		if err != nil {
			continue
		}
		fmt.Fprintln(env.Out, RenderField(field, displayValue(key, value)))
	}

	fmt.Fprintln(env.Out)
	source := env.ConfigFile
	if source == "" {
		source = "built-in defaults"
	}
	fmt.Fprintln(env.Out, DimStyle.Render("Loaded from: "+source))
	return nil
}

func handleConfigPath(env *Env, args Args) error {
	path, err := configFilePath(args)
	if err != nil {
		return err
	}
	exists := fileExists(path)
	if args.JSON {
		return NewJSONResponse("config path", map[string]any{"path": path, "exists": exists}).Write(env.Out)
	}
	fmt.Fprintln(env.Out, path)
	if !exists && !args.Quiet {
		fmt.Fprintln(env.Err, DimStyle.Render("(does not exist yet; create it with: doubtbot config init)"))
	}
	return nil
}

func handleConfigSchema(env *Env) error {
	data, err := config.SchemaJSON()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(env.Out, string(data))
	return err
}

func handleConfigInit(env *Env, args Args) error {
	path, err := configFilePath(args)
	if err != nil {
		return err
	}
	if fileExists(path) && !args.Force {
		return NewCommandError("config", "init", path+" already exists (use --force to overwrite)", nil)
	}
	if err := saveConfigFile(config.Default(), path); err != nil {
		return &ConfigError{Path: path, Err: err}
	}
	fmt.Fprintln(env.Out, RenderOK("Wrote "+path))
	return nil
}

func handleConfigGet(env *Env, key string) error {
	if key == "" {
		return ErrMissingArgument("key", "doubtbot config get scroll.near_bottom_threshold")
	}
	value, err := env.Config.Get(strings.ToLower(key))
	if err != nil {
		return &NotFoundError{Resource: "config key", ID: key}
	}
	fmt.Fprintln(env.Out, displayValue(key, value))
	return nil
}

// handleConfigSet updates one key in the config file. Only the file is
// read, so environment overrides are never written back.
func handleConfigSet(env *Env, args Args) error {
	key := strings.ToLower(args.ConfigKey)
	if key == "" {
		return ErrMissingArgument("key", "doubtbot config set ui.renderer glamour")
	}
	if args.ConfigVal == "" {
		return ErrMissingArgument("value", "doubtbot config set "+key+" VALUE")
	}

	path, err := configFilePath(args)
	if err != nil {
		return err
	}
	cfg := config.Default()
	if fileExists(path) {
		load := config.LoadTOML
		if isJSONPath(path) {
			load = config.LoadJSON
		}
		if err := load(cfg, path); err != nil {
			return &ConfigError{Path: path, Err: err}
		}
	}

	if _, err := cfg.Get(key); err != nil {
		return &NotFoundError{Resource: "config key", ID: key}
	}
	if err := cfg.Set(key, args.ConfigVal); err != nil {
		return &ValidationError{Field: key, Value: args.ConfigVal, Reason: err.Error()}
	}
	if err := cfg.Migrate(); err != nil {
		return &ConfigError{Path: path, Err: err}
	}
	check := cfg.Clone()
	check.SetDefaults()
	if err := check.Validate(); err != nil {
		return &ConfigError{Path: path, Err: err}
	}

	if err := saveConfigFile(cfg, path); err != nil {
		return &ConfigError{Path: path, Err: err}
	}
	value, _ := cfg.Get(key)
	fmt.Fprintln(env.Out, RenderOK(fmt.Sprintf("%s = %s", key, displayValue(key, value))))
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func isJSONPath(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".json")
}

func saveConfigFile(cfg *config.Config, path string) error {
	if isJSONPath(path) {
		return config.SaveJSON(cfg, path)
	}
	return config.SaveTOML(cfg, path)
}

// displayValue formats a config value, masking the API key.
func displayValue(key string, value any) string {
	s := fmt.Sprint(value)
	if strings.HasSuffix(key, "api_key") {
		return maskAPIKey(s)
	}
	if s == "" {
		return "(not set)"
	}
	return s
}

// maskAPIKey shows only the length of a key.
func maskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	return fmt.Sprintf("[REDACTED, %d chars]", len(key))
}
