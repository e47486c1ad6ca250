// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/doubtbot/internal/format"
	"github.com/jeranaias/doubtbot/internal/model"
	"github.com/jeranaias/doubtbot/internal/util"
)

// CurrentVersion is written to new config files.
const CurrentVersion = "1"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete doubtbot configuration.
type Config struct {
	Version string `toml:"version" json:"version" jsonschema:"description=Config file format version"`

	// Remote model access
	Gemini GeminiConfig `toml:"gemini" json:"gemini"`

	// Terminal presentation
	UI UIConfig `toml:"ui" json:"ui"`

	// Transcript auto-scroll behaviour
	Scroll ScrollConfig `toml:"scroll" json:"scroll"`

	// Markdown formatting options
	Format FormatConfig `toml:"format" json:"format"`

	// HTTP API
	Server ServerConfig `toml:"server" json:"server"`

	// Local usage statistics
	Telemetry TelemetryConfig `toml:"telemetry" json:"telemetry"`

	// Log output
	Log LogConfig `toml:"log" json:"log"`
}

// GeminiConfig configures the generateContent client.
type GeminiConfig struct {
	APIKey      string `toml:"api_key" json:"api_key,omitempty" jsonschema:"description=Gemini API key (prefer the GEMINI_API_KEY environment variable)"`
	Model       string `toml:"model" json:"model" jsonschema:"description=Model ID or alias such as flash or pro"`
	BaseURL     string `toml:"base_url" json:"base_url" jsonschema:"format=uri"`
	TimeoutSecs int    `toml:"timeout_secs" json:"timeout_secs" jsonschema:"minimum=1,maximum=600"`
}

// UIConfig configures the terminal front ends.
type UIConfig struct {
	Renderer       string `toml:"renderer" json:"renderer" jsonschema:"enum=builtin,enum=glamour,enum=plain"`
	ShowTimestamps bool   `toml:"show_timestamps" json:"show_timestamps"`
	WordWrap       int    `toml:"word_wrap" json:"word_wrap" jsonschema:"minimum=0,maximum=500,description=Wrap column for the glamour renderer; 0 follows the terminal width"`
}

// ScrollConfig configures the transcript scroll controller.
type ScrollConfig struct {
	NearBottomThreshold int `toml:"near_bottom_threshold" json:"near_bottom_threshold" jsonschema:"minimum=0,description=Distance from the bottom (in units of line_height) that still counts as at the bottom"`
	LineHeight          int `toml:"line_height" json:"line_height" jsonschema:"minimum=1,maximum=100,description=Units per terminal line"`
	WheelLines          int `toml:"wheel_lines" json:"wheel_lines" jsonschema:"minimum=1,maximum=50"`
}

// FormatConfig configures the markdown formatter.
type FormatConfig struct {
	VerbatimCodeBlocks bool `toml:"verbatim_code_blocks" json:"verbatim_code_blocks" jsonschema:"description=Leave fenced code block content untouched by inline rules"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string  `toml:"addr" json:"addr"`
	RateLimitRPS   float64 `toml:"rate_limit_rps" json:"rate_limit_rps" jsonschema:"exclusiveMinimum=0"`
	RateLimitBurst int     `toml:"rate_limit_burst" json:"rate_limit_burst" jsonschema:"minimum=1"`
	MaxBodyBytes   int64   `toml:"max_body_bytes" json:"max_body_bytes" jsonschema:"minimum=1024"`
}

// TelemetryConfig configures local usage statistics.
type TelemetryConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled"`
	Path    string `toml:"path" json:"path,omitempty"`
}

// LogConfig configures log output.
type LogConfig struct {
	File string `toml:"file" json:"file,omitempty" jsonschema:"description=Log file for the chat TUI; logs are discarded when empty"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,

		Gemini: GeminiConfig{
			Model:       model.DefaultModel,
			BaseURL:     "https://generativelanguage.googleapis.com/v1beta",
			TimeoutSecs: 60,
		},

		UI: UIConfig{
			Renderer:       format.RendererBuiltin,
			ShowTimestamps: false,
			WordWrap:       0,
		},

		Scroll: ScrollConfig{
			NearBottomThreshold: 100,
			LineHeight:          20,
			WheelLines:          3,
		},

		Format: FormatConfig{
			VerbatimCodeBlocks: false,
		},

		Server: ServerConfig{
			Addr:           "127.0.0.1:8787",
			RateLimitRPS:   1,
			RateLimitBurst: 5,
			MaxBodyBytes:   64 * 1024,
		},

		Telemetry: TelemetryConfig{
			Enabled: true,
		},
	}
}

// ConfigDir is ~/.doubtbot. It holds the config file and the usage database.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, ".doubtbot"), nil
}

func inConfigDir(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// ConfigPathTOML is ~/.doubtbot/config.toml, the file Load tries first.
func ConfigPathTOML() (string, error) { return inConfigDir("config.toml") }

// ConfigPathJSON is ~/.doubtbot/config.json, read when no TOML file exists.
func ConfigPathJSON() (string, error) { return inConfigDir("config.json") }

// DefaultTelemetryPath is where usage is recorded unless telemetry.path says
// otherwise.
func DefaultTelemetryPath() (string, error) { return inConfigDir("usage.db") }

// restrictMode makes path owner-only. Config files can carry the API key.
func restrictMode(path string) {
	info, err := os.Stat(path)
	if err != nil || info.Mode().Perm() == 0600 {
		return
	}
	if err := os.Chmod(path, 0600); err != nil {
		log.Printf("config: %s is mode %o and could not be restricted: %v", path, info.Mode().Perm(), err)
	}
}

// Load builds the effective config: defaults, then config.toml or else
// config.json, then the environment.
//
// A file that cannot be parsed is returned as the error next to a usable
// default config. A config that parses but fails validation returns nil.
func Load() (*Config, error) {
	for _, locate := range []func() (string, error){ConfigPathTOML, ConfigPathJSON} {
		path, err := locate()
		if err != nil {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		cfg, err := LoadFromPath(path)
		if err == nil || errors.As(err, new(ValidateErrors)) {
			return cfg, err
		}
		fallback := Default()
		if ferr := fallback.finish(); ferr != nil {
			return nil, ferr
		}
		return fallback, err
	}

	cfg := Default()
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadTOML decodes the TOML file at path over cfg. Keys the file omits keep
// their current values.
func LoadTOML(cfg *Config, path string) error {
	restrictMode(path)
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("parse TOML: %w", err)
	}
	return nil
}

// LoadJSON is LoadTOML for JSON files.
func LoadJSON(cfg *Config, path string) error {
	restrictMode(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse JSON: %w", err)
	}
	return nil
}

// LoadFromPath reads one file over the defaults, picking the format from the
// extension, then applies the environment and validates.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	load := LoadTOML
	if strings.EqualFold(filepath.Ext(path), ".json") {
		load = LoadJSON
	}
	if err := load(cfg, path); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// finish applies env overrides, migration, defaults and validation.
func (c *Config) finish() error {
	c.ApplyEnvOverrides()
	if err := c.Migrate(); err != nil {
		return fmt.Errorf("config migration failed: %w", err)
	}
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

const tomlHeader = `# doubtbot configuration file
# Written by "doubtbot config". Comments added here are lost on the next save.
#
# Prefer GEMINI_API_KEY in the environment to storing the key here.

`

// SaveTOML writes cfg to path as TOML, owner-only, replacing any existing
// file atomically.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString(tomlHeader)
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encode TOML: %w", err)
	}
	return writeConfigFile(path, buf.Bytes())
}

// SaveJSON is SaveTOML for JSON files.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return writeConfigFile(path, append(data, '\n'))
}

func writeConfigFile(path string, data []byte) error {
	if err := util.AtomicWriteFileWithDir(path, data, 0600, 0700); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// ==========================================================================
	// Gemini
	// ==========================================================================

	if strings.TrimSpace(c.Gemini.Model) == "" {
		add("gemini.model", "must not be empty")
	} else if strings.ContainsAny(c.Gemini.Model, "/?# ") {
		add("gemini.model", "invalid model ID '%s'", c.Gemini.Model)
	}

	if c.Gemini.BaseURL != "" {
		u, err := url.Parse(c.Gemini.BaseURL)
		if err != nil {
			add("gemini.base_url", "invalid URL: %v", err)
		} else if u.Scheme != "http" && u.Scheme != "https" {
			add("gemini.base_url", "URL scheme must be http or https, got '%s'", u.Scheme)
		} else if u.Host == "" {
			add("gemini.base_url", "URL must include a host")
		}
	}

	if c.Gemini.TimeoutSecs < 1 || c.Gemini.TimeoutSecs > 600 {
		add("gemini.timeout_secs", "must be between 1 and 600, got %d", c.Gemini.TimeoutSecs)
	}

	// ==========================================================================
	// UI
	// ==========================================================================

	if !format.ValidRenderer(c.UI.Renderer) || c.UI.Renderer == format.RendererHTML {
		add("ui.renderer", "invalid renderer '%s', must be one of: builtin, glamour, plain", c.UI.Renderer)
	}
	if c.UI.WordWrap < 0 || c.UI.WordWrap > 500 {
		add("ui.word_wrap", "must be between 0 and 500, got %d", c.UI.WordWrap)
	}

	// ==========================================================================
	// Scroll
	// ==========================================================================

	if c.Scroll.NearBottomThreshold < 0 {
		add("scroll.near_bottom_threshold", "must not be negative, got %d", c.Scroll.NearBottomThreshold)
	}
	if c.Scroll.LineHeight < 1 || c.Scroll.LineHeight > 100 {
		add("scroll.line_height", "must be between 1 and 100, got %d", c.Scroll.LineHeight)
	}
	if c.Scroll.WheelLines < 1 || c.Scroll.WheelLines > 50 {
		add("scroll.wheel_lines", "must be between 1 and 50, got %d", c.Scroll.WheelLines)
	}

	// ==========================================================================
	// Server
	// ==========================================================================

	if _, port, err := net.SplitHostPort(c.Server.Addr); err != nil {
		add("server.addr", "invalid listen address '%s': %v", c.Server.Addr, err)
	} else if p, err := strconv.Atoi(port); err != nil || p < 0 || p > 65535 {
		add("server.addr", "invalid port '%s'", port)
	}
	if c.Server.RateLimitRPS <= 0 {
		add("server.rate_limit_rps", "must be positive, got %g", c.Server.RateLimitRPS)
	}
	if c.Server.RateLimitBurst < 1 {
		add("server.rate_limit_burst", "must be at least 1, got %d", c.Server.RateLimitBurst)
	}
	if c.Server.MaxBodyBytes < 1024 || c.Server.MaxBodyBytes > 10*1024*1024 {
		add("server.max_body_bytes", "must be between 1024 and 10485760, got %d", c.Server.MaxBodyBytes)
	}

	// ==========================================================================
	// Telemetry
	// ==========================================================================

	if c.Telemetry.Enabled && c.Telemetry.Path == "" {
		add("telemetry.path", "must be set when telemetry is enabled")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills empty fields with default values. Numeric fields whose
// zero value is meaningful (scroll.near_bottom_threshold, ui.word_wrap) are
// left alone.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}

	if c.Gemini.Model == "" {
		c.Gemini.Model = defaults.Gemini.Model
	}
	if c.Gemini.BaseURL == "" {
		c.Gemini.BaseURL = defaults.Gemini.BaseURL
	}
	if c.Gemini.TimeoutSecs == 0 {
		c.Gemini.TimeoutSecs = defaults.Gemini.TimeoutSecs
	}

	if c.UI.Renderer == "" {
		c.UI.Renderer = defaults.UI.Renderer
	}

	if c.Scroll.LineHeight == 0 {
		c.Scroll.LineHeight = defaults.Scroll.LineHeight
	}
	if c.Scroll.WheelLines == 0 {
		c.Scroll.WheelLines = defaults.Scroll.WheelLines
	}

	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Server.RateLimitRPS == 0 {
		c.Server.RateLimitRPS = defaults.Server.RateLimitRPS
	}
	if c.Server.RateLimitBurst == 0 {
		c.Server.RateLimitBurst = defaults.Server.RateLimitBurst
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = defaults.Server.MaxBodyBytes
	}

	if c.Telemetry.Enabled && c.Telemetry.Path == "" {
		if path, err := DefaultTelemetryPath(); err == nil {
			c.Telemetry.Path = path
		}
	}
}

// Migrate normalises values written by older versions or by hand.
func (c *Config) Migrate() error {
	// Aliases such as "flash" are stored as full model IDs.
	c.Gemini.Model = model.ResolveModelID(c.Gemini.Model)

	c.UI.Renderer = strings.ToLower(strings.TrimSpace(c.UI.Renderer))
	c.Gemini.BaseURL = strings.TrimRight(strings.TrimSpace(c.Gemini.BaseURL), "/")

	if c.Version != CurrentVersion {
		c.Version = CurrentVersion
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - GEMINI_API_KEY: overrides gemini.api_key
//   - DOUBTBOT_API_KEY: overrides gemini.api_key (wins over GEMINI_API_KEY)
//   - DOUBTBOT_MODEL: overrides gemini.model
//   - DOUBTBOT_BASE_URL: overrides gemini.base_url
//   - DOUBTBOT_SERVER_ADDR: overrides server.addr
//   - DOUBTBOT_RENDERER: overrides ui.renderer
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Gemini.APIKey = key
	}
	if key := os.Getenv("DOUBTBOT_API_KEY"); key != "" {
		c.Gemini.APIKey = key
	}
	if m := os.Getenv("DOUBTBOT_MODEL"); m != "" {
		c.Gemini.Model = m
	}
	if u := os.Getenv("DOUBTBOT_BASE_URL"); u != "" {
		c.Gemini.BaseURL = u
	}
	if addr := os.Getenv("DOUBTBOT_SERVER_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if r := os.Getenv("DOUBTBOT_RENDERER"); r != "" {
		c.UI.Renderer = r
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "scroll.wheel_lines").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "ui.renderer").
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

// lookup walks the struct following a dotted key.
func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field
// name. Known initialisms are upper-cased so that api_key finds APIKey.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		switch strings.ToLower(part) {
		case "api", "url", "ui", "rps", "html":
			result.WriteString(strings.ToUpper(part))
		default:
			if len(part) > 0 {
				result.WriteString(strings.ToUpper(part[:1]))
				result.WriteString(strings.ToLower(part[1:]))
			}
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			lower := strings.ToLower(strVal)
			field.SetBool(lower == "1" || lower == "true" || lower == "yes")
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"gemini.api_key",
		"gemini.model",
		"gemini.base_url",
		"gemini.timeout_secs",
		"ui.renderer",
		"ui.show_timestamps",
		"ui.word_wrap",
		"scroll.near_bottom_threshold",
		"scroll.line_height",
		"scroll.wheel_lines",
		"format.verbatim_code_blocks",
		"server.addr",
		"server.rate_limit_rps",
		"server.rate_limit_burst",
		"server.max_body_bytes",
		"telemetry.enabled",
		"telemetry.path",
		"log.file",
	}
}

// Clone returns a copy of the configuration. Config holds no maps or
// slices, so a value copy is deep.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// Redacted returns a copy safe to print, with any API key replaced.
func (c *Config) Redacted() *Config {
	safe := c.Clone()
	if safe.Gemini.APIKey != "" {
		safe.Gemini.APIKey = "[REDACTED]"
	}
	return safe
}

// String returns the config as indented JSON, redacted.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c.Redacted(), "", "  ")
	return string(data)
}
