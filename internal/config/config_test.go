// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME at a temp dir and clears env overrides.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	for _, key := range []string{
		"GEMINI_API_KEY", "DOUBTBOT_API_KEY", "DOUBTBOT_MODEL",
		"DOUBTBOT_BASE_URL", "DOUBTBOT_SERVER_ADDR", "DOUBTBOT_RENDERER",
	} {
		t.Setenv(key, "")
	}
	return home
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

// =============================================================================
// DEFAULTS AND LOADING
// =============================================================================

func TestLoad_UnparseableFileFallsBackToDefaults(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, ".doubtbot", "config.toml"), "[scroll\nnear_bottom_threshold = 40\n")

	cfg, err := Load()
	assert.Error(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, 100, cfg.Scroll.NearBottomThreshold)
}

func TestConfig_Default(t *testing.T) {
	cfg := Default()

	assert.Equal(t, CurrentVersion, cfg.Version)
	assert.Equal(t, "gemini-2.0-flash", cfg.Gemini.Model)
	assert.Equal(t, 100, cfg.Scroll.NearBottomThreshold)
	assert.Equal(t, 20, cfg.Scroll.LineHeight)
	assert.Equal(t, "builtin", cfg.UI.Renderer)
	assert.False(t, cfg.Format.VerbatimCodeBlocks)
	assert.True(t, cfg.Telemetry.Enabled)
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Scroll.NearBottomThreshold)
	assert.Equal(t, filepath.Join(home, ".doubtbot", "usage.db"), cfg.Telemetry.Path)
}

func TestLoad_TOMLKeepsUnsetDefaults(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, ".doubtbot", "config.toml"), `
[gemini]
model = "pro"

[scroll]
near_bottom_threshold = 0
`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", cfg.Gemini.Model, "aliases resolve to model IDs")
	assert.Equal(t, 0, cfg.Scroll.NearBottomThreshold, "an explicit zero threshold is honoured")
	assert.Equal(t, 20, cfg.Scroll.LineHeight)
	assert.Equal(t, 60, cfg.Gemini.TimeoutSecs)
}

func TestLoad_JSONFallback(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, ".doubtbot", "config.json"), `{"ui":{"renderer":"Glamour"}}`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "glamour", cfg.UI.Renderer)
}

func TestLoad_MalformedFileReturnsDefaultsAndError(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, ".doubtbot", "config.toml"), "[gemini\nmodel=")

	cfg, err := Load()
	require.Error(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "gemini-2.0-flash", cfg.Gemini.Model)
}

func TestLoad_InvalidFileReturnsValidationError(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, ".doubtbot", "config.toml"), "[ui]\nrenderer = \"fancy\"\n")

	cfg, err := Load()
	assert.Nil(t, cfg)
	var verrs ValidateErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "ui.renderer", verrs[0].Field)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("GEMINI_API_KEY", "from-gemini")
	t.Setenv("DOUBTBOT_API_KEY", "from-doubtbot")
	t.Setenv("DOUBTBOT_MODEL", "flash-lite")
	t.Setenv("DOUBTBOT_SERVER_ADDR", "0.0.0.0:9000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-doubtbot", cfg.Gemini.APIKey)
	assert.Equal(t, "gemini-2.0-flash-lite", cfg.Gemini.Model)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
}

func TestLoadFromPath_FixesPermissions(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte("[ui]\nshow_timestamps = true\n"), 0644))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.True(t, cfg.UI.ShowTimestamps)

	if info, err := os.Stat(path); err == nil && os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}
}

// =============================================================================
// SAVE
// =============================================================================

func TestSaveTOML_RoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.SetDefaults()
	cfg.Scroll.NearBottomThreshold = 40
	cfg.UI.Renderer = "plain"
	require.NoError(t, SaveTOML(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# doubtbot configuration file"))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, 40, loaded.Scroll.NearBottomThreshold)
	assert.Equal(t, "plain", loaded.UI.Renderer)
}

func TestSaveJSON(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := Default()
	cfg.SetDefaults()
	cfg.Server.RateLimitBurst = 9
	require.NoError(t, SaveJSON(cfg, path))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, 9, loaded.Server.RateLimitBurst)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"valid", func(*Config) {}, ""},
		{"zero threshold", func(c *Config) { c.Scroll.NearBottomThreshold = 0 }, ""},
		{"negative threshold", func(c *Config) { c.Scroll.NearBottomThreshold = -1 }, "scroll.near_bottom_threshold"},
		{"zero line height", func(c *Config) { c.Scroll.LineHeight = 0 }, "scroll.line_height"},
		{"wheel lines", func(c *Config) { c.Scroll.WheelLines = 51 }, "scroll.wheel_lines"},
		{"empty model", func(c *Config) { c.Gemini.Model = "" }, "gemini.model"},
		{"model with slash", func(c *Config) { c.Gemini.Model = "a/b" }, "gemini.model"},
		{"bad scheme", func(c *Config) { c.Gemini.BaseURL = "ftp://example.com" }, "gemini.base_url"},
		{"timeout", func(c *Config) { c.Gemini.TimeoutSecs = 0 }, "gemini.timeout_secs"},
		{"renderer", func(c *Config) { c.UI.Renderer = "html" }, "ui.renderer"},
		{"addr", func(c *Config) { c.Server.Addr = "localhost" }, "server.addr"},
		{"rps", func(c *Config) { c.Server.RateLimitRPS = 0 }, "server.rate_limit_rps"},
		{"body", func(c *Config) { c.Server.MaxBodyBytes = 10 }, "server.max_body_bytes"},
		{"telemetry path", func(c *Config) { c.Telemetry.Path = "" }, "telemetry.path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Telemetry.Path = "/tmp/usage.db"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verrs ValidateErrors
			require.ErrorAs(t, err, &verrs)
			assert.Equal(t, tt.field, verrs[0].Field)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidateErrors_Aggregates(t *testing.T) {
	cfg := Default()
	cfg.Scroll.LineHeight = 0
	cfg.Scroll.WheelLines = 0
	cfg.Telemetry.Enabled = false

	var verrs ValidateErrors
	require.ErrorAs(t, cfg.Validate(), &verrs)
	assert.Len(t, verrs, 2)
	assert.Equal(t, "no validation errors", ValidateErrors{}.Error())
}

// =============================================================================
// GET / SET
// =============================================================================

func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	v, err := cfg.Get("scroll.near_bottom_threshold")
	require.NoError(t, err)
	assert.Equal(t, 100, v)

	require.NoError(t, cfg.Set("scroll.near_bottom_threshold", "250"))
	assert.Equal(t, 250, cfg.Scroll.NearBottomThreshold)

	require.NoError(t, cfg.Set("gemini.api_key", "k"))
	assert.Equal(t, "k", cfg.Gemini.APIKey)

	require.NoError(t, cfg.Set("format.verbatim_code_blocks", "yes"))
	assert.True(t, cfg.Format.VerbatimCodeBlocks)

	require.NoError(t, cfg.Set("server.rate_limit_rps", "2.5"))
	assert.Equal(t, 2.5, cfg.Server.RateLimitRPS)

	require.NoError(t, cfg.Set("ui.word_wrap", 72))
	assert.Equal(t, 72, cfg.UI.WordWrap)

	_, err = cfg.Get("scroll.nope")
	assert.ErrorContains(t, err, "unknown field: scroll.nope")

	_, err = cfg.Get("version.x")
	assert.ErrorContains(t, err, "not a struct")

	assert.Error(t, cfg.Set("scroll.wheel_lines", "many"))
	assert.Error(t, cfg.Set("", "x"))
}

func TestGetAllKeys_Resolve(t *testing.T) {
	cfg := Default()
	for _, key := range GetAllKeys() {
		_, err := cfg.Get(key)
		assert.NoError(t, err, key)
	}
}

func TestConfig_CloneAndString(t *testing.T) {
	cfg := Default()
	cfg.Gemini.APIKey = "AIzaSecret"

	clone := cfg.Clone()
	clone.Scroll.WheelLines = 9
	assert.Equal(t, 3, cfg.Scroll.WheelLines)

	out := cfg.String()
	assert.NotContains(t, out, "AIzaSecret")
	assert.Contains(t, out, "[REDACTED]")
	assert.Equal(t, "AIzaSecret", cfg.Gemini.APIKey)
}

// =============================================================================
// SCHEMA
// =============================================================================

func TestSchemaJSON(t *testing.T) {
	data, err := SchemaJSON()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "doubtbot configuration", doc["title"])
	assert.Contains(t, string(data), "near_bottom_threshold")
	assert.Contains(t, string(data), "line_height")
}

// =============================================================================
// WATCHER
// =============================================================================

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[scroll]\nnear_bottom_threshold = 100\n")

	reloaded := make(chan *Config, 4)
	w, err := NewWatcher(path, func(cfg *Config, err error) {
		if err == nil {
			reloaded <- cfg
		}
	})
	require.NoError(t, err)
	w.WithDebounce(20 * time.Millisecond)
	require.NoError(t, w.Start())
	t.Cleanup(func() { _ = w.Close() })

	writeFile(t, path, "[scroll]\nnear_bottom_threshold = 40\n")

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 40, cfg.Scroll.NearBottomThreshold)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload")
	}
}

func TestWatcher_CloseWithoutStart(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "config.toml"), func(*Config, error) {})
	require.NoError(t, err)
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}

func TestNewWatcher_RequiresCallback(t *testing.T) {
	_, err := NewWatcher("config.toml", nil)
	assert.Error(t, err)
}
