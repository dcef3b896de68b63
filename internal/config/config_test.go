package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Bind != "127.0.0.1:8420" {
		t.Errorf("Server.Bind = %q", cfg.Server.Bind)
	}
	if cfg.Camera.IdleFPS != 5 || cfg.Camera.ActiveFPS != 30 {
		t.Errorf("camera fps = %d/%d, want 5/30", cfg.Camera.IdleFPS, cfg.Camera.ActiveFPS)
	}
	if cfg.Coach.CooldownMs != 2500 || cfg.Coach.CountdownCooldownMs != 900 {
		t.Errorf("coach cooldowns = %d/%d, want 2500/900", cfg.Coach.CooldownMs, cfg.Coach.CountdownCooldownMs)
	}
	if cfg.LLM.APIKey != "" {
		t.Error("the LLM must be disabled by default")
	}
	if err := (&cfg).Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if exists {
		t.Error("Load() should report a missing file")
	}
	if resolved != path {
		t.Errorf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.Server.Bind != "127.0.0.1:8420" {
		t.Errorf("Server.Bind = %q, want the default", cfg.Server.Bind)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
[server]
bind = "0.0.0.0:9000"

[camera]
device_id = 2
idle_fps = 3
active_fps = 24

[coach]
cooldown_ms = 4000

[llm]
api_key = "  secret  "

[paths]
data_dir = "` + strings.ReplaceAll(filepath.Join(dir, "data"), `\`, `\\`) + `"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !exists {
		t.Fatal("Load() should report the file as existing")
	}

	if cfg.Server.Bind != "0.0.0.0:9000" {
		t.Errorf("Server.Bind = %q", cfg.Server.Bind)
	}
	if cfg.Camera.DeviceID != 2 || cfg.Camera.IdleFPS != 3 || cfg.Camera.ActiveFPS != 24 {
		t.Errorf("camera = %+v", cfg.Camera)
	}
	if cfg.Coach.CooldownMs != 4000 {
		t.Errorf("Coach.CooldownMs = %d, want 4000", cfg.Coach.CooldownMs)
	}
	if cfg.LLM.APIKey != "secret" {
		t.Errorf("LLM.APIKey = %q, want trimmed value", cfg.LLM.APIKey)
	}
	// Unset sections keep their defaults.
	if cfg.Coach.CountdownCooldownMs != 900 {
		t.Errorf("Coach.CountdownCooldownMs = %d, want default 900", cfg.Coach.CountdownCooldownMs)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[server\nbind = "), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, _, _, err := Load(path); err == nil {
		t.Error("Load() should fail on malformed TOML")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty bind", func(c *Config) { c.Server.Bind = " " }},
		{"zero idle fps", func(c *Config) { c.Camera.IdleFPS = 0 }},
		{"active below idle", func(c *Config) { c.Camera.ActiveFPS = 2 }},
		{"confidence above one", func(c *Config) { c.Detector.MinConfidence = 1.5 }},
		{"tracking confidence below zero", func(c *Config) { c.Detector.MinTrackingConfidence = -0.1 }},
		{"unknown model complexity", func(c *Config) { c.Detector.ModelComplexity = 3 }},
		{"negative cooldown", func(c *Config) { c.Coach.CooldownMs = -1 }},
		{"negative penalty", func(c *Config) { c.Coach.ErrorPenalty = -0.5 }},
		{"zero plugin timeout", func(c *Config) { c.Feedback.PluginTimeoutSeconds = 0 }},
	}

	for _, c := range cases {
		cfg := Default()
		c.mutate(&cfg)
		if err := (&cfg).Validate(); err == nil {
			t.Errorf("%s: Validate() should fail", c.name)
		}
	}
}

func TestDatabaseAndLockPaths(t *testing.T) {
	cfg := Default()
	cfg.Paths.DataDir = "/tmp/chikitsa-test"

	if got := cfg.DatabasePath(); got != filepath.Join("/tmp/chikitsa-test", "chikitsa.db") {
		t.Errorf("DatabasePath() = %q", got)
	}
	if got := cfg.LockPath(); got != filepath.Join("/tmp/chikitsa-test", "chikitsa.lock") {
		t.Errorf("LockPath() = %q", got)
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Feedback.PluginDir = filepath.Join(dir, "data", "plugins")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories() error = %v", err)
	}
	for _, d := range []string{cfg.Paths.DataDir, cfg.Feedback.PluginDir} {
		info, err := os.Stat(d)
		if err != nil || !info.IsDir() {
			t.Errorf("directory %q not created: %v", d, err)
		}
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample() error = %v", err)
	}

	// The sample must parse and validate as-is.
	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load(sample) error = %v", err)
	}
	if !exists {
		t.Fatal("sample file should exist")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("sample config should validate, got %v", err)
	}
}
