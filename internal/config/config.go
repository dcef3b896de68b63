// Package config loads and validates the Chikitsa configuration file.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Server contains the HTTP API bind address.
type Server struct {
	Bind string `toml:"bind"`
}

// Camera contains camera capture settings.
type Camera struct {
	DeviceID          int     `toml:"device_id"`
	IdleFPS           int     `toml:"idle_fps"`
	ActiveFPS         int     `toml:"active_fps"`
	PresenceThreshold float64 `toml:"presence_threshold"`
}

// Detector contains pose detection settings.
type Detector struct {
	MinConfidence         float64 `toml:"min_confidence"`
	MinTrackingConfidence float64 `toml:"min_tracking_confidence"`
	ModelComplexity       int     `toml:"model_complexity"`
}

// Coach contains feedback timing and scoring knobs.
type Coach struct {
	CooldownMs          int     `toml:"cooldown_ms"`
	CountdownCooldownMs int     `toml:"countdown_cooldown_ms"`
	ErrorPenalty        float64 `toml:"error_penalty"`
	RecoveryCredit      float64 `toml:"recovery_credit"`
}

// Feedback contains feedback plugin settings.
type Feedback struct {
	PluginDir            string `toml:"plugin_dir"`
	PluginTimeoutSeconds int    `toml:"plugin_timeout_seconds"`
}

// LLM contains connection settings for report generation.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Paths contains data directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
}

// Config encapsulates all configuration values for Chikitsa.
type Config struct {
	Server   Server   `toml:"server"`
	Camera   Camera   `toml:"camera"`
	Detector Detector `toml:"detector"`
	Coach    Coach    `toml:"coach"`
	Feedback Feedback `toml:"feedback"`
	LLM      LLM      `toml:"llm"`
	Paths    Paths    `toml:"paths"`
}

const (
	defaultBind              = "127.0.0.1:8420"
	defaultIdleFPS           = 5
	defaultActiveFPS         = 30
	defaultPresenceThreshold = 1.0
	defaultMinConfidence     = 0.5
	defaultModelComplexity   = 1
	defaultCooldownMs        = 2500
	defaultCountdownMs       = 900
	defaultErrorPenalty      = 1.0
	defaultRecoveryCredit    = 0.05
	defaultPluginTimeout     = 5
	defaultLLMBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel          = "google/gemini-3-flash-preview"
	defaultLLMTimeout        = 30
	defaultDataDir           = "~/.chikitsa"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{
			Bind: defaultBind,
		},
		Camera: Camera{
			DeviceID:          0,
			IdleFPS:           defaultIdleFPS,
			ActiveFPS:         defaultActiveFPS,
			PresenceThreshold: defaultPresenceThreshold,
		},
		Detector: Detector{
			MinConfidence:         defaultMinConfidence,
			MinTrackingConfidence: defaultMinConfidence,
			ModelComplexity:       defaultModelComplexity,
		},
		Coach: Coach{
			CooldownMs:          defaultCooldownMs,
			CountdownCooldownMs: defaultCountdownMs,
			ErrorPenalty:        defaultErrorPenalty,
			RecoveryCredit:      defaultRecoveryCredit,
		},
		Feedback: Feedback{
			PluginDir:            filepath.Join(defaultDataDir, "plugins"),
			PluginTimeoutSeconds: defaultPluginTimeout,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeout,
		},
		Paths: Paths{
			DataDir: defaultDataDir,
		},
	}
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/chikitsa/config.toml")
}

// Load locates, parses, and validates a configuration file. When the file
// does not exist the returned config holds defaults. The returned path is
// where the file was (or would be) read from, and the bool reports whether
// it existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Feedback.PluginDir, err = expandPath(c.Feedback.PluginDir); err != nil {
		return err
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	return nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Bind) == "" {
		return errors.New("server.bind must not be empty")
	}
	if c.Camera.IdleFPS <= 0 {
		return fmt.Errorf("camera.idle_fps must be positive, got %d", c.Camera.IdleFPS)
	}
	if c.Camera.ActiveFPS < c.Camera.IdleFPS {
		return fmt.Errorf("camera.active_fps (%d) must be at least camera.idle_fps (%d)",
			c.Camera.ActiveFPS, c.Camera.IdleFPS)
	}
	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		return fmt.Errorf("detector.min_confidence must be in [0, 1], got %g", c.Detector.MinConfidence)
	}
	if c.Detector.MinTrackingConfidence < 0 || c.Detector.MinTrackingConfidence > 1 {
		return fmt.Errorf("detector.min_tracking_confidence must be in [0, 1], got %g", c.Detector.MinTrackingConfidence)
	}
	if c.Detector.ModelComplexity < 0 || c.Detector.ModelComplexity > 2 {
		return fmt.Errorf("detector.model_complexity must be 0, 1 or 2, got %d", c.Detector.ModelComplexity)
	}
	if c.Coach.CooldownMs < 0 {
		return fmt.Errorf("coach.cooldown_ms must not be negative, got %d", c.Coach.CooldownMs)
	}
	if c.Coach.CountdownCooldownMs < 0 {
		return fmt.Errorf("coach.countdown_cooldown_ms must not be negative, got %d", c.Coach.CountdownCooldownMs)
	}
	if c.Coach.ErrorPenalty < 0 {
		return fmt.Errorf("coach.error_penalty must not be negative, got %g", c.Coach.ErrorPenalty)
	}
	if c.Feedback.PluginTimeoutSeconds <= 0 {
		return fmt.Errorf("feedback.plugin_timeout_seconds must be positive, got %d", c.Feedback.PluginTimeoutSeconds)
	}
	return nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Feedback.PluginDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database file location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "chikitsa.db")
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "chikitsa.lock")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
