package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the standard config location for the current user.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "murmur.yaml"
	}
	return filepath.Join(dir, "murmur", "config.yaml")
}

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Audio   AudioConfig   `yaml:"audio"`
	Trigger TriggerConfig `yaml:"trigger"`
	Sounds  bool          `yaml:"sounds"`
	Paste   bool          `yaml:"paste"`
}

type ServerConfig struct {
	URL     string        `yaml:"url"`
	Format  string        `yaml:"format"` // "wav" or "flac"
	Timeout time.Duration `yaml:"timeout"`
}

type AudioConfig struct {
	Device     string        `yaml:"device"` // empty = system default
	MaxSession time.Duration `yaml:"max_session"`
}

type TriggerConfig struct {
	WakeWord    string        `yaml:"wake_word"`
	Hotkey      string        `yaml:"hotkey"`
	Debounce    time.Duration `yaml:"debounce"`
	SpotEvery   time.Duration `yaml:"spot_every"`
	SpotWindow  time.Duration `yaml:"spot_window"`
}

// Load reads a YAML config file. A missing file is not an error: env vars
// and defaults still apply, so the tool runs with zero configuration.
func Load(path string) (*Config, error) {
	cfg := &Config{Sounds: true, Paste: true}

	data, err := os.ReadFile(path)
	if err == nil {
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.setDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("MURMUR_SERVER"); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv("MURMUR_WAKE_WORD"); v != "" {
		c.Trigger.WakeWord = v
	}
	if v := os.Getenv("MURMUR_HOTKEY"); v != "" {
		c.Trigger.Hotkey = v
	}
	if v := os.Getenv("MURMUR_SOUNDS"); v != "" {
		c.Sounds = strings.EqualFold(v, "true") || v == "1"
	}
}

func (c *Config) setDefaults() {
	if c.Server.URL == "" {
		c.Server.URL = "http://127.0.0.1:8765"
	}
	if c.Server.Format == "" {
		c.Server.Format = "wav"
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = 30 * time.Second
	}
	if c.Audio.MaxSession == 0 {
		c.Audio.MaxSession = 60 * time.Second
	}
	if c.Trigger.WakeWord == "" {
		c.Trigger.WakeWord = "nemo"
	}
	c.Trigger.WakeWord = strings.ToLower(c.Trigger.WakeWord)
	if c.Trigger.Hotkey == "" {
		c.Trigger.Hotkey = "ctrl+shift+space"
	}
	if c.Trigger.Debounce == 0 {
		c.Trigger.Debounce = time.Second
	}
	if c.Trigger.SpotEvery == 0 {
		c.Trigger.SpotEvery = 2 * time.Second
	}
	if c.Trigger.SpotWindow == 0 {
		c.Trigger.SpotWindow = 3 * time.Second
	}
}
