// Package config handles ghframe configuration: a YAML file read at startup
// and a durable key-value Store for settings the host mutates at runtime.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values shared with the runtime store.
const (
	DefaultBaseURL   = "https://github.com/"
	DefaultPartition = "persist:github"
)

// Config is the top-level ghframe configuration.
type Config struct {
	Browser  BrowserConfig  `yaml:"browser"`
	Frame    FrameConfig    `yaml:"frame"`
	Observer ObserverConfig `yaml:"observer"`
	Database string         `yaml:"database"`
	Users    UsersConfig    `yaml:"users"`
	Control  ControlConfig  `yaml:"control"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote   string `yaml:"remote"`
	Headless bool   `yaml:"headless"`
	Stealth  bool   `yaml:"stealth"`
	DataDir  string `yaml:"data_dir"`
	Devtools bool   `yaml:"devtools"`
}

// FrameConfig controls the embedded view.
type FrameConfig struct {
	BaseURL          string        `yaml:"base_url"`
	Partition        string        `yaml:"partition"`
	NavDelay         time.Duration `yaml:"nav_delay"`
	SettleDelay      time.Duration `yaml:"settle_delay"`
	SupersedePending bool          `yaml:"supersede_pending"`
}

// ObserverConfig controls change detection inside the page.
type ObserverConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// UsersConfig points the display-name resolver at its API.
type UsersConfig struct {
	APIURL   string        `yaml:"api_url"`
	Token    string        `yaml:"token"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// ControlConfig is the local HTTP control surface. Empty Listen disables it.
type ControlConfig struct {
	Listen string `yaml:"listen"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Browser.DataDir == "" {
		c.Browser.DataDir = "data/browser"
	}
	if c.Frame.BaseURL == "" {
		c.Frame.BaseURL = DefaultBaseURL
	}
	if c.Frame.Partition == "" {
		c.Frame.Partition = DefaultPartition
	}
	if c.Frame.NavDelay <= 0 {
		c.Frame.NavDelay = 400 * time.Millisecond
	}
	if c.Frame.SettleDelay <= 0 {
		c.Frame.SettleDelay = 100 * time.Millisecond
	}
	if c.Observer.Debounce <= 0 {
		c.Observer.Debounce = 200 * time.Millisecond
	}
	if c.Database == "" {
		c.Database = "data/ghframe.db"
	}
	if c.Users.APIURL == "" {
		c.Users.APIURL = "https://api.github.com/"
	}
	if c.Users.CacheTTL <= 0 {
		c.Users.CacheTTL = 24 * time.Hour
	}
}
