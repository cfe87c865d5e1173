// Package config loads the plugwatch configuration file.
//
// The file is plugwatch.toml in the executable's directory (the guard's
// pinned working directory), overridable with --config or PLUGWATCH_CONFIG.
// A missing file is not an error: every setting has a default matching the
// stock household install.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the config file looked up in the executable's directory.
const FileName = "plugwatch.toml"

// EnvConfigPath is the env var overriding the config file location.
const EnvConfigPath = "PLUGWATCH_CONFIG"

// DefaultSessionName is the fixed screen session the guard maintains.
const DefaultSessionName = "tasmota_log"

// Config holds the full plugwatch configuration.
type Config struct {
	Session struct {
		Name    string `toml:"name"`
		Command string `toml:"command"`
		Capture bool   `toml:"capture"`
		LogFile string `toml:"log_file"`
	} `toml:"session"`

	Guard struct {
		JitterMinMS int    `toml:"jitter_min_ms"`
		JitterMaxMS int    `toml:"jitter_max_ms"`
		Lock        bool   `toml:"lock"`
		LockFile    string `toml:"lock_file"`
	} `toml:"guard"`

	Logger struct {
		DataDir        string `toml:"data_dir"`
		DeviceTimeoutS int    `toml:"device_timeout_s"`
	} `toml:"logger"`

	Devices []Device `toml:"device"`

	Telegram struct {
		Enabled    bool   `toml:"enabled"`
		TokenFile  string `toml:"token_file"`
		ChatIDFile string `toml:"chat_id_file"`
		ThreadID   string `toml:"thread_id"`
	} `toml:"telegram"`
}

// Device is one monitored smart plug.
type Device struct {
	IP string `toml:"ip"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.Session.Name = DefaultSessionName
	cfg.Session.Capture = true
	cfg.Session.LogFile = "tasmota_log.log"
	cfg.Guard.JitterMinMS = 100
	cfg.Guard.JitterMaxMS = 900
	cfg.Guard.LockFile = ".plugwatch.lock"
	cfg.Logger.DeviceTimeoutS = 10
	cfg.Devices = []Device{
		{IP: "192.168.2.77"},
		{IP: "192.168.2.107"},
		{IP: "192.168.2.134"},
	}
	cfg.Telegram.Enabled = true
	cfg.Telegram.TokenFile = "~/Documents/erinner_bot/TOKEN"
	cfg.Telegram.ChatIDFile = "~/Documents/erinner_bot/server-mail.id"
	cfg.Telegram.ThreadID = "4061"
	return cfg
}

// Resolve returns the config file path to load: the explicit flag value when
// set, else $PLUGWATCH_CONFIG, else plugwatch.toml in dir.
func Resolve(flagPath, dir string) string {
	if flagPath != "" {
		return flagPath
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}
	return filepath.Join(dir, FileName)
}

// Load reads and parses the config file at path. A missing file returns the
// defaults. Settings present in the file override defaults; a device list in
// the file replaces the default list entirely.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects configurations the commands cannot act on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Session.Name) == "" {
		return fmt.Errorf("session name missing")
	}
	if c.Guard.JitterMinMS < 0 || c.Guard.JitterMaxMS < 0 {
		return fmt.Errorf("guard jitter must not be negative")
	}
	if c.Guard.JitterMinMS > c.Guard.JitterMaxMS {
		return fmt.Errorf("guard jitter_min_ms %d exceeds jitter_max_ms %d",
			c.Guard.JitterMinMS, c.Guard.JitterMaxMS)
	}
	if c.Guard.Lock && strings.TrimSpace(c.Guard.LockFile) == "" {
		return fmt.Errorf("guard lock enabled but lock_file missing")
	}
	if c.Logger.DeviceTimeoutS <= 0 {
		return fmt.Errorf("logger device_timeout_s must be positive")
	}
	for _, d := range c.Devices {
		if net.ParseIP(d.IP) == nil {
			return fmt.Errorf("device ip %q is not a valid IP address", d.IP)
		}
	}
	return nil
}

// JitterRange returns the guard's jitter window.
func (c *Config) JitterRange() (min, max time.Duration) {
	return time.Duration(c.Guard.JitterMinMS) * time.Millisecond,
		time.Duration(c.Guard.JitterMaxMS) * time.Millisecond
}

// DeviceTimeout returns the per-device HTTP timeout.
func (c *Config) DeviceTimeout() time.Duration {
	return time.Duration(c.Logger.DeviceTimeoutS) * time.Second
}

// DataDir resolves the data directory against baseDir (the executable's
// directory). Empty means baseDir itself; relative paths resolve under it.
func (c *Config) DataDir(baseDir string) string {
	dir := c.Logger.DataDir
	if dir == "" {
		return baseDir
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(baseDir, dir)
}
