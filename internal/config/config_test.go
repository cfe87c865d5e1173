package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingReturnsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Session.Name != "tasmota_log" {
		t.Errorf("Session.Name = %q, want tasmota_log", cfg.Session.Name)
	}
	if !cfg.Session.Capture {
		t.Error("Session.Capture = false, want true")
	}
	if cfg.Guard.JitterMinMS != 100 || cfg.Guard.JitterMaxMS != 900 {
		t.Errorf("jitter = %d..%d ms, want 100..900",
			cfg.Guard.JitterMinMS, cfg.Guard.JitterMaxMS)
	}
	if cfg.Guard.Lock {
		t.Error("Guard.Lock = true, want false")
	}
	if len(cfg.Devices) != 3 {
		t.Fatalf("device count = %d, want 3", len(cfg.Devices))
	}
	if cfg.Devices[0].IP != "192.168.2.77" {
		t.Errorf("Devices[0].IP = %q, want 192.168.2.77", cfg.Devices[0].IP)
	}
	if cfg.Telegram.ThreadID != "4061" {
		t.Errorf("Telegram.ThreadID = %q, want 4061", cfg.Telegram.ThreadID)
	}
}

func TestLoadOverridesAndMergesDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	content := `[session]
name = "heatpump_log"
capture = false

[guard]
jitter_min_ms = 50
jitter_max_ms = 200
lock = true

[logger]
data_dir = "data"
device_timeout_s = 5

[[device]]
ip = "10.0.0.8"

[telegram]
enabled = false
`
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Session.Name != "heatpump_log" {
		t.Errorf("Session.Name = %q, want heatpump_log", cfg.Session.Name)
	}
	if cfg.Session.Capture {
		t.Error("Session.Capture = true, want false")
	}
	// Unset keys keep their defaults.
	if cfg.Session.LogFile != "tasmota_log.log" {
		t.Errorf("Session.LogFile = %q, want default tasmota_log.log", cfg.Session.LogFile)
	}
	if cfg.Guard.LockFile != ".plugwatch.lock" {
		t.Errorf("Guard.LockFile = %q, want default .plugwatch.lock", cfg.Guard.LockFile)
	}
	// An explicit device list replaces the default list.
	if len(cfg.Devices) != 1 || cfg.Devices[0].IP != "10.0.0.8" {
		t.Errorf("Devices = %+v, want single 10.0.0.8", cfg.Devices)
	}
	if cfg.Telegram.Enabled {
		t.Error("Telegram.Enabled = true, want false")
	}
	if got := cfg.DeviceTimeout(); got != 5*time.Second {
		t.Errorf("DeviceTimeout = %v, want 5s", got)
	}
	min, max := cfg.JitterRange()
	if min != 50*time.Millisecond || max != 200*time.Millisecond {
		t.Errorf("JitterRange = %v..%v, want 50ms..200ms", min, max)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{
			name: "jitter min above max",
			content: `[guard]
jitter_min_ms = 900
jitter_max_ms = 100
`,
		},
		{
			name: "negative jitter",
			content: `[guard]
jitter_min_ms = -5
`,
		},
		{
			name: "empty session name",
			content: `[session]
name = "  "
`,
		},
		{
			name: "bad device ip",
			content: `[[device]]
ip = "not-an-ip"
`,
		},
		{
			name: "zero device timeout",
			content: `[logger]
device_timeout_s = 0
`,
		},
		{
			name: "lock without lock file",
			content: `[guard]
lock = true
lock_file = ""
`,
		},
		{
			name:    "malformed toml",
			content: `[session`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), FileName)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestResolve(t *testing.T) {
	if got := Resolve("/etc/pw.toml", "/opt/pw"); got != "/etc/pw.toml" {
		t.Errorf("flag path: got %q", got)
	}

	t.Setenv(EnvConfigPath, "/env/pw.toml")
	if got := Resolve("", "/opt/pw"); got != "/env/pw.toml" {
		t.Errorf("env path: got %q", got)
	}

	t.Setenv(EnvConfigPath, "")
	want := filepath.Join("/opt/pw", FileName)
	if got := Resolve("", "/opt/pw"); got != want {
		t.Errorf("default path: got %q, want %q", got, want)
	}
}

func TestDataDir(t *testing.T) {
	t.Parallel()

	cfg := Default()
	if got := cfg.DataDir("/opt/pw"); got != "/opt/pw" {
		t.Errorf("empty data_dir: got %q, want /opt/pw", got)
	}

	cfg.Logger.DataDir = "data"
	want := filepath.Join("/opt/pw", "data")
	if got := cfg.DataDir("/opt/pw"); got != want {
		t.Errorf("relative data_dir: got %q, want %q", got, want)
	}

	cfg.Logger.DataDir = "/var/lib/plugwatch"
	if got := cfg.DataDir("/opt/pw"); got != "/var/lib/plugwatch" {
		t.Errorf("absolute data_dir: got %q", got)
	}
}
