package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/plugwatch/plugwatch/internal/config"
	"github.com/plugwatch/plugwatch/internal/telemetry"
)

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file (default <executable dir>/plugwatch.toml)")
}

// workDir returns the executable's directory. Every relative path in the
// configuration (log file, data dir, lock file) resolves against it, so
// the scheduler's working directory never matters.
func workDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locating executable: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("resolving executable path: %w", err)
	}
	return filepath.Dir(exe), nil
}

// loadConfig loads the configuration for the pinned working directory,
// honoring the --config flag and PLUGWATCH_CONFIG.
func loadConfig(dir string) (*config.Config, error) {
	return config.Load(config.Resolve(configPath, dir))
}

// absIn anchors a relative path in dir. Absolute paths pass through.
func absIn(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// shutdownTelemetry flushes pending telemetry. The guard lives for under a
// second, so without the flush its counters would never leave the process.
func shutdownTelemetry(p *telemetry.Provider) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry shutdown: %v\n", err)
	}
}
