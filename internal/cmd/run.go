package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/plugwatch/plugwatch/internal/config"
	"github.com/plugwatch/plugwatch/internal/monitor"
	"github.com/plugwatch/plugwatch/internal/telegram"
	"github.com/plugwatch/plugwatch/internal/telemetry"
)

var runCmd = &cobra.Command{
	Use:     "run",
	GroupID: GroupLog,
	Short:   "Poll the plugs and log their readings",
	Long: `Run the energy logger payload: poll every configured plug at the 10s
marks of one minute, append the readings to the per-device CSV logs,
detect appliance cycle transitions, and notify over Telegram.

Exits after the last mark; the guard (via cron) starts the next run.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

var (
	runOnce    bool
	runDataDir string
)

func init() {
	runCmd.Flags().BoolVar(&runOnce, "once", false, "Poll a single round and exit")
	runCmd.Flags().StringVar(&runDataDir, "data-dir", "", "Directory for CSV logs and sidecars (default from config)")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	dir, err := workDir()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(dir)
	if err != nil {
		return err
	}
	if len(cfg.Devices) == 0 {
		return fmt.Errorf("no devices configured")
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)

	provider, err := telemetry.Init(ctx, "plugwatch", Version)
	if err != nil {
		logger.Printf("telemetry disabled: %v", err)
	}
	defer shutdownTelemetry(provider)

	dataDir := cfg.DataDir(dir)
	if runDataDir != "" {
		dataDir = absIn(dir, runDataDir)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	notifier, err := buildNotifier(cfg)
	if err != nil {
		// Keep logging readings; announcing cycles can wait for the fix.
		logger.Printf("notifications disabled: %v", err)
	}

	addrs := make([]string, 0, len(cfg.Devices))
	for _, d := range cfg.Devices {
		addrs = append(addrs, d.IP)
	}

	lastCommand := "plugwatch run"
	if runOnce {
		lastCommand = "plugwatch run --once"
	}

	m := monitor.New(monitor.Config{
		Devices:     addrs,
		DataDir:     dataDir,
		Timeout:     cfg.DeviceTimeout(),
		Notifier:    notifier,
		Logger:      logger,
		LastCommand: lastCommand,
	})

	if runOnce {
		err = m.RunOnce(ctx)
	} else {
		err = m.Run(ctx)
	}
	if errors.Is(err, context.Canceled) {
		logger.Printf("interrupted")
		return nil
	}
	return err
}

// buildNotifier constructs the Telegram client from config. Disabled
// notifications yield a nil notifier, which the monitor logs instead.
func buildNotifier(cfg *config.Config) (monitor.Notifier, error) {
	if !cfg.Telegram.Enabled {
		return nil, nil
	}
	token, err := telegram.ReadCredential(cfg.Telegram.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("reading bot token: %w", err)
	}
	chatID, err := telegram.ReadCredential(cfg.Telegram.ChatIDFile)
	if err != nil {
		return nil, fmt.Errorf("reading chat id: %w", err)
	}
	return telegram.NewClient(token, chatID, telegram.WithThreadID(cfg.Telegram.ThreadID)), nil
}
