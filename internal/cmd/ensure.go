package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/plugwatch/plugwatch/internal/guard"
	"github.com/plugwatch/plugwatch/internal/session"
	"github.com/plugwatch/plugwatch/internal/style"
	"github.com/plugwatch/plugwatch/internal/telemetry"
)

var ensureCmd = &cobra.Command{
	Use:     "ensure",
	GroupID: GroupGuard,
	Short:   "Start the logger session unless it is already running",
	Long: `Ensure exactly one detached screen session is running the energy logger.

Meant to be invoked from cron every minute. When the session is already
alive the command exits with code 1 without touching anything, so
overlapping invocations cannot start a second logger. Dead session
entries are wiped on the way out.`,
	Args: cobra.NoArgs,
	RunE: runEnsure,
}

var (
	ensureCapture   bool
	ensureNoCapture bool
)

func init() {
	ensureCmd.Flags().BoolVar(&ensureCapture, "capture", false, "Tee payload output into the session log file")
	ensureCmd.Flags().BoolVar(&ensureNoCapture, "no-capture", false, "Run the payload without the tee")
	ensureCmd.MarkFlagsMutuallyExclusive("capture", "no-capture")

	rootCmd.AddCommand(ensureCmd)
}

func runEnsure(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	dir, err := workDir()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(dir)
	if err != nil {
		return err
	}

	provider, err := telemetry.Init(ctx, "plugwatch", Version)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s telemetry disabled: %v\n", style.WarningPrefix, err)
	}
	defer shutdownTelemetry(provider)

	opts := guard.Options{
		SessionName: cfg.Session.Name,
		WorkDir:     dir,
		Command:     payloadCommand(cfg.Session.Command, cfg.Session.LogFile, resolveCapture(cfg.Session.Capture)),
	}
	opts.JitterMin, opts.JitterMax = cfg.JitterRange()
	if cfg.Guard.Lock {
		opts.LockFile = absIn(dir, cfg.Guard.LockFile)
	}

	outcome, err := guard.EnsureRunning(session.NewScreen(), opts)
	telemetry.RecordGuardRun(ctx, cfg.Session.Name, outcome, err)

	if errors.Is(err, guard.ErrAlreadyRunning) {
		fmt.Println(style.Dim.Render(fmt.Sprintf("session %s already running", cfg.Session.Name)))
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return NewSilentExit(1)
	}
	if err != nil {
		return fmt.Errorf("ensuring session: %w", err)
	}

	switch outcome {
	case guard.OutcomeCreated:
		fmt.Printf("%s session %s started\n", style.SuccessPrefix, cfg.Session.Name)
	case guard.OutcomeSkippedCreate:
		fmt.Println(style.Dim.Render(fmt.Sprintf("session %s appeared during jitter, nothing to do", cfg.Session.Name)))
	}
	return nil
}

// resolveCapture applies the --capture/--no-capture overrides to the
// configured default.
func resolveCapture(configured bool) bool {
	if ensureCapture {
		return true
	}
	if ensureNoCapture {
		return false
	}
	return configured
}

// payloadCommand builds the session command. The default invokes this very
// binary relative to the session's working directory, which is the
// executable's own directory.
func payloadCommand(configured, logFile string, capture bool) string {
	base := configured
	if base == "" {
		base = "./plugwatch run"
		if exe, err := os.Executable(); err == nil {
			base = "./" + filepath.Base(exe) + " run"
		}
	}
	return guard.PayloadCommand(base, logFile, capture)
}
