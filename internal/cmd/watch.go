package cmd

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	watchtui "github.com/plugwatch/plugwatch/internal/tui/watch"
	"github.com/plugwatch/plugwatch/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	GroupID: GroupDiag,
	Short:   "Live dashboard of plug readings",
	Long: `Show a live terminal dashboard: current power draw, daily and lifetime
totals, and relay state for every configured plug, plus the logger
session and heartbeat state.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

var watchInterval time.Duration

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 10*time.Second, "Poll interval")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if !ui.IsTerminal() {
		return fmt.Errorf("the dashboard needs an interactive terminal")
	}
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

	addrs := make([]string, 0, len(cfg.Devices))
	for _, d := range cfg.Devices {
		addrs = append(addrs, d.IP)
	}

	m := watchtui.NewModel(watchtui.Config{
		Devices:     addrs,
		Timeout:     cfg.DeviceTimeout(),
		DataDir:     cfg.DataDir(dir),
		SessionName: cfg.Session.Name,
		Interval:    watchInterval,
	})

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running dashboard: %w", err)
	}
	return nil
}
