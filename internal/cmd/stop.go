package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plugwatch/plugwatch/internal/session"
	"github.com/plugwatch/plugwatch/internal/style"
)

var stopCmd = &cobra.Command{
	Use:     "stop",
	GroupID: GroupGuard,
	Short:   "Kill the logger session",
	Long: `Terminate the logger's screen session.

Cron will bring it back on the next 'plugwatch ensure' tick; remove the
crontab entry first to stop logging for good.`,
	Args: cobra.NoArgs,
	RunE: runStop,
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	dir, err := workDir()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(dir)
	if err != nil {
		return err
	}

	scr := session.NewScreen()
	alive, err := session.Alive(scr, cfg.Session.Name)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}
	if err := scr.Kill(cfg.Session.Name); err != nil {
		return fmt.Errorf("stopping session: %w", err)
	}

	if alive {
		fmt.Printf("%s session %s stopped\n", style.SuccessPrefix, cfg.Session.Name)
	} else {
		fmt.Println(style.Dim.Render(fmt.Sprintf("session %s was not running", cfg.Session.Name)))
	}
	return nil
}
