package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plugwatch/plugwatch/internal/session"
	"github.com/plugwatch/plugwatch/internal/style"
	"github.com/plugwatch/plugwatch/internal/telemetry"
)

var wipeCmd = &cobra.Command{
	Use:     "wipe",
	GroupID: GroupGuard,
	Short:   "Remove dead session entries",
	Long: `Reap dead screen sessions (screen -wipe).

The guard does this automatically when it finds the logger session dead;
this command is for cleaning up by hand.`,
	Args: cobra.NoArgs,
	RunE: runWipe,
}

func init() {
	rootCmd.AddCommand(wipeCmd)
}

func runWipe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	provider, err := telemetry.Init(ctx, "plugwatch", Version)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s telemetry disabled: %v\n", style.WarningPrefix, err)
	}
	defer shutdownTelemetry(provider)

	scr := session.NewScreen()

	infos, err := scr.List()
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}
	dead := 0
	for _, info := range infos {
		if info.State.Dead() {
			dead++
		}
	}
	if dead == 0 {
		fmt.Println(style.Dim.Render("no dead sessions"))
		return nil
	}

	err = scr.WipeDead()
	telemetry.RecordWipe(ctx, err)
	if err != nil {
		return fmt.Errorf("wiping sessions: %w", err)
	}

	fmt.Printf("%s wiped %d dead session(s)\n", style.SuccessPrefix, dead)
	return nil
}
