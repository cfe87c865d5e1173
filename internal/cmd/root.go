// Package cmd provides CLI commands for the plugwatch tool.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:     "plugwatch",
	Short:   "Tasmota energy logger with a screen session guard",
	Version: Version,
	Long: `Plugwatch logs power readings from Tasmota smart plugs and announces
appliance cycles over Telegram.

The logger runs inside a named GNU screen session. 'plugwatch ensure' is
the cron-driven guard that keeps that session alive; 'plugwatch run' is
the payload it supervises.`,
}

// Execute runs the root command and returns an exit code.
// The caller (main) should call os.Exit with this code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		// Check for silent exit (flows that signal status via exit code)
		if code, ok := IsSilentExit(err); ok {
			return code
		}
		// Other errors already printed by cobra
		return 1
	}
	return 0
}

// Command group IDs - used by subcommands to organize help output
const (
	GroupGuard = "guard"
	GroupLog   = "logging"
	GroupDiag  = "diag"
)

func init() {
	// Enable prefix matching for subcommands (e.g., "plugwatch st" -> "plugwatch status")
	cobra.EnablePrefixMatching = true

	// Define command groups (order determines help output order)
	rootCmd.AddGroup(
		&cobra.Group{ID: GroupGuard, Title: "Session Guard:"},
		&cobra.Group{ID: GroupLog, Title: "Energy Logging:"},
		&cobra.Group{ID: GroupDiag, Title: "Diagnostics:"},
	)

	// Put help and completion in a sensible group
	rootCmd.SetHelpCommandGroupID(GroupDiag)
	rootCmd.SetCompletionCommandGroupID(GroupDiag)
}
