package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plugwatch/plugwatch/internal/style"
)

var notifyTestCmd = &cobra.Command{
	Use:    "notify-test <text>",
	Hidden: true,
	Short:  "Send a probe message over Telegram",
	Long: `Send a message through the configured Telegram bot to verify the
credentials, chat id, and thread id actually deliver.`,
	Args: cobra.ExactArgs(1),
	RunE: runNotifyTest,
}

var notifyTestLoud bool

func init() {
	notifyTestCmd.Flags().BoolVar(&notifyTestLoud, "loud", false, "Send with notification sound")

	rootCmd.AddCommand(notifyTestCmd)
}

func runNotifyTest(cmd *cobra.Command, args []string) error {
	dir, err := workDir()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(dir)
	if err != nil {
		return err
	}

	notifier, err := buildNotifier(cfg)
	if err != nil {
		return err
	}
	if notifier == nil {
		return fmt.Errorf("telegram is disabled in the config")
	}

	if err := notifier.Send(cmd.Context(), args[0], notifyTestLoud); err != nil {
		return fmt.Errorf("sending probe: %w", err)
	}
	fmt.Printf("%s delivered\n", style.SuccessPrefix)
	return nil
}
