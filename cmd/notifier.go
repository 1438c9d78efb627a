package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/cdd/internal/notifier"
	"github.com/papapumpkin/cdd/internal/notify"
)

var notifierCmd = &cobra.Command{
	Use:    "notifier",
	Short:  "Deliver one payload with a built-in notifier",
	Long:   "Reads a notifier payload from stdin and delivers it. The dispatcher runs these detached; they are not meant to be called by hand.",
	Hidden: true,
}

func init() {
	for _, kind := range notify.Builtins {
		notifierCmd.AddCommand(&cobra.Command{
			Use:   kind,
			Short: "Deliver a payload via " + kind,
			Args:  cobra.NoArgs,
			RunE:  runNotifier,
		})
	}
	rootCmd.AddCommand(notifierCmd)
}

func runNotifier(cmd *cobra.Command, _ []string) error {
	notifier.Run(cmd.Context(), cmd.Name(), os.Stdin, loadSettings(cmd))
	return nil
}
