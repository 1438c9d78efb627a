package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/cdd/internal/config"
)

// Version is the build version, set with -ldflags "-X".
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:           "cdd",
	Short:         "Contract-driven development hook engine",
	Long:          "cdd serves the host lifecycle hooks of a contract-driven project: it tracks progress, records status snapshots and fans events out to notifiers.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "write diagnostics to .cdd/debug.log")
}

// loadSettings resolves process settings from the environment, letting
// --debug force the debug log on.
func loadSettings(cmd *cobra.Command) config.Settings {
	s := config.Load()
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		s.Debug = true
	}
	return s
}
