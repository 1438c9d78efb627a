package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/cdd/internal/install"
	"github.com/papapumpkin/cdd/internal/updatecheck"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build and installed versions",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	home := loadSettings(cmd).ClaudeHome

	fmt.Fprintf(out, "cdd %s\n", Version)

	if m, ok := install.Load(home); ok {
		fmt.Fprintf(out, "installed: %s (%s)\n", m.Version, m.InstalledAt.Format("2006-01-02"))
		for _, f := range m.Modified(home) {
			fmt.Fprintf(out, "  modified: %s\n", f)
		}
	} else if v, ok := install.InstalledVersion(home); ok {
		fmt.Fprintf(out, "installed: %s\n", v)
	}

	if r, ok := updatecheck.ReadCache(home); ok {
		if v, ok := r.Available(); ok {
			fmt.Fprintf(out, "update available: %s\n", v)
		}
	}
	return nil
}
