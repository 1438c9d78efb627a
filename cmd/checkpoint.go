package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/cdd/internal/checkpoint"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint <command> [details...]",
	Short: "Commit all changes before a cdd command runs",
	Long: `Stages and commits every change in the working tree with the message
"cdd(checkpoint): before <command> <details>". Prints the result as JSON.
Outside a git repository, or with a clean tree, nothing is committed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheckpoint,
}

func init() {
	checkpointCmd.Flags().String("dir", "", "repository directory (default: current directory)")
	rootCmd.AddCommand(checkpointCmd)
}

func runCheckpoint(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("dir")
	g := &checkpoint.Git{Dir: dir}
	res := g.Create(cmd.Context(), args[0], strings.Join(args[1:], " "))
	return writeJSON(cmd.OutOrStdout(), res)
}
