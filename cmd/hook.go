package cmd

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/cdd/internal/hooks"
	"github.com/papapumpkin/cdd/internal/notify"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Run a host lifecycle hook",
	Long: `Runs one lifecycle hook with the host's JSON input on stdin.

Hooks do nothing outside a cdd project and always exit 0; failures are
written to .cdd/debug.log when debugging is enabled.`,
}

var hookShort = map[string]string{
	hooks.SessionStart: "Print the project banner and record session start",
	hooks.Stop:         "Record the end of a response with its last message",
	hooks.Notification: "Forward input and permission requests to notifiers",
	hooks.ScopeGuard:   "Warn about writes outside the active module",
	hooks.StatusLine:   "Print the status line",
	hooks.UpdateCheck:  "Check the package registry for a newer release",
}

func init() {
	for _, name := range hooks.Names() {
		sub := &cobra.Command{
			Use:   name,
			Short: hookShort[name],
			Args:  cobra.NoArgs,
			RunE:  runHook,
		}
		if name == hooks.UpdateCheck {
			sub.Flags().Bool("fetch", false, "query the registry now and refresh the cache")
			_ = sub.Flags().MarkHidden("fetch")
		}
		hookCmd.AddCommand(sub)
	}
	rootCmd.AddCommand(hookCmd)
}

func runHook(cmd *cobra.Command, _ []string) error {
	fetch, _ := cmd.Flags().GetBool("fetch")
	env := &hooks.Env{
		Settings:   loadSettings(cmd),
		Stdout:     cmd.OutOrStdout(),
		Version:    Version,
		Fetch:      fetch,
		Windows:    runtime.GOOS == "windows",
		StartFetch: startBackgroundFetch,
	}
	return hooks.Run(cmd.Context(), cmd.Name(), env)
}

// startBackgroundFetch re-runs update-check detached with --fetch so the
// registry query outlives the hook.
func startBackgroundFetch() error {
	s := notify.NewProcessSpawner()
	return s.Start(s.Executable, []string{"hook", hooks.UpdateCheck, "--fetch"}, nil)
}
