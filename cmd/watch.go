package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/cdd/internal/monitor"
	"github.com/papapumpkin/cdd/internal/project"
	"github.com/papapumpkin/cdd/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the monitor snapshot and print each change",
	Long: `Prints the current monitor snapshot, then one line per change until
interrupted. Run it next to a session to see hook activity as it happens.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	root, ok := project.FindRoot("")
	if !ok {
		return errNotProject
	}
	printer := ui.New(cmd.OutOrStdout())

	w, err := monitor.NewWatcher(root)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	if snap, ok := monitor.ReadSnapshot(root); ok {
		printer.Update(monitor.Update{Snapshot: snap})
	} else {
		printer.Info("waiting for the first event...")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return follow(ctx, w.Updates, printer)
}

// follow prints updates until ctx is done or updates is closed.
func follow(ctx context.Context, updates <-chan monitor.Update, printer *ui.Printer) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			printer.Update(u)
		}
	}
}
