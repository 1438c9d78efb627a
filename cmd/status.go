package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/cdd/internal/monitor"
	"github.com/papapumpkin/cdd/internal/project"
	"github.com/papapumpkin/cdd/internal/telemetry"
	"github.com/papapumpkin/cdd/internal/ui"
)

// errNotProject is returned by commands that need a .cdd project.
var errNotProject = errors.New("not a cdd project (no .cdd/state.yaml found)")

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show project progress and the last recorded event",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().Bool("json", false, "output status as JSON to stdout")
	statusCmd.Flags().Int("events", 5, "number of recent dispatch journal entries to show")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	p, ok := project.Open("", loadSettings(cmd))
	if !ok {
		return errNotProject
	}
	defer p.Close()

	snap, _ := monitor.ReadSnapshot(p.Root)

	n, _ := cmd.Flags().GetInt("events")
	var events []telemetry.Event
	if n > 0 {
		var err error
		events, err = telemetry.Tail(telemetry.Path(monitor.Dir(p.Root)), n)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
		}
	}

	view := ui.NewStatusView(p, snap, events)

	jsonFlag, _ := cmd.Flags().GetBool("json")
	if jsonFlag {
		return writeJSON(cmd.OutOrStdout(), view)
	}
	ui.New(cmd.OutOrStdout()).Status(view)
	return nil
}

// writeJSON encodes v as indented JSON to w.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
