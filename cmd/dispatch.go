package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/cdd/internal/notify"
	"github.com/papapumpkin/cdd/internal/progress"
	"github.com/papapumpkin/cdd/internal/project"
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch <event>",
	Short: "Dispatch an event by hand",
	Long: `Records a snapshot for <event> and spawns the matching notifiers, exactly
as a hook would. The payload starts from the project's current progress;
--field key=value adds or overrides fields. Useful to test notifier setup.`,
	Example: `  cdd dispatch needs_input --field message="Waiting for review"
  cdd dispatch stopped --field status=STOPPED`,
	Args: cobra.ExactArgs(1),
	RunE: runDispatch,
}

func init() {
	dispatchCmd.Flags().StringArray("field", nil, "payload field as key=value (repeatable)")
	dispatchCmd.Flags().String("status", notify.StatusRunning, "payload status")
	rootCmd.AddCommand(dispatchCmd)
}

// dispatchJSON is the --json shape of a dispatch result.
type dispatchJSON struct {
	DispatchID      string `json:"dispatch_id"`
	SnapshotWritten bool   `json:"snapshot_written"`
	Matched         int    `json:"matched"`
	Spawned         int    `json:"spawned"`
}

func runDispatch(cmd *cobra.Command, args []string) error {
	event := strings.TrimSpace(args[0])
	if event == "" {
		return fmt.Errorf("dispatch: empty event name")
	}
	fields, _ := cmd.Flags().GetStringArray("field")
	status, _ := cmd.Flags().GetString("status")

	p, ok := project.Open("", loadSettings(cmd))
	if !ok {
		return errNotProject
	}
	defer p.Close()

	payload, err := manualPayload(p, status, fields)
	if err != nil {
		return err
	}
	res := notify.New(p).Dispatch(event, payload, p.Root)
	return writeJSON(cmd.OutOrStdout(), dispatchJSON{
		DispatchID:      res.DispatchID,
		SnapshotWritten: res.SnapshotWritten,
		Matched:         res.Matched,
		Spawned:         res.Spawned,
	})
}

// manualPayload builds the progress fields of p and applies key=value
// overrides on top.
func manualPayload(p *project.Project, status string, fields []string) (notify.Payload, error) {
	sum := progress.Summarize(p)
	payload := notify.Payload{
		"status":  status,
		"phase":   sum.PhaseLabel,
		"project": sum.Project,
		"cwd":     p.Dir,
	}
	if sum.Stats.HasActive() {
		payload["module"] = sum.Stats.Active
	}
	if mc := sum.ModulesComplete(); mc != "" {
		payload["modules_complete"] = mc
	}

	for _, f := range fields {
		key, value, found := strings.Cut(f, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, fmt.Errorf("dispatch: invalid --field %q (want key=value)", f)
		}
		payload[key] = value
	}
	return payload, nil
}
