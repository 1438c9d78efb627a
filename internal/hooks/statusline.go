package hooks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/papapumpkin/cdd/internal/ansi"
	"github.com/papapumpkin/cdd/internal/config"
	"github.com/papapumpkin/cdd/internal/hookinput"
	"github.com/papapumpkin/cdd/internal/progress"
	"github.com/papapumpkin/cdd/internal/project"
	"github.com/papapumpkin/cdd/internal/updatecheck"
)

// earlyRenders is how many status-line renders per session are replaced by
// a blank segment while the Windows host settles its layout.
const earlyRenders = 4

// blankSegment is printed instead of the status during early renders.
const blankSegment = ansi.Dim + " " + ansi.Reset

// markerFile counts renders for the current session under os.TempDir.
const markerFile = "cdd-statusline-session"

// runStatusLine prints "Model │ PHASE: module (x/y) │ dir │ Update: vX"
// with each segment dimmed and no trailing newline.
func runStatusLine(_ context.Context, env *Env) error {
	in, _ := env.readInput()

	if env.Windows && earlyRender(env.markerPath(), in.SessionID) {
		fmt.Fprint(env.Stdout, blankSegment)
		return nil
	}
	fmt.Fprint(env.Stdout, RenderStatusLine(in, env.Settings))
	return nil
}

// RenderStatusLine builds the status line for in.
func RenderStatusLine(in hookinput.Input, settings config.Settings) string {
	dir := in.Dir()
	var parts []string
	if m := in.Model.DisplayName; m != "" {
		parts = append(parts, m)
	}

	if p, ok := project.Open(dir, settings); ok {
		parts = append(parts, progress.Summarize(p).StatusSegment())
		p.Close()
	}

	parts = append(parts, filepath.Base(dir))

	if r, ok := updatecheck.ReadCache(settings.ClaudeHome); ok {
		if v, ok := r.Available(); ok {
			parts = append(parts, "Update: v"+v)
		}
	}
	return ansi.JoinDimmed(parts)
}

func (env *Env) markerPath() string {
	if env.MarkerPath != "" {
		return env.MarkerPath
	}
	return filepath.Join(os.TempDir(), markerFile)
}

// earlyRender reports whether this render is one of the first earlyRenders
// of the session, counting it in the marker file.
func earlyRender(marker, sessionID string) bool {
	if sessionID == "" {
		return false
	}
	count := 0
	if data, err := os.ReadFile(marker); err == nil {
		id, n, found := strings.Cut(strings.TrimSpace(string(data)), "\n")
		if found && id == sessionID {
			count, _ = strconv.Atoi(strings.TrimSpace(n))
		}
	}
	if count >= earlyRenders {
		return false
	}
	_ = os.WriteFile(marker, []byte(sessionID+"\n"+strconv.Itoa(count+1)), 0o644)
	return true
}
