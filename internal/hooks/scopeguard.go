package hooks

import (
	"context"
	"fmt"

	"github.com/papapumpkin/cdd/internal/notify"
	"github.com/papapumpkin/cdd/internal/progress"
	"github.com/papapumpkin/cdd/internal/project"
	"github.com/papapumpkin/cdd/internal/scope"
)

// runScopeGuard warns when a write during the build cycle lands outside
// the active module. It never blocks the write.
func runScopeGuard(_ context.Context, env *Env) error {
	in, ok := env.readInput()
	if !ok {
		return nil
	}
	iv, ok := open(env, ScopeGuard, in)
	if !ok {
		return nil
	}
	defer iv.close()

	st := iv.project.State
	if st.Phase != project.PhaseBuildCycle {
		return nil
	}
	module, ok := st.ActiveModule()
	if !ok {
		return nil
	}
	rel, ok := scope.Relative(in.ToolInput.FilePath, iv.project.Dir)
	if !ok {
		return nil
	}

	contract, _ := iv.project.Contract(module)
	rules := scope.RulesFor(module, iv.project.Config, contract)
	if rules.Allows(rel) {
		iv.log.WithField("file", rel).WithField("module", module).Debug("in scope")
		return nil
	}

	iv.log.WithField("file", rel).WithField("module", module).Debug("out of scope")
	fmt.Fprintln(env.Stdout, rules.Warning(rel))

	iv.dispatch(env, notify.EventScopeWarning, notify.Payload{
		"session_id":   nullable(in.SessionID),
		"status":       notify.StatusRunning,
		"phase":        progress.PhaseLabel(project.PhaseBuildCycle),
		"module":       module,
		"project":      iv.project.Name(),
		"cwd":          iv.project.Dir,
		"warning_file": rel,
		"message":      "Out-of-scope write: " + rel,
	})
	return nil
}
