// Package hooks implements the host lifecycle hooks served by
// `cdd hook <name>`.
//
// Every hook reads the host's JSON input from stdin with a bounded wait,
// resolves the project from the input's working directory and does nothing
// at all outside a cdd project. Hooks never fail: errors and panics end up
// in the debug log and the process still exits 0.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/papapumpkin/cdd/internal/config"
	"github.com/papapumpkin/cdd/internal/debuglog"
	"github.com/papapumpkin/cdd/internal/hookinput"
	"github.com/papapumpkin/cdd/internal/monitor"
	"github.com/papapumpkin/cdd/internal/notify"
	"github.com/papapumpkin/cdd/internal/progress"
	"github.com/papapumpkin/cdd/internal/project"
)

// Hook names.
const (
	SessionStart = "session-start"
	Stop         = "stop"
	Notification = "notification"
	ScopeGuard   = "scope-guard"
	StatusLine   = "statusline"
	UpdateCheck  = "update-check"
)

// ErrUnknownHook is returned by Run for a name not in Names.
var ErrUnknownHook = errors.New("hooks: unknown hook")

// Env is the environment of one hook invocation.
type Env struct {
	Settings config.Settings
	Stdin    *os.File
	Stdout   io.Writer

	// Version is the running cdd build version.
	Version string
	// Fetch makes update-check query the registry instead of scheduling a
	// background query.
	Fetch bool
	// Windows enables the status-line first-render workaround.
	Windows bool

	Now func() time.Time
	// NewDispatcher builds the dispatcher for an opened project.
	NewDispatcher func(p *project.Project) *notify.Dispatcher
	// StartFetch launches the background registry query.
	StartFetch func() error
	// MarkerPath is where the status line counts early renders.
	MarkerPath string
}

// Func is the body of one hook.
type Func func(ctx context.Context, env *Env) error

var registry = map[string]Func{
	SessionStart: runSessionStart,
	Stop:         runStop,
	Notification: runNotification,
	ScopeGuard:   runScopeGuard,
	StatusLine:   runStatusLine,
	UpdateCheck:  runUpdateCheck,
}

// Names lists the hooks in registration order.
func Names() []string {
	return []string{SessionStart, Stop, Notification, ScopeGuard, StatusLine, UpdateCheck}
}

// Run executes the named hook. The only error it returns is ErrUnknownHook;
// hook failures are logged.
func Run(ctx context.Context, name string, env *Env) (err error) {
	fn, ok := registry[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownHook, name)
	}
	env.defaults()

	defer func() {
		if r := recover(); r != nil {
			logFailure(env, name, fmt.Errorf("panic: %v", r))
			err = nil
		}
	}()
	if herr := fn(ctx, env); herr != nil {
		logFailure(env, name, herr)
	}
	return nil
}

func (env *Env) defaults() {
	if env.Stdout == nil {
		env.Stdout = os.Stdout
	}
	if env.Stdin == nil {
		env.Stdin = os.Stdin
	}
	if env.Now == nil {
		env.Now = time.Now
	}
	if env.NewDispatcher == nil {
		env.NewDispatcher = notify.New
	}
}

// logFailure records a hook error in the debug log of the project in the
// process working directory.
func logFailure(env *Env, name string, err error) {
	root, ok := project.FindRoot("")
	if !ok {
		return
	}
	log := debuglog.Open(root, env.Settings.Debug)
	defer log.Close()
	log.Source(name).WithError(err).Warn("hook error")
}

// readInput waits for the hook input. ok is false when none arrived.
func (env *Env) readInput() (hookinput.Input, bool) {
	return hookinput.FromFile(env.Stdin, env.Settings.StdinTimeout())
}

// invocation is an opened project plus the hook's log entry.
type invocation struct {
	in      hookinput.Input
	project *project.Project
	log     *logrus.Entry
}

// open resolves the project for in. ok is false outside a cdd project.
func open(env *Env, name string, in hookinput.Input) (*invocation, bool) {
	p, ok := project.Open(in.Dir(), env.Settings)
	if !ok {
		return nil, false
	}
	return &invocation{in: in, project: p, log: p.Log.Source(name)}, true
}

func (iv *invocation) close() {
	iv.project.Close()
}

// statusPayload builds the common fields of an event payload.
func (iv *invocation) statusPayload(status string) notify.Payload {
	sum := progress.Summarize(iv.project)
	return notify.Payload{
		"session_id":       nullable(iv.in.SessionID),
		"status":           status,
		"phase":            sum.PhaseLabel,
		"module":           nullable(sum.Stats.Active),
		"modules_complete": nullable(sum.ModulesComplete()),
		"project":          sum.Project,
		"cwd":              iv.project.Dir,
	}
}

// priorStartedAt carries started_at over from the last snapshot.
func (iv *invocation) priorStartedAt() any {
	snap, ok := monitor.ReadSnapshot(iv.project.Root)
	if !ok {
		return nil
	}
	if s := snap.String(notify.KeyStartedAt); s != "" {
		return s
	}
	return nil
}

func (iv *invocation) dispatch(env *Env, event string, payload notify.Payload) notify.Result {
	res := env.NewDispatcher(iv.project).Dispatch(event, payload, iv.project.Root)
	iv.log.WithFields(logrus.Fields{
		"event":    event,
		"snapshot": res.SnapshotWritten,
		"spawned":  res.Spawned,
	}).Debug("dispatched")
	return res
}

// nullable maps "" to JSON null.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
