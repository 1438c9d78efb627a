package hooks

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/papapumpkin/cdd/internal/config"
	"github.com/papapumpkin/cdd/internal/monitor"
	"github.com/papapumpkin/cdd/internal/notify"
	"github.com/papapumpkin/cdd/internal/project"
)

const buildState = `phase: build_cycle
modules:
  auth:
    status: complete
  billing:
    status: in_progress
  reports: pending
`

const shopConfig = `project_name: shop
paths:
  source: app
  tests: spec
notifications:
  enabled: true
  notifiers:
    - type: custom
      events: all
      command: notify-send cdd
`

var fixedNow = time.Date(2026, 4, 5, 6, 7, 8, 9_000_000, time.UTC)

type spawnRecorder struct {
	mu    sync.Mutex
	count int
}

func (r *spawnRecorder) Spawn(project.NotifierConfig, []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	return nil
}

func (r *spawnRecorder) spawned() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// fixture is a project directory plus the env to run hooks in it.
type fixture struct {
	dir    string
	root   string
	home   string
	out    *bytes.Buffer
	spawns *spawnRecorder
}

func newFixture(t *testing.T, state, cfg string) *fixture {
	t.Helper()
	dir := t.TempDir()
	root := filepath.Join(dir, project.DirName)
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	if state != "" {
		writeFile(t, filepath.Join(root, project.StateFile), state)
	}
	if cfg != "" {
		writeFile(t, filepath.Join(root, project.ConfigFile), cfg)
	}
	return &fixture{dir: dir, root: root, home: t.TempDir(), out: &bytes.Buffer{}, spawns: &spawnRecorder{}}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// stdin returns a file holding content, standing in for the host pipe.
func stdin(t *testing.T, content string) *os.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stdin.json")
	writeFile(t, path, content)
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func (fx *fixture) env(t *testing.T, input string) *Env {
	settings := config.Defaults()
	settings.StdinTimeoutMS = 500
	settings.ClaudeHome = fx.home
	return &Env{
		Settings: settings,
		Stdin:    stdin(t, input),
		Stdout:   fx.out,
		Now:      func() time.Time { return fixedNow },
		NewDispatcher: func(p *project.Project) *notify.Dispatcher {
			d := notify.New(p)
			d.Spawner = fx.spawns
			d.Now = func() time.Time { return fixedNow }
			return d
		},
	}
}

func (fx *fixture) input() string {
	return `{"session_id":"sess-1","cwd":"` + fx.dir + `"}`
}

func (fx *fixture) snapshot(t *testing.T) monitor.Snapshot {
	t.Helper()
	snap, ok := monitor.ReadSnapshot(fx.root)
	if !ok {
		t.Fatal("no snapshot written")
	}
	return snap
}

func run(t *testing.T, name string, env *Env) {
	t.Helper()
	if err := Run(context.Background(), name, env); err != nil {
		t.Fatalf("Run(%s): %v", name, err)
	}
}

func TestSessionStart(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, buildState, shopConfig)

	run(t, SessionStart, fx.env(t, fx.input()))

	want := "[CDD] shop | Phase: BUILD | Module: billing (1/3) | Use /cdd:resume to continue\n"
	if got := fx.out.String(); got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}

	snap := fx.snapshot(t)
	checks := map[string]any{
		"event":            "session_started",
		"status":           "STARTED",
		"phase":            "BUILD",
		"module":           "billing",
		"modules_complete": "1/3",
		"project":          "shop",
		"session_id":       "sess-1",
		"cwd":              fx.dir,
		"started_at":       "2026-04-05T06:07:08.009Z",
		"updated_at":       "2026-04-05T06:07:08.009Z",
	}
	for k, want := range checks {
		if snap[k] != want {
			t.Errorf("snapshot[%s] = %v, want %v", k, snap[k], want)
		}
	}
	if fx.spawns.spawned() != 1 {
		t.Errorf("spawned = %d, want 1", fx.spawns.spawned())
	}
}

func TestSessionStart_PlanningWithoutModules(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, "phase: planning\nplanning:\n  brief:\n    status: complete\n", "")

	run(t, SessionStart, fx.env(t, fx.input()))

	want := "[CDD] " + filepath.Base(fx.dir) + " | Phase: PLANNING | Next: /cdd:plan\n"
	if got := fx.out.String(); got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}
	snap := fx.snapshot(t)
	if snap["module"] != nil || snap["modules_complete"] != nil {
		t.Errorf("module fields = %v, %v; want null", snap["module"], snap["modules_complete"])
	}
}

func TestHooks_NotAProject(t *testing.T) {
	t.Parallel()

	for _, name := range []string{SessionStart, Stop, Notification, ScopeGuard} {
		name := name
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			fx := newFixture(t, "", shopConfig)
			input := `{"type":"permission_prompt","cwd":"` + fx.dir + `","tool_input":{"file_path":"web/x.js"}}`
			run(t, name, fx.env(t, input))

			if fx.out.Len() != 0 {
				t.Errorf("stdout = %q, want nothing", fx.out.String())
			}
			if _, err := os.Stat(monitor.Path(fx.root)); !os.IsNotExist(err) {
				t.Error("snapshot written outside a project")
			}
		})
	}
}

func TestStop(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, buildState, shopConfig)
	writeFile(t, filepath.Join(fx.home, "projects", "p", "sess-1.jsonl"),
		`{"role":"assistant","content":"All tests pass."}`+"\n")
	(&monitor.Store{}).Write(fx.root, monitor.Snapshot{"started_at": "2026-01-01T00:00:00.000Z"})

	run(t, Stop, fx.env(t, fx.input()))

	if fx.out.Len() != 0 {
		t.Errorf("stop printed %q", fx.out.String())
	}
	snap := fx.snapshot(t)
	if snap.Event() != "stopped" || snap["status"] != "STOPPED" {
		t.Errorf("event/status = %v/%v", snap.Event(), snap["status"])
	}
	if snap["last_response"] != "All tests pass." {
		t.Errorf("last_response = %v", snap["last_response"])
	}
	if snap["started_at"] != "2026-01-01T00:00:00.000Z" {
		t.Errorf("started_at = %v", snap["started_at"])
	}
}

func TestStop_WithoutSession(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, buildState, "")

	run(t, Stop, fx.env(t, `{"cwd":"`+fx.dir+`"}`))

	snap := fx.snapshot(t)
	if snap.Event() != "stopped" {
		t.Errorf("event = %v", snap.Event())
	}
	if v, ok := snap["last_response"]; !ok || v != nil {
		t.Errorf("last_response = %v (present %v), want null", v, ok)
	}
	if snap["started_at"] != nil {
		t.Errorf("started_at = %v, want null", snap["started_at"])
	}
}

func TestNotification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		wantEvent string
		status    string
	}{
		{"permission prompt", `{"type":"permission_prompt","message":"Claude needs your permission to use Bash"}`, "needs_permission", "NEEDS_PERMISSION"},
		{"permission in text", `{"notification_type":"other","title":"Permission required"}`, "needs_permission", "NEEDS_PERMISSION"},
		{"idle", `{"type":"idle_prompt","message":"Claude is waiting for your input"}`, "needs_input", "NEEDS_INPUT"},
		{"unknown type", `{"type":"something_new"}`, "needs_input", "NEEDS_INPUT"},
		{"auth success ignored", `{"type":"auth_success"}`, "", ""},
		{"no type ignored", `{"message":"hello"}`, "", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fx := newFixture(t, buildState, shopConfig)
			input := tt.input[:len(tt.input)-1] + `,"cwd":"` + fx.dir + `"}`
			run(t, Notification, fx.env(t, input))

			snap, ok := monitor.ReadSnapshot(fx.root)
			if tt.wantEvent == "" {
				if ok {
					t.Errorf("ignored notification wrote snapshot %v", snap)
				}
				return
			}
			if !ok {
				t.Fatal("no snapshot")
			}
			if snap.Event() != tt.wantEvent || snap["status"] != tt.status {
				t.Errorf("event/status = %v/%v, want %s/%s", snap.Event(), snap["status"], tt.wantEvent, tt.status)
			}
		})
	}
}

func TestNotification_CarriesMessage(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, buildState, shopConfig)
	(&monitor.Store{}).Write(fx.root, monitor.Snapshot{"started_at": "2026-02-02T00:00:00.000Z"})

	input := `{"type":"idle_prompt","message":"Waiting","cwd":"` + fx.dir + `"}`
	run(t, Notification, fx.env(t, input))

	snap := fx.snapshot(t)
	if snap["last_response"] != "Waiting" || snap["started_at"] != "2026-02-02T00:00:00.000Z" {
		t.Errorf("snapshot = %v", snap)
	}
}

func TestNotification_NoInput(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, buildState, shopConfig)

	run(t, Notification, fx.env(t, ""))

	if _, ok := monitor.ReadSnapshot(fx.root); ok {
		t.Error("snapshot written without input")
	}
}

func TestRun_UnknownHook(t *testing.T) {
	t.Parallel()
	if err := Run(context.Background(), "pre-compact", &Env{}); !errors.Is(err, ErrUnknownHook) {
		t.Errorf("err = %v, want ErrUnknownHook", err)
	}
}

func TestRun_RecoversPanics(t *testing.T) {
	registry["explode"] = func(context.Context, *Env) error { panic("boom") }
	t.Cleanup(func() { delete(registry, "explode") })

	if err := Run(context.Background(), "explode", &Env{Stdin: stdin(t, "")}); err != nil {
		t.Errorf("Run = %v, want nil", err)
	}
}

func TestNames(t *testing.T) {
	t.Parallel()
	for _, name := range Names() {
		if _, ok := registry[name]; !ok {
			t.Errorf("hook %q not registered", name)
		}
	}
}
