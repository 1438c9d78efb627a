package notify

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/papapumpkin/cdd/internal/project"
)

// Notifier types with special handling.
const (
	TypeCustom   = "custom"
	TypeWebhook  = "webhook"
	TypeTelegram = "telegram"
)

// Builtins lists the notifier types served by `cdd notifier <type>`.
var Builtins = []string{TypeWebhook, TypeTelegram}

var (
	// ErrNoCommand is returned for a custom notifier without a command.
	ErrNoCommand = errors.New("notify: custom notifier has no command")
	// ErrUnknownType is returned for a notifier type that is neither custom
	// nor built in.
	ErrUnknownType = errors.New("notify: unknown notifier type")
)

// Spawner launches a notifier with a payload and returns without waiting
// for it. An error means the notifier could not be started.
type Spawner interface {
	Spawn(n project.NotifierConfig, payload []byte) error
}

// ProcessSpawner runs each notifier as a detached OS process that receives
// the payload on stdin.
type ProcessSpawner struct {
	// Executable is the cdd binary that serves built-in notifiers.
	Executable string
	// Env is the child environment. Nil inherits the current environment.
	Env []string
	// WriteTimeout bounds the payload write to the child's stdin.
	WriteTimeout time.Duration
}

// NewProcessSpawner returns a spawner that serves built-ins from the running
// executable.
func NewProcessSpawner() *ProcessSpawner {
	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}
	return &ProcessSpawner{Executable: exe, WriteTimeout: time.Second}
}

// Command resolves the program and arguments for n. Custom commands are
// split on whitespace; quoting is not supported.
func (s *ProcessSpawner) Command(n project.NotifierConfig) (string, []string, error) {
	if n.Type == TypeCustom {
		fields := strings.Fields(n.Command)
		if len(fields) == 0 {
			return "", nil, ErrNoCommand
		}
		return fields[0], fields[1:], nil
	}
	for _, b := range Builtins {
		if n.Type == b {
			return s.Executable, []string{"notifier", n.Type}, nil
		}
	}
	return "", nil, fmt.Errorf("%w: %q", ErrUnknownType, n.Type)
}

// Spawn starts the notifier with payload on its stdin.
func (s *ProcessSpawner) Spawn(n project.NotifierConfig, payload []byte) error {
	name, args, err := s.Command(n)
	if err != nil {
		return err
	}
	return s.Start(name, args, payload)
}

// Start launches name detached from the calling process group, writes
// payload to its stdin and closes it, then releases the process. Output is
// discarded.
func (s *ProcessSpawner) Start(name string, args []string, payload []byte) error {
	pr, pw, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("creating stdin pipe: %w", err)
	}

	cmd := exec.Command(name, args...)
	cmd.Stdin = pr
	cmd.Env = s.Env
	cmd.SysProcAttr = detachAttr()

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return fmt.Errorf("starting %s: %w", name, err)
	}
	pr.Close()

	if s.WriteTimeout > 0 {
		_ = pw.SetWriteDeadline(time.Now().Add(s.WriteTimeout))
	}
	_, werr := pw.Write(payload)
	cerr := pw.Close()
	_ = cmd.Process.Release()

	if werr != nil {
		return fmt.Errorf("writing payload to %s: %w", name, werr)
	}
	if cerr != nil {
		return fmt.Errorf("closing stdin of %s: %w", name, cerr)
	}
	return nil
}
