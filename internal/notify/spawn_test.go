package notify

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/papapumpkin/cdd/internal/project"
)

// TestHelperProcess is not a real test. Spawned notifiers re-exec the test
// binary into it; it copies stdin to $CDD_HELPER_OUT once stdin closes.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("CDD_WANT_HELPER_PROCESS") != "1" {
		return
	}
	data, _ := io.ReadAll(os.Stdin)
	tmp := os.Getenv("CDD_HELPER_OUT") + ".partial"
	_ = os.WriteFile(tmp, data, 0o644)
	_ = os.Rename(tmp, os.Getenv("CDD_HELPER_OUT"))
	os.Exit(0)
}

func TestProcessSpawner_Command(t *testing.T) {
	t.Parallel()
	s := &ProcessSpawner{Executable: "/usr/local/bin/cdd"}

	tests := []struct {
		name     string
		n        project.NotifierConfig
		wantName string
		wantArgs []string
		wantErr  error
	}{
		{"webhook", project.NotifierConfig{Type: "webhook"}, "/usr/local/bin/cdd", []string{"notifier", "webhook"}, nil},
		{"telegram", project.NotifierConfig{Type: "telegram"}, "/usr/local/bin/cdd", []string{"notifier", "telegram"}, nil},
		{"custom", project.NotifierConfig{Type: "custom", Command: "  say  -v  Alex "}, "say", []string{"-v", "Alex"}, nil},
		{"custom empty", project.NotifierConfig{Type: "custom"}, "", nil, ErrNoCommand},
		{"unknown", project.NotifierConfig{Type: "pager"}, "", nil, ErrUnknownType},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			name, args, err := s.Command(tt.n)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Command: %v", err)
			}
			if name != tt.wantName || len(args) != len(tt.wantArgs) {
				t.Fatalf("Command = %q %v, want %q %v", name, args, tt.wantName, tt.wantArgs)
			}
			for i := range args {
				if args[i] != tt.wantArgs[i] {
					t.Errorf("arg %d = %q, want %q", i, args[i], tt.wantArgs[i])
				}
			}
		})
	}
}

func TestProcessSpawner_DeliversPayloadAndClosesStdin(t *testing.T) {
	out := filepath.Join(t.TempDir(), "received.json")
	s := &ProcessSpawner{
		Env: append(os.Environ(),
			"CDD_WANT_HELPER_PROCESS=1",
			"CDD_HELPER_OUT="+out,
		),
		WriteTimeout: time.Second,
	}
	n := project.NotifierConfig{
		Type:    TypeCustom,
		Command: os.Args[0] + " -test.run=^TestHelperProcess$",
	}
	payload := []byte(`{"event":"stopped","project":"shop"}`)

	start := time.Now()
	if err := s.Spawn(n, payload); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Spawn blocked for %v", elapsed)
	}

	// The helper only writes once it sees EOF on stdin.
	deadline := time.Now().Add(10 * time.Second)
	for {
		data, err := os.ReadFile(out)
		if err == nil {
			if string(data) != string(payload) {
				t.Errorf("helper received %q, want %q", data, payload)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("helper never received the payload")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestProcessSpawner_MissingProgram(t *testing.T) {
	t.Parallel()

	s := &ProcessSpawner{}
	err := s.Spawn(project.NotifierConfig{Type: TypeCustom, Command: "/definitely/not/a/program --flag"}, []byte("{}"))
	if err == nil {
		t.Fatal("expected start error")
	}
}
