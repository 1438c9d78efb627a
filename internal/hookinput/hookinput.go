// Package hookinput reads the JSON object a host tool passes to a hook or
// notifier on stdin, waiting at most a fixed bound.
package hookinput

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// Input is the hook payload sent by the host. Only the fields cdd consumes
// are decoded.
type Input struct {
	SessionID        string    `json:"session_id"`
	CWD              string    `json:"cwd"`
	TranscriptPath   string    `json:"transcript_path"`
	Workspace        Workspace `json:"workspace"`
	Type             string    `json:"type"`
	NotificationType string    `json:"notification_type"`
	Message          string    `json:"message"`
	Title            string    `json:"title"`
	ToolInput        ToolInput `json:"tool_input"`
	Model            Model     `json:"model"`
}

// Workspace is the host's workspace descriptor.
type Workspace struct {
	CurrentDir string `json:"current_dir"`
}

// ToolInput carries the arguments of the tool call being checked.
type ToolInput struct {
	FilePath string `json:"file_path"`
}

// Model identifies the host's active model.
type Model struct {
	DisplayName string `json:"display_name"`
}

// Dir resolves the working directory: workspace.current_dir, then cwd, then
// the process working directory.
func (in Input) Dir() string {
	if in.Workspace.CurrentDir != "" {
		return in.Workspace.CurrentDir
	}
	if in.CWD != "" {
		return in.CWD
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// Kind is the notification type, from type or notification_type.
func (in Input) Kind() string {
	if in.Type != "" {
		return in.Type
	}
	return in.NotificationType
}

// Text is the notification text, from message or title.
func (in Input) Text() string {
	if in.Message != "" {
		return in.Message
	}
	return in.Title
}

type result struct {
	raw json.RawMessage
	err error
}

// ReadJSON decodes one JSON value from r into v. It returns false when
// nothing usable arrives within timeout, when the input is not valid JSON,
// or when it is JSON null. A reader that never delivers is abandoned.
func ReadJSON(r io.Reader, timeout time.Duration, v any) bool {
	ch := make(chan result, 1)
	go func() {
		var raw json.RawMessage
		err := json.NewDecoder(r).Decode(&raw)
		ch <- result{raw: raw, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err != nil || len(res.raw) == 0 || string(res.raw) == "null" {
			return false
		}
		return json.Unmarshal(res.raw, v) == nil
	case <-timer.C:
		return false
	}
}

// Read reads a hook Input from r.
func Read(r io.Reader, timeout time.Duration) (Input, bool) {
	var in Input
	if !ReadJSON(r, timeout, &in) {
		return Input{}, false
	}
	return in, true
}

// Interactive reports whether f is a terminal, in which case no payload
// will be piped in.
func Interactive(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// FromFile reads a hook Input from f, returning immediately when f is a
// terminal.
func FromFile(f *os.File, timeout time.Duration) (Input, bool) {
	if Interactive(f) {
		return Input{}, false
	}
	return Read(f, timeout)
}

// FromFileJSON is FromFile for arbitrary JSON targets.
func FromFileJSON(f *os.File, timeout time.Duration, v any) bool {
	if Interactive(f) {
		return false
	}
	return ReadJSON(f, timeout, v)
}
