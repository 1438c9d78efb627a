// Package telemetry records dispatch activity as a JSONL journal at
// .cdd/monitor/events.jsonl. The monitor snapshot only keeps the last
// status; the journal keeps the history of dispatches and notifier spawns.
package telemetry

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileName is the journal file name inside the monitor directory.
const FileName = "events.jsonl"

// Event kinds.
const (
	KindDispatch        = "dispatch"
	KindNotifierSpawned = "notifier_spawned"
	KindNotifierFailed  = "notifier_failed"
)

// Event is a single journal record.
type Event struct {
	Timestamp  time.Time `json:"ts"`
	Kind       string    `json:"kind"`
	Event      string    `json:"event,omitempty"`
	DispatchID string    `json:"dispatch_id,omitempty"`
	Notifier   string    `json:"notifier,omitempty"`
	Error      string    `json:"error,omitempty"`
	Data       any       `json:"data,omitempty"`
}

// Path returns the journal path for a monitor directory.
func Path(monitorDir string) string {
	return filepath.Join(monitorDir, FileName)
}

// Emitter appends events to a JSONL file. It is safe for concurrent use.
// A nil *Emitter is a valid no-op emitter.
type Emitter struct {
	file *os.File
	enc  *json.Encoder
	mu   sync.Mutex
}

// NewEmitter opens path for appending, creating the file and its directory
// if needed.
func NewEmitter(path string) (*Emitter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("telemetry: mkdir %s: %w", filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	return &Emitter{
		file: f,
		enc:  json.NewEncoder(f),
	}, nil
}

// Emit appends one event. A zero Timestamp is set to now.
func (e *Emitter) Emit(evt Event) error {
	if e == nil {
		return nil
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enc.Encode(evt); err != nil {
		return fmt.Errorf("telemetry: encode event: %w", err)
	}
	return nil
}

// Close closes the underlying file. Calling Close on a nil Emitter is a
// no-op.
func (e *Emitter) Close() error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.file.Close(); err != nil {
		return fmt.Errorf("telemetry: close: %w", err)
	}
	return nil
}

// Tail returns up to n of the most recent events in path, oldest first.
// Malformed lines are skipped. A missing file yields no events.
func Tail(path string, n int) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var evt Event
		if err := json.Unmarshal(scanner.Bytes(), &evt); err != nil {
			continue
		}
		events = append(events, evt)
		if n > 0 && len(events) > n {
			events = events[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("telemetry: scan %s: %w", path, err)
	}
	return events, nil
}
