// Package monitor persists the last-known status snapshot under
// .cdd/monitor/state.json and lets readers follow it.
//
// Snapshots are written wholesale. Concurrent writers race and the last
// rename wins; the optional advisory lock only narrows that window.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"

	"github.com/papapumpkin/cdd/internal/debuglog"
)

// Layout of the monitor directory.
const (
	DirName      = "monitor"
	SnapshotFile = "state.json"
	lockSuffix   = ".lock"
)

// ErrLockTimeout is returned when the snapshot lock is not acquired in time.
var ErrLockTimeout = errors.New("monitor: snapshot lock timeout")

// Snapshot is the persisted status record: arbitrary payload fields plus
// event and updated_at.
type Snapshot map[string]any

// String returns the string field key, or "".
func (s Snapshot) String(key string) string {
	v, _ := s[key].(string)
	return v
}

// Event is the event that produced the snapshot.
func (s Snapshot) Event() string {
	return s.String("event")
}

// UpdatedAt parses the snapshot's updated_at timestamp.
func (s Snapshot) UpdatedAt() (time.Time, bool) {
	t, err := time.Parse(time.RFC3339Nano, s.String("updated_at"))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Clone returns a shallow copy.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Dir returns the monitor directory under root.
func Dir(root string) string {
	return filepath.Join(root, DirName)
}

// Path returns the snapshot path under root.
func Path(root string) string {
	return filepath.Join(root, DirName, SnapshotFile)
}

// Store reads and writes snapshots. The zero value writes without locking
// and logs nothing.
type Store struct {
	// LockTimeout bounds the wait for the advisory lock. Zero disables it.
	LockTimeout time.Duration
	Log         *debuglog.Logger
}

// Write replaces the snapshot under root. Failures are logged and reported
// as false.
func (s *Store) Write(root string, snap Snapshot) bool {
	if err := s.write(root, snap); err != nil {
		s.log().WithError(err).Warn("snapshot write failed")
		return false
	}
	return true
}

func (s *Store) write(root string, snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	dir := Dir(root)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating monitor dir: %w", err)
	}

	path := Path(root)
	if s.LockTimeout > 0 {
		unlock, err := s.lock(path)
		if err != nil {
			// Lock is best effort; write unlocked.
			s.log().WithError(err).Debug("writing snapshot unlocked")
		} else {
			defer unlock()
		}
	}

	tmp, err := os.CreateTemp(dir, SnapshotFile+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming snapshot: %w", err)
	}
	return nil
}

func (s *Store) lock(path string) (func(), error) {
	fl := flock.New(path + lockSuffix)
	ctx, cancel := context.WithTimeout(context.Background(), s.LockTimeout)
	defer cancel()

	ok, err := fl.TryLockContext(ctx, 10*time.Millisecond)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("acquiring snapshot lock: %w", err)
	}
	if !ok {
		return nil, ErrLockTimeout
	}
	return func() { _ = fl.Unlock() }, nil
}

// Read returns the snapshot under root. ok is false when the file is
// missing or does not hold a JSON object.
func (s *Store) Read(root string) (Snapshot, bool) {
	return ReadSnapshot(root)
}

// ReadSnapshot returns the snapshot under root. Missing and malformed files
// are both reported as absent.
func ReadSnapshot(root string) (Snapshot, bool) {
	data, err := os.ReadFile(Path(root))
	if err != nil {
		return nil, false
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil || snap == nil {
		return nil, false
	}
	return snap, true
}

func (s *Store) log() *logrus.Entry {
	if s == nil || s.Log == nil {
		return debuglog.Discard().Source("monitor")
	}
	return s.Log.Source("monitor")
}
