package monitor

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Update is a snapshot observed by a Watcher.
type Update struct {
	Snapshot Snapshot
	// Removed is set when the snapshot file disappeared.
	Removed bool
}

// Watcher follows the snapshot under a .cdd root. Writes are debounced so
// a temp-file-then-rename sequence yields one Update.
type Watcher struct {
	Root    string
	Updates <-chan Update

	updates  chan Update
	done     chan struct{}
	watcher  *fsnotify.Watcher
	debounce time.Duration
}

// NewWatcher creates a watcher for the snapshot under root.
func NewWatcher(root string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	ch := make(chan Update, 16)
	return &Watcher{
		Root:     root,
		Updates:  ch,
		updates:  ch,
		done:     make(chan struct{}),
		watcher:  fw,
		debounce: 100 * time.Millisecond,
	}, nil
}

// Start watches the monitor directory, creating it when missing. The
// directory is watched rather than the file because writers replace it by
// rename.
func (w *Watcher) Start() error {
	dir := Dir(w.Root)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating monitor dir: %w", err)
	}
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	go w.loop()
	return nil
}

// Stop closes the watcher and the Updates channel.
func (w *Watcher) Stop() {
	w.watcher.Close()
	<-w.done
	close(w.updates)
}

func (w *Watcher) loop() {
	defer close(w.done)

	var (
		pending bool
		last    time.Time
	)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				if pending {
					w.emit()
				}
				return
			}
			if filepath.Base(event.Name) != SnapshotFile {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				pending = true
				last = time.Now()
			}

		case <-ticker.C:
			if pending && time.Since(last) >= w.debounce {
				w.emit()
				pending = false
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) emit() {
	snap, ok := ReadSnapshot(w.Root)
	if !ok {
		if _, err := os.Stat(Path(w.Root)); os.IsNotExist(err) {
			w.updates <- Update{Removed: true}
		}
		// Partially written or malformed; the next event will retry.
		return
	}
	w.updates <- Update{Snapshot: snap}
}
