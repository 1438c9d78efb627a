// Package notify persists status snapshots and fans events out to the
// configured notifiers.
//
// Dispatch always writes the snapshot first, then re-reads config.yaml and
// spawns every enabled notifier whose event filter matches, in configuration
// order. It never waits for a notifier and never fails its caller.
package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/papapumpkin/cdd/internal/debuglog"
	"github.com/papapumpkin/cdd/internal/monitor"
	"github.com/papapumpkin/cdd/internal/project"
	"github.com/papapumpkin/cdd/internal/telemetry"
)

// Payload keys added by the dispatcher.
const (
	KeyEvent          = "event"
	KeyUpdatedAt      = "updated_at"
	KeyDispatchID     = "dispatch_id"
	KeyNotifierConfig = "notifier_config"
	KeyRoot           = "cdd_root"
	KeyStartedAt      = "started_at"
)

// TimeLayout is the timestamp format of updated_at and started_at.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Payload is the status record handed to Dispatch.
type Payload map[string]any

// Result reports what one dispatch did.
type Result struct {
	DispatchID      string
	SnapshotWritten bool
	Matched         int
	Spawned         int
}

// Dispatcher writes snapshots and spawns notifiers.
type Dispatcher struct {
	Store   *monitor.Store
	Spawner Spawner
	Log     *debuglog.Logger
	// Journal enables the events.jsonl history next to the snapshot.
	Journal bool

	Now   func() time.Time
	NewID func() string
}

// New returns a dispatcher for p that spawns notifiers as processes.
func New(p *project.Project) *Dispatcher {
	return &Dispatcher{
		Store:   &monitor.Store{LockTimeout: p.Settings.LockTimeout(), Log: p.Log},
		Spawner: NewProcessSpawner(),
		Log:     p.Log,
		Journal: true,
	}
}

// Timestamp formats t as a payload timestamp.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Dispatch persists payload as the snapshot for event under root and spawns
// matching notifiers.
func (d *Dispatcher) Dispatch(event string, payload Payload, root string) (res Result) {
	log := d.log()
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("dispatch aborted")
		}
	}()

	res.DispatchID = d.newID()
	snap := make(monitor.Snapshot, len(payload)+3)
	for k, v := range payload {
		snap[k] = v
	}
	snap[KeyEvent] = event
	snap[KeyUpdatedAt] = Timestamp(d.now())
	snap[KeyDispatchID] = res.DispatchID

	store := d.Store
	if store == nil {
		store = &monitor.Store{Log: d.Log}
	}
	res.SnapshotWritten = store.Write(root, snap)

	journal := d.openJournal(root)
	defer journal.Close()
	d.emit(journal, telemetry.Event{Kind: telemetry.KindDispatch, Event: event, DispatchID: res.DispatchID})

	doc, ok := project.ReadConfig(root)
	if !ok {
		return res
	}
	cfg, err := project.DecodeConfig(doc)
	if err != nil {
		log.WithError(err).Warn("notifier config partially decoded")
	}
	if !cfg.Notifications.Enabled || len(cfg.Notifications.Notifiers) == 0 {
		return res
	}

	for _, n := range cfg.Notifications.Notifiers {
		if n.Type == "" || !n.Events.Matches(event) {
			continue
		}
		res.Matched++

		body, err := BuildPayload(snap, n, root)
		if err != nil {
			log.WithError(err).WithField("notifier", n.Type).Warn("payload encoding failed")
			continue
		}
		if d.Spawner == nil {
			continue
		}
		if err := d.Spawner.Spawn(n, body); err != nil {
			log.WithError(err).WithField("notifier", n.Type).Warn("spawn failed")
			d.emit(journal, telemetry.Event{
				Kind: telemetry.KindNotifierFailed, Event: event, DispatchID: res.DispatchID,
				Notifier: n.Type, Error: err.Error(),
			})
			continue
		}
		res.Spawned++
		log.WithField("notifier", n.Type).WithField("event", event).Debug("notifier spawned")
		d.emit(journal, telemetry.Event{
			Kind: telemetry.KindNotifierSpawned, Event: event, DispatchID: res.DispatchID, Notifier: n.Type,
		})
	}
	return res
}

// BuildPayload encodes the message a notifier receives: the snapshot plus
// the notifier's own configuration and the .cdd root.
func BuildPayload(snap monitor.Snapshot, n project.NotifierConfig, root string) ([]byte, error) {
	msg := make(map[string]any, len(snap)+2)
	for k, v := range snap {
		msg[k] = v
	}
	msg[KeyNotifierConfig] = notifierDocument(n)
	msg[KeyRoot] = root

	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encoding payload for %s: %w", n.Type, err)
	}
	return data, nil
}

// notifierDocument returns the notifier entry as written in config.yaml, or
// a reconstruction when it was built in code.
func notifierDocument(n project.NotifierConfig) any {
	if n.Raw != nil {
		return n.Raw
	}
	doc := make(map[string]any, len(n.Extra)+5)
	for k, v := range n.Extra {
		doc[k] = v
	}
	doc["type"] = n.Type
	switch {
	case n.Events.All:
		doc["events"] = "all"
	case len(n.Events.Names) > 0:
		doc["events"] = n.Events.Names
	}
	if n.Command != "" {
		doc["command"] = n.Command
	}
	if n.URL != "" {
		doc["url"] = n.URL
	}
	if n.BodyTemplate != "" {
		doc["body_template"] = n.BodyTemplate
	}
	return doc
}

func (d *Dispatcher) openJournal(root string) *telemetry.Emitter {
	if !d.Journal {
		return nil
	}
	em, err := telemetry.NewEmitter(telemetry.Path(monitor.Dir(root)))
	if err != nil {
		d.log().WithError(err).Debug("journal unavailable")
		return nil
	}
	return em
}

func (d *Dispatcher) emit(em *telemetry.Emitter, evt telemetry.Event) {
	evt.Timestamp = d.now().UTC()
	if err := em.Emit(evt); err != nil {
		d.log().WithError(err).Debug("journal write failed")
	}
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Dispatcher) newID() string {
	if d.NewID != nil {
		return d.NewID()
	}
	return uuid.NewString()
}

func (d *Dispatcher) log() *logrus.Entry {
	if d.Log == nil {
		return debuglog.Discard().Source("dispatch")
	}
	return d.Log.Source("dispatch")
}
