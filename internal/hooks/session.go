package hooks

import (
	"context"
	"fmt"

	"github.com/papapumpkin/cdd/internal/notify"
	"github.com/papapumpkin/cdd/internal/progress"
	"github.com/papapumpkin/cdd/internal/transcript"
)

// runSessionStart prints the project banner for the host to show and
// dispatches session_started.
func runSessionStart(_ context.Context, env *Env) error {
	in, _ := env.readInput()
	iv, ok := open(env, SessionStart, in)
	if !ok {
		return nil
	}
	defer iv.close()

	fmt.Fprintln(env.Stdout, progress.Summarize(iv.project).SessionLine())

	payload := iv.statusPayload(notify.StatusStarted)
	payload[notify.KeyStartedAt] = notify.Timestamp(env.Now())
	iv.dispatch(env, notify.EventSessionStarted, payload)
	return nil
}

// runStop dispatches stopped with the last assistant message of the
// session. It prints nothing: the host has already stopped.
func runStop(_ context.Context, env *Env) error {
	in, _ := env.readInput()
	iv, ok := open(env, Stop, in)
	if !ok {
		return nil
	}
	defer iv.close()

	var last any
	if in.SessionID != "" || in.TranscriptPath != "" {
		if msg, ok := transcript.ForSession(env.Settings.ClaudeHome, in.SessionID, in.TranscriptPath); ok {
			last = msg
			iv.log.WithField("length", len(msg)).Debug("last message extracted")
		} else {
			iv.log.WithField("session", in.SessionID).Debug("no transcript found")
		}
	}

	payload := iv.statusPayload(notify.StatusStopped)
	payload["last_response"] = last
	payload[notify.KeyStartedAt] = iv.priorStartedAt()
	iv.dispatch(env, notify.EventStopped, payload)
	return nil
}

// runNotification maps a host notification to needs_input or
// needs_permission and dispatches it.
func runNotification(_ context.Context, env *Env) error {
	in, ok := env.readInput()
	if !ok {
		return nil
	}
	iv, ok := open(env, Notification, in)
	if !ok {
		return nil
	}
	defer iv.close()

	kind := in.Kind()
	event, status, ok := notify.MapNotification(kind, in.Text())
	if !ok {
		iv.log.WithField("type", kind).Debug("notification ignored")
		return nil
	}
	iv.log.WithField("type", kind).WithField("event", event).Debug("notification mapped")

	payload := iv.statusPayload(status)
	payload["last_response"] = nullable(in.Text())
	payload[notify.KeyStartedAt] = iv.priorStartedAt()
	iv.dispatch(env, event, payload)
	return nil
}
