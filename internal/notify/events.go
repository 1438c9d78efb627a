package notify

import "regexp"

// Event names.
const (
	EventSessionStarted  = "session_started"
	EventRunning         = "running"
	EventStopped         = "stopped"
	EventScopeWarning    = "scope_warning"
	EventNeedsInput      = "needs_input"
	EventNeedsPermission = "needs_permission"
)

// Status values carried in payloads.
const (
	StatusStarted         = "STARTED"
	StatusRunning         = "RUNNING"
	StatusStopped         = "STOPPED"
	StatusNeedsInput      = "NEEDS_INPUT"
	StatusNeedsPermission = "NEEDS_PERMISSION"
)

var permissionText = regexp.MustCompile(`(?i)permission`)

// MapNotification maps a host notification to an event and status. ok is
// false for notifications that should be ignored.
func MapNotification(kind, text string) (event, status string, ok bool) {
	switch {
	case kind == "permission_prompt", kind == "permission", permissionText.MatchString(text):
		return EventNeedsPermission, StatusNeedsPermission, true
	case kind == "tool_permission", kind == "tool_approval":
		return EventNeedsPermission, StatusNeedsPermission, true
	case kind == "", kind == "auth_success":
		return "", "", false
	default:
		// idle_prompt, idle, notification, elicitation_dialog, elicitation
		// and anything unrecognized.
		return EventNeedsInput, StatusNeedsInput, true
	}
}
