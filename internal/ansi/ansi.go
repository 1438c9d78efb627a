// Package ansi provides the escape codes used for host status-line output.
// The status line is rendered by the host, not a terminal we control, so it
// is styled with raw SGR codes rather than lipgloss.
package ansi

import "strings"

// ANSI SGR (Select Graphic Rendition) codes.
const (
	Reset = "\033[0m"
	Dim   = "\033[2m"
)

// Separator joins status-line segments.
const Separator = " │ "

// Dimmed wraps s in Dim ... Reset.
func Dimmed(s string) string {
	return Dim + s + Reset
}

// JoinDimmed dims every part and joins them with Separator.
func JoinDimmed(parts []string) string {
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = Dimmed(p)
	}
	return strings.Join(out, Separator)
}
