// Package ui renders cdd project status for a terminal.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/papapumpkin/cdd/internal/monitor"
	"github.com/papapumpkin/cdd/internal/progress"
	"github.com/papapumpkin/cdd/internal/project"
	"github.com/papapumpkin/cdd/internal/telemetry"
)

// Semantic color palette.
const (
	colorPrimary   = lipgloss.Color("#00BFFF") // cyan, titles and labels
	colorAccent    = lipgloss.Color("#FFD700") // gold, attention
	colorSuccess   = lipgloss.Color("#00E676") // green, completed
	colorDanger    = lipgloss.Color("#FF5252") // red, failures
	colorMuted     = lipgloss.Color("#636363")
	colorWhite     = lipgloss.Color("#EEEEEE")
	colorBlue      = lipgloss.Color("#5B8DEF") // blue, in progress
	clockLayout    = "15:04:05"
	labelWidth     = 10
	eventKindWidth = 17
)

// Module status icons.
const (
	iconDone    = "✓"
	iconWorking = "◎"
	iconWaiting = "·"
	iconFailed  = "✗"
)

type styles struct {
	title  lipgloss.Style
	label  lipgloss.Style
	value  lipgloss.Style
	muted  lipgloss.Style
	done   lipgloss.Style
	active lipgloss.Style
	warn   lipgloss.Style
	danger lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:  r.NewStyle().Foreground(colorPrimary).Bold(true),
		label:  r.NewStyle().Foreground(colorPrimary),
		value:  r.NewStyle().Foreground(colorWhite),
		muted:  r.NewStyle().Foreground(colorMuted),
		done:   r.NewStyle().Foreground(colorSuccess),
		active: r.NewStyle().Foreground(colorBlue).Bold(true),
		warn:   r.NewStyle().Foreground(colorAccent).Bold(true),
		danger: r.NewStyle().Foreground(colorDanger).Bold(true),
	}
}

// Printer writes styled output. Colors are dropped when w is not a
// terminal.
type Printer struct {
	w io.Writer
	s styles
}

// New returns a printer writing to w.
func New(w io.Writer) *Printer {
	return &Printer{w: w, s: newStyles(lipgloss.NewRenderer(w))}
}

// ModuleView is one module row of a StatusView.
type ModuleView struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// StatusView is everything `cdd status` shows about a project.
type StatusView struct {
	Project      string                `json:"project"`
	Dir          string                `json:"cwd"`
	Phase        string                `json:"phase"`
	PhaseLabel   string                `json:"phase_label"`
	PlanningStep string                `json:"planning_step,omitempty"`
	Stats        *progress.ModuleStats `json:"modules_summary,omitempty"`
	Modules      []ModuleView          `json:"modules,omitempty"`
	Suggestion   string                `json:"suggestion,omitempty"`
	Snapshot     monitor.Snapshot      `json:"snapshot,omitempty"`
	Events       []telemetry.Event     `json:"events,omitempty"`
}

// NewStatusView collects the status of p together with its last snapshot
// and recent journal events. snap and events may be nil.
func NewStatusView(p *project.Project, snap monitor.Snapshot, events []telemetry.Event) StatusView {
	sum := progress.Summarize(p)
	v := StatusView{
		Project:    sum.Project,
		Dir:        p.Dir,
		Phase:      string(sum.Phase),
		PhaseLabel: sum.PhaseLabel,
		Suggestion: sum.Suggestion,
		Snapshot:   snap,
		Events:     events,
	}
	if sum.Phase == project.PhasePlanning {
		v.PlanningStep = progress.LastPlanningStep(p.State)
	}
	if sum.HasModules {
		stats := sum.Stats
		v.Stats = &stats
	}
	for _, m := range p.State.Modules {
		v.Modules = append(v.Modules, ModuleView{Name: m.Name, Status: string(m.Status)})
	}
	return v
}

// Status prints v as a short report.
func (p *Printer) Status(v StatusView) {
	fmt.Fprintln(p.w, p.s.title.Render(v.Project)+"  "+p.s.active.Render(v.PhaseLabel))

	if v.PlanningStep != "" {
		p.row("planning", p.s.value.Render("last step: "+v.PlanningStep))
	}
	if v.Stats != nil {
		p.row("modules", p.s.value.Render(v.Stats.Fraction()+" complete"))
		width := 0
		for _, m := range v.Modules {
			width = max(width, len(m.Name))
		}
		for _, m := range v.Modules {
			icon, style := p.moduleIcon(project.ModuleStatus(m.Status))
			status := m.Status
			if status == "" {
				status = "unknown"
			}
			fmt.Fprintf(p.w, "    %s %s %s\n",
				style.Render(icon),
				p.s.value.Render(fmt.Sprintf("%-*s", width, m.Name)),
				p.s.muted.Render(status))
		}
	}
	if v.Suggestion != "" {
		p.row("next", p.s.value.Render(v.Suggestion))
	}
	if len(v.Snapshot) > 0 {
		p.row("last", p.snapshotLine(v.Snapshot))
	}
	if len(v.Events) > 0 {
		fmt.Fprintln(p.w, "  "+p.s.label.Render("recent"))
		for _, evt := range v.Events {
			fmt.Fprintln(p.w, "    "+p.eventLine(evt))
		}
	}
}

// Update prints one snapshot change observed by `cdd watch`.
func (p *Printer) Update(u monitor.Update) {
	if u.Removed {
		fmt.Fprintln(p.w, p.s.warn.Render("snapshot removed"))
		return
	}
	fmt.Fprintln(p.w, p.snapshotLine(u.Snapshot))
}

// Info prints a plain message.
func (p *Printer) Info(msg string) {
	fmt.Fprintln(p.w, p.s.muted.Render(msg))
}

// Error prints msg with an error prefix.
func (p *Printer) Error(msg string) {
	fmt.Fprintln(p.w, p.s.danger.Render("error: ")+msg)
}

func (p *Printer) row(label, value string) {
	fmt.Fprintln(p.w, "  "+p.s.label.Render(fmt.Sprintf("%-*s", labelWidth, label))+value)
}

func (p *Printer) moduleIcon(status project.ModuleStatus) (string, lipgloss.Style) {
	switch {
	case status.Done():
		return iconDone, p.s.done
	case status == project.ModuleInProgress:
		return iconWorking, p.s.active
	default:
		return iconWaiting, p.s.muted
	}
}

// snapshotLine renders "HH:MM:SS event STATUS module project".
func (p *Printer) snapshotLine(snap monitor.Snapshot) string {
	parts := []string{}
	if t, ok := snap.UpdatedAt(); ok {
		parts = append(parts, p.s.muted.Render(t.Local().Format(clockLayout)))
	}
	if e := snap.Event(); e != "" {
		parts = append(parts, p.s.active.Render(e))
	}
	for _, key := range []string{"status", "module", "project"} {
		if s := snap.String(key); s != "" {
			parts = append(parts, p.s.value.Render(s))
		}
	}
	if w := snap.String("warning_file"); w != "" {
		parts = append(parts, p.s.warn.Render(w))
	}
	return strings.Join(parts, "  ")
}

// eventLine renders one journal record.
func (p *Printer) eventLine(evt telemetry.Event) string {
	line := p.s.muted.Render(evt.Timestamp.Local().Format(clockLayout)) + "  " +
		p.s.label.Render(fmt.Sprintf("%-*s", eventKindWidth, evt.Kind))

	subject := evt.Event
	if evt.Notifier != "" {
		subject = evt.Notifier
	}
	line += p.s.value.Render(subject)
	if evt.Error != "" {
		line += "  " + p.s.danger.Render(iconFailed+" "+evt.Error)
	}
	return line
}
