// Package progress derives display status from a project's state: phase
// labels, module completion counts and the next suggested step.
package progress

import (
	"fmt"
	"strings"

	"github.com/papapumpkin/cdd/internal/project"
)

// ModuleStats summarizes module progress.
type ModuleStats struct {
	Total    int    `json:"total"`
	Complete int    `json:"complete"`
	Active   string `json:"active,omitempty"`
}

// HasActive reports whether a module is in progress.
func (s ModuleStats) HasActive() bool {
	return s.Active != ""
}

// Fraction renders "complete/total".
func (s ModuleStats) Fraction() string {
	return fmt.Sprintf("%d/%d", s.Complete, s.Total)
}

// DeriveStats counts modules. ok is false when no modules are declared.
// Active is the first in-progress module in declaration order.
func DeriveStats(st project.State) (ModuleStats, bool) {
	if len(st.Modules) == 0 {
		return ModuleStats{}, false
	}

	stats := ModuleStats{Total: len(st.Modules)}
	for _, m := range st.Modules {
		switch {
		case m.Status.Done():
			stats.Complete++
		case m.Status == project.ModuleInProgress && stats.Active == "":
			stats.Active = m.Name
		}
	}
	return stats, true
}

var phaseLabels = map[project.Phase]string{
	project.PhasePlanning:   "PLANNING",
	project.PhaseFoundation: "FOUNDATION",
	project.PhaseBuildCycle: "BUILD",
	project.PhaseComplete:   "COMPLETE",
}

// PhaseLabel returns the display label for a phase. Unknown phases are
// upper-cased.
func PhaseLabel(phase project.Phase) string {
	phase = project.NormalizePhase(string(phase))
	if label, ok := phaseLabels[phase]; ok {
		return label
	}
	return strings.ToUpper(string(phase))
}

// planningSteps lists the planning sub-steps in order.
var planningSteps = []string{"brief", "plan", "modularize", "contract"}

// nextPlanningCommand maps the last finished planning step to the command
// that starts the following one.
var nextPlanningCommand = map[string]string{
	"pending":    "/cdd:brief",
	"brief":      "/cdd:plan",
	"plan":       "/cdd:modularize",
	"modularize": "/cdd:contract",
	"contract":   "/cdd:foundation",
}

// LastPlanningStep returns the last planning step whose status is complete
// or done, or "pending" when none is.
func LastPlanningStep(st project.State) string {
	last := "pending"
	for _, step := range planningSteps {
		switch st.Planning[step] {
		case "complete", "done":
			last = step
		}
	}
	return last
}

// Suggestion returns the next-step hint for the current phase, or "".
func Suggestion(st project.State) string {
	switch st.Phase {
	case project.PhasePlanning:
		if cmd, ok := nextPlanningCommand[LastPlanningStep(st)]; ok {
			return "Next: " + cmd
		}
	case project.PhaseFoundation:
		return "Use /cdd:foundation to continue"
	case project.PhaseBuildCycle:
		return "Use /cdd:resume to continue"
	}
	return ""
}

// Summary is the derived status of a project at one point in time.
type Summary struct {
	Project    string
	Phase      project.Phase
	PhaseLabel string
	Stats      ModuleStats
	HasModules bool
	Suggestion string
}

// Summarize derives the full status of p.
func Summarize(p *project.Project) Summary {
	stats, ok := DeriveStats(p.State)
	return Summary{
		Project:    p.Name(),
		Phase:      p.State.Phase,
		PhaseLabel: PhaseLabel(p.State.Phase),
		Stats:      stats,
		HasModules: ok,
		Suggestion: Suggestion(p.State),
	}
}

// ModulesComplete renders the completion fraction, or "" when no modules are
// declared.
func (s Summary) ModulesComplete() string {
	if !s.HasModules {
		return ""
	}
	return s.Stats.Fraction()
}

// SessionLine renders the session-start banner:
// "[CDD] name | Phase: LABEL | module info | suggestion".
func (s Summary) SessionLine() string {
	parts := []string{"[CDD] " + s.Project, "Phase: " + s.PhaseLabel}

	if (s.Phase == project.PhaseBuildCycle || s.Phase == project.PhaseComplete) && s.HasModules {
		if s.Stats.HasActive() {
			parts = append(parts, fmt.Sprintf("Module: %s (%s)", s.Stats.Active, s.Stats.Fraction()))
		} else {
			parts = append(parts, s.Stats.Fraction()+" complete")
		}
	}
	if s.Suggestion != "" {
		parts = append(parts, s.Suggestion)
	}
	return strings.Join(parts, " | ")
}

// StatusSegment renders the status-line segment: "LABEL: module (x/y)",
// "LABEL: x/y" or "LABEL".
func (s Summary) StatusSegment() string {
	switch {
	case s.HasModules && s.Stats.HasActive():
		return fmt.Sprintf("%s: %s (%s)", s.PhaseLabel, s.Stats.Active, s.Stats.Fraction())
	case s.HasModules:
		return fmt.Sprintf("%s: %s", s.PhaseLabel, s.Stats.Fraction())
	default:
		return s.PhaseLabel
	}
}
