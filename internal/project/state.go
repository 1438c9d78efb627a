package project

import (
	"strings"

	"github.com/papapumpkin/cdd/internal/simpleyaml"
)

// Phase is the coarse-grained workflow stage recorded in state.yaml.
type Phase string

// Known phases. Unknown values are carried through unchanged.
const (
	PhasePlanning   Phase = "planning"
	PhaseFoundation Phase = "foundation"
	PhaseBuildCycle Phase = "build_cycle"
	PhaseComplete   Phase = "complete"
)

// ModuleStatus is the status of one module.
type ModuleStatus string

// Known module statuses.
const (
	ModulePending    ModuleStatus = "pending"
	ModuleInProgress ModuleStatus = "in_progress"
	ModuleComplete   ModuleStatus = "complete"
	ModuleVerified   ModuleStatus = "verified"
)

// Done reports whether the module counts toward completed work.
func (s ModuleStatus) Done() bool {
	return s == ModuleComplete || s == ModuleVerified
}

// Module is a named unit of work.
type Module struct {
	Name   string
	Status ModuleStatus
}

// State is the typed view of state.yaml. Modules keep the document's order.
type State struct {
	Phase    Phase
	Modules  []Module
	Planning map[string]string
}

// NormalizePhase maps a raw phase value to a Phase. Empty values become
// planning and the hyphenated build-cycle spelling is folded into
// build_cycle.
func NormalizePhase(raw string) Phase {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "":
		return PhasePlanning
	case "build-cycle":
		return PhaseBuildCycle
	}
	return Phase(raw)
}

// StateFromDocument builds a State from a parsed state.yaml. Missing or
// oddly shaped sections fall back to their zero values.
func StateFromDocument(doc *simpleyaml.Map) State {
	phase, _ := doc.String("phase")
	st := State{
		Phase:    NormalizePhase(phase),
		Planning: map[string]string{},
	}

	modules := doc.Map("modules")
	for _, name := range modules.Keys() {
		v, _ := modules.Get(name)
		st.Modules = append(st.Modules, Module{Name: name, Status: statusOf(v)})
	}

	planning := doc.Map("planning")
	for _, step := range planning.Keys() {
		v, _ := planning.Get(step)
		st.Planning[step] = string(statusOf(v))
	}
	return st
}

// statusOf accepts both `name: {status: x}` and the shorthand `name: x`.
func statusOf(v any) ModuleStatus {
	switch t := v.(type) {
	case *simpleyaml.Map:
		s, _ := t.String("status")
		return ModuleStatus(s)
	case string:
		return ModuleStatus(t)
	}
	return ""
}

// ActiveModule returns the first module in progress, in declaration order.
func (s State) ActiveModule() (string, bool) {
	for _, m := range s.Modules {
		if m.Status == ModuleInProgress {
			return m.Name, true
		}
	}
	return "", false
}
