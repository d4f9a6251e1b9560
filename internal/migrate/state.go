package migrate

import "fmt"

// Phase is a state of the loader.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseWiping
	PhaseLoadingParents
	PhaseBuildingRemap
	PhaseLoadingChildren
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseWiping:
		return "wiping"
	case PhaseLoadingParents:
		return "loading_parents"
	case PhaseBuildingRemap:
		return "building_remap"
	case PhaseLoadingChildren:
		return "loading_children"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Terminal reports whether no transition leaves p.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

var nextPhase = map[Phase]Phase{
	PhaseIdle:            PhaseWiping,
	PhaseWiping:          PhaseLoadingParents,
	PhaseLoadingParents:  PhaseBuildingRemap,
	PhaseBuildingRemap:   PhaseLoadingChildren,
	PhaseLoadingChildren: PhaseDone,
}

// CanTransition reports whether the loader may move from p to to.
// Phases advance strictly in order; Failed is reachable from any
// non-terminal phase.
func (p Phase) CanTransition(to Phase) bool {
	if p.Terminal() {
		return false
	}
	if to == PhaseFailed {
		return true
	}
	return nextPhase[p] == to
}
