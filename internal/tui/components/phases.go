package components

import "github.com/alexisbeaulieu97/reshelf/internal/domain/organize"

// PhaseStatus is the display state of a planned phase.
type PhaseStatus string

const (
	PhasePending PhaseStatus = "pending"
	PhaseRunning PhaseStatus = "running"
	PhaseDone    PhaseStatus = "done"
	PhaseFailed  PhaseStatus = "failed"
)

// PhaseEntry is one row of the phase list.
type PhaseEntry struct {
	Phase  organize.Phase
	Status PhaseStatus
}

// PhaseList renders planned phases with their current status.
type PhaseList struct {
	entries []PhaseEntry
}

// NewPhaseList constructs a phase list. Phases missing from status are
// pending.
func NewPhaseList(order []organize.Phase, status map[organize.Phase]PhaseStatus) PhaseList {
	entries := make([]PhaseEntry, 0, len(order))
	for _, phase := range order {
		s, ok := status[phase]
		if !ok {
			s = PhasePending
		}
		entries = append(entries, PhaseEntry{Phase: phase, Status: s})
	}
	return PhaseList{entries: entries}
}

// Entries returns the ordered entries.
func (l PhaseList) Entries() []PhaseEntry {
	clone := make([]PhaseEntry, len(l.entries))
	copy(clone, l.entries)
	return clone
}
