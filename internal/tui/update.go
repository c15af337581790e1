package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/reshelf/internal/tui/components"
)

// Update handles Bubbletea messages and updates model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if m.finished {
			return m, nil
		}
		return m, m.tick()
	case ProgressMsg:
		phase := msg.Progress.CurrentPhase
		m.progress = msg.Progress
		if phase.Terminal() {
			return m, nil
		}
		m.ensurePhase(phase)
		if m.status[phase] == components.PhasePending {
			m.status[phase] = components.PhaseRunning
		}
		return m, nil
	case PhaseDoneMsg:
		m.ensurePhase(msg.Phase)
		if msg.Failed {
			m.status[msg.Phase] = components.PhaseFailed
		} else {
			m.status[msg.Phase] = components.PhaseDone
		}
		return m, nil
	case FinishedMsg:
		result := msg.Result
		m.result = &result
		m.finished = true
		if result.Success {
			m.progress.OverallProgress = 100
		} else {
			// A fail-fast stop publishes no phase:failed.
			for phase, status := range m.status {
				if status == components.PhaseRunning {
					m.status[phase] = components.PhaseFailed
				}
			}
		}
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			if !m.cancelled && m.onCancel != nil {
				m.onCancel()
			}
			m.cancelled = true
			m.finished = true
			return m, tea.Quit
		}
	case tea.QuitMsg:
		m.finished = true
		return m, nil
	}

	return m, nil
}
