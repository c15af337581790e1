package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
	"github.com/alexisbeaulieu97/reshelf/internal/tui/components"
)

// DefaultInterval is how often the display refreshes.
const DefaultInterval = time.Second

// ProgressMsg carries a progress snapshot.
type ProgressMsg struct {
	Progress organize.Progress
}

// PhaseDoneMsg reports that a phase handler returned.
type PhaseDoneMsg struct {
	Phase  organize.Phase
	Failed bool
}

// FinishedMsg carries the final result of the run.
type FinishedMsg struct {
	Result organize.ExecutionResult
}

type tickMsg struct{}

// Model contains the Bubbletea state for the run progress display.
type Model struct {
	title     string
	order     []organize.Phase
	status    map[organize.Phase]components.PhaseStatus
	progress  organize.Progress
	result    *organize.ExecutionResult
	bar       components.Progress
	interval  time.Duration
	onCancel  func()
	finished  bool
	cancelled bool
}

// NewModel constructs a display for the planned phases. onCancel, when
// non-nil, is invoked once if the user presses ctrl+c.
func NewModel(title string, phases []organize.Phase, interval time.Duration, onCancel func()) Model {
	if interval <= 0 {
		interval = DefaultInterval
	}
	m := Model{
		title:    title,
		status:   make(map[organize.Phase]components.PhaseStatus, len(phases)),
		bar:      components.NewProgress(components.ConsoleBarWidth),
		interval: interval,
		onCancel: onCancel,
	}
	for _, phase := range phases {
		m.ensurePhase(phase)
	}
	return m
}

// Init starts the refresh tick.
func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return tickMsg{} })
}

// Progress returns the last snapshot the model received.
func (m Model) Progress() organize.Progress {
	return m.progress
}

// Result returns the final result once the run finished.
func (m Model) Result() (organize.ExecutionResult, bool) {
	if m.result == nil {
		return organize.ExecutionResult{}, false
	}
	return *m.result, true
}

// IsFinished reports whether the run ended or was cancelled.
func (m Model) IsFinished() bool {
	return m.finished
}

func (m *Model) ensurePhase(phase organize.Phase) {
	if phase == "" {
		return
	}
	if _, exists := m.status[phase]; !exists {
		m.status[phase] = components.PhasePending
		m.order = append(m.order, phase)
	}
}
