package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
	"github.com/alexisbeaulieu97/reshelf/internal/tui/components"
)

func apply(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	next, ok := updated.(Model)
	require.True(t, ok)
	return next, cmd
}

func TestUpdateMarksCurrentPhaseRunning(t *testing.T) {
	m := NewModel("", []organize.Phase{organize.PhaseInitializing, organize.PhaseScanning}, 0, nil)
	m, _ = apply(t, m, ProgressMsg{Progress: organize.Progress{CurrentPhase: organize.PhaseScanning, OverallProgress: 50}})

	require.Equal(t, components.PhaseRunning, m.status[organize.PhaseScanning])
	require.Equal(t, 50.0, m.Progress().OverallProgress)
}

func TestUpdateTracksUnplannedPhases(t *testing.T) {
	m := NewModel("", nil, 0, nil)
	m, _ = apply(t, m, ProgressMsg{Progress: organize.Progress{CurrentPhase: organize.PhaseSyncing}})
	require.Equal(t, []organize.Phase{organize.PhaseSyncing}, m.order)

	m, _ = apply(t, m, ProgressMsg{Progress: organize.Progress{CurrentPhase: organize.PhaseCompleted, OverallProgress: 100}})
	require.Equal(t, []organize.Phase{organize.PhaseSyncing}, m.order)
	require.Equal(t, 100.0, m.Progress().OverallProgress)
}

func TestUpdateHandlesPhaseDone(t *testing.T) {
	m := NewModel("", []organize.Phase{organize.PhaseScanning, organize.PhaseMovingFiles}, 0, nil)
	m, _ = apply(t, m, PhaseDoneMsg{Phase: organize.PhaseScanning})
	m, _ = apply(t, m, PhaseDoneMsg{Phase: organize.PhaseMovingFiles, Failed: true})

	require.Equal(t, components.PhaseDone, m.status[organize.PhaseScanning])
	require.Equal(t, components.PhaseFailed, m.status[organize.PhaseMovingFiles])

	m, _ = apply(t, m, ProgressMsg{Progress: organize.Progress{CurrentPhase: organize.PhaseScanning}})
	require.Equal(t, components.PhaseDone, m.status[organize.PhaseScanning])
}

func TestUpdateFinishedQuits(t *testing.T) {
	m := NewModel("", nil, 0, nil)
	m, cmd := apply(t, m, FinishedMsg{Result: organize.ExecutionResult{ExecutionID: "execution-1", Success: true}})

	require.NotNil(t, cmd)
	require.True(t, m.IsFinished())
	result, ok := m.Result()
	require.True(t, ok)
	require.Equal(t, "execution-1", result.ExecutionID)
	require.Equal(t, 100.0, m.Progress().OverallProgress)

	_, cmd = apply(t, m, tickMsg{})
	require.Nil(t, cmd)
}

func TestUpdateTickReschedulesWhileRunning(t *testing.T) {
	m := NewModel("", nil, 0, nil)
	_, cmd := apply(t, m, tickMsg{})
	require.NotNil(t, cmd)
}

func TestUpdateCtrlCCancelsOnce(t *testing.T) {
	calls := 0
	m := NewModel("", nil, 0, func() { calls++ })

	m, cmd := apply(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	require.True(t, m.cancelled)
	require.True(t, m.IsFinished())

	m, _ = apply(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.Equal(t, 1, calls)
}

func TestUpdateHandlesQuit(t *testing.T) {
	m := NewModel("", nil, 0, nil)
	m, cmd := apply(t, m, tea.QuitMsg{})
	require.Nil(t, cmd)
	require.True(t, m.IsFinished())
}

func TestUpdateFailedRunMarksRunningPhaseFailed(t *testing.T) {
	m := NewModel("", []organize.Phase{organize.PhaseInitializing, organize.PhaseScanning}, 0, nil)
	m, _ = apply(t, m, PhaseDoneMsg{Phase: organize.PhaseInitializing})
	m, _ = apply(t, m, ProgressMsg{Progress: organize.Progress{CurrentPhase: organize.PhaseScanning}})
	m, _ = apply(t, m, FinishedMsg{Result: organize.ExecutionResult{Success: false}})

	require.Equal(t, components.PhaseDone, m.status[organize.PhaseInitializing])
	require.Equal(t, components.PhaseFailed, m.status[organize.PhaseScanning])
	require.Less(t, m.Progress().OverallProgress, 100.0)
}
