package tui

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
	"github.com/alexisbeaulieu97/reshelf/internal/tui/components"
)

func TestNewModelInitialisesState(t *testing.T) {
	phases := organize.Plan(organize.ExecutionOptions{Mode: organize.ModeClassifyOnly})
	m := NewModel("Test", phases, 0, nil)

	require.Equal(t, DefaultInterval, m.interval)
	require.Equal(t, phases, m.order)
	for _, phase := range phases {
		require.Equal(t, components.PhasePending, m.status[phase])
	}
	require.False(t, m.IsFinished())
	_, ok := m.Result()
	require.False(t, ok)
}

func TestNewModelDropsDuplicatePhases(t *testing.T) {
	m := NewModel("", []organize.Phase{organize.PhaseScanning, organize.PhaseScanning, ""}, 0, nil)
	require.Equal(t, []organize.Phase{organize.PhaseScanning}, m.order)
}

func TestModelInitReturnsTickCommand(t *testing.T) {
	m := NewModel("", nil, 0, nil)
	require.NotNil(t, m.Init())
}
