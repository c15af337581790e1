package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).MarginTop(1)

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	summaryStyle = lipgloss.NewStyle().MarginTop(1)
)

// PhaseStyle picks the color a phase name is shown in.
func PhaseStyle(phase organize.Phase) lipgloss.Style {
	switch phase {
	case organize.PhaseCompleted:
		return successStyle
	case organize.PhaseFailed:
		return failureStyle
	case organize.PhaseInitializing, organize.PhaseGeneratingReport:
		return pendingStyle
	default:
		return runningStyle
	}
}
