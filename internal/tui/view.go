package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
	"github.com/alexisbeaulieu97/reshelf/internal/tui/components"
)

// View renders the current state of the model.
func (m Model) View() string {
	var sections []string

	phase := m.progress.CurrentPhase
	if phase == "" {
		phase = organize.PhaseInitializing
	}
	sections = append(sections, titleStyle.Render(fmt.Sprintf("%s • %s", m.heading(), PhaseStyle(phase).Render(phase.String()))))
	sections = append(sections, sectionStyle.Render("Progress"), m.bar.View(m.progress.OverallProgress))

	entries := components.NewPhaseList(m.order, m.status).Entries()
	if len(entries) > 0 {
		sections = append(sections, sectionStyle.Render("Phases"), renderPhaseEntries(entries))
	}

	summary := components.NewSummary(components.SummaryData{Result: m.result, Cancelled: m.cancelled}).View()
	if strings.TrimSpace(summary) != "" {
		sections = append(sections, sectionStyle.Render("Summary"), summaryStyle.Render(summary))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderPhaseEntries(entries []components.PhaseEntry) string {
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, fmt.Sprintf(" %s %s", StatusIcon(entry.Status), entry.Phase))
	}
	return strings.Join(lines, "\n")
}

func (m Model) heading() string {
	if strings.TrimSpace(m.title) != "" {
		return m.title
	}
	return "reshelf"
}

// ConsoleLine renders one progress snapshot as a single plain line.
func ConsoleLine(p organize.Progress, now time.Time) string {
	line := fmt.Sprintf("%s %5.1f%% %s", components.Bar(p.OverallProgress, components.ConsoleBarWidth), p.OverallProgress, PhaseStyle(p.CurrentPhase).Render(p.CurrentPhase.String()))
	if elapsed := p.Elapsed(now); elapsed > 0 {
		line += fmt.Sprintf(" (%s)", elapsed.Truncate(time.Second))
	}
	if p.ErrorCount > 0 {
		line += fmt.Sprintf(" errors=%d", p.ErrorCount)
	}
	return line
}

// StatusIcon returns the glyph representing a phase status.
func StatusIcon(status components.PhaseStatus) string {
	switch status {
	case components.PhaseDone:
		return successStyle.Render("✓")
	case components.PhaseRunning:
		return runningStyle.Render("⏳")
	case components.PhaseFailed:
		return failureStyle.Render("✗")
	default:
		return pendingStyle.Render("…")
	}
}
