package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// ConsoleBarWidth is the cell count of the plain console bar.
const ConsoleBarWidth = 40

// Progress renders overall run completion.
type Progress struct {
	bar progress.Model
}

// NewProgress creates a progress component of the given width.
func NewProgress(width int) Progress {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	if width > 0 {
		bar.Width = width
	}
	return Progress{bar: bar}
}

// View renders the bar for a percentage between 0 and 100.
func (p Progress) View(percent float64) string {
	label := lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%5.1f%%", clampPercent(percent)))
	return lipgloss.JoinHorizontal(lipgloss.Left, label, " ", p.bar.ViewAs(clampPercent(percent)/100))
}

// Bar renders a bracketed block bar such as [████    ] for terminals that
// cannot host the interactive view.
func Bar(percent float64, width int) string {
	if width <= 0 {
		width = ConsoleBarWidth
	}
	filled := int(math.Round(clampPercent(percent) / 100 * float64(width)))
	return "[" + strings.Repeat("█", filled) + strings.Repeat(" ", width-filled) + "]"
}

func clampPercent(percent float64) float64 {
	return math.Max(0, math.Min(100, percent))
}
