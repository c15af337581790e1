package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
)

// SummaryData aggregates what the summary shows.
type SummaryData struct {
	Result    *organize.ExecutionResult
	Cancelled bool
}

// Summary renders a textual run summary.
type Summary struct {
	data SummaryData
}

// NewSummary creates a new Summary component.
func NewSummary(data SummaryData) Summary {
	return Summary{data: data}
}

// View renders the summary. It is empty until the run has a result or was
// cancelled.
func (s Summary) View() string {
	var lines []string
	if s.data.Cancelled {
		lines = append(lines, "Execution cancelled")
	}

	result := s.data.Result
	if result == nil {
		return strings.Join(lines, "\n")
	}

	if result.Success {
		lines = append(lines, fmt.Sprintf("Execution finished successfully in %s", result.TotalProcessingTime.Round(time.Millisecond)))
	} else {
		lines = append(lines, fmt.Sprintf("Execution failed after %s", result.TotalProcessingTime.Round(time.Millisecond)))
	}

	stats := result.OverallStatistics
	lines = append(lines, fmt.Sprintf("Files: %d scanned, %d moved, %d permission updates", stats.TotalScannedFiles, stats.TotalMovedFiles, stats.TotalPermissionUpdates))
	lines = append(lines, fmt.Sprintf("Environment match: %s", stats.EnvironmentMatchRate))

	for _, env := range result.OrderedEnvironments() {
		mark := "✓"
		if !env.Success {
			mark = "✗"
		}
		lines = append(lines, fmt.Sprintf("  %s %s: %d scanned, %d moved, %d errors", mark, env.Environment, env.ScannedFiles, env.MovedFiles, env.ErrorCount))
	}

	if len(result.Errors) > 0 {
		lines = append(lines, "Errors:")
		for _, e := range result.Errors {
			lines = append(lines, "  ✗ "+e.Error())
		}
	}
	for _, w := range result.Warnings {
		lines = append(lines, "  ! "+w)
	}
	for _, r := range result.Reports {
		lines = append(lines, fmt.Sprintf("Report (%s): %s", r.Kind, r.FilePath))
	}

	return strings.Join(lines, "\n")
}
