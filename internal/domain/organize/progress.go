package organize

import "time"

// Progress is the observable state of an in-flight run. Observers always
// receive copies.
type Progress struct {
	SessionID       string    `json:"sessionId"`
	CurrentPhase    Phase     `json:"currentPhase"`
	OverallProgress float64   `json:"overallProgress"`
	PhaseProgress   float64   `json:"phaseProgress"`
	ProcessedFiles  int       `json:"processedFiles"`
	TotalFiles      int       `json:"totalFiles"`
	StartTime       time.Time `json:"startTime"`
	CurrentFile     string    `json:"currentFile,omitempty"`
	// EstimatedTimeRemaining is zero when unknown.
	EstimatedTimeRemaining time.Duration `json:"estimatedTimeRemaining,omitempty"`
	ErrorCount             int           `json:"errorCount"`
	WarningCount           int           `json:"warningCount"`
}

// Elapsed returns the wall-clock time since the run started.
func (p Progress) Elapsed(now time.Time) time.Duration {
	if p.StartTime.IsZero() {
		return 0
	}
	return now.Sub(p.StartTime)
}

// LogFields summarises the snapshot for structured logging.
func (p Progress) LogFields() []interface{} {
	return []interface{}{
		"phase", p.CurrentPhase,
		"overall_progress", p.OverallProgress,
		"errors", p.ErrorCount,
		"warnings", p.WarningCount,
	}
}
