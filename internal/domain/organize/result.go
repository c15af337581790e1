package organize

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// EnvironmentResult accumulates the per-environment counters of a run.
type EnvironmentResult struct {
	Environment        Environment   `json:"environment"`
	Success            bool          `json:"success"`
	ScannedFiles       int           `json:"scannedFiles"`
	ClassifiedFiles    int           `json:"classifiedFiles"`
	MovedFiles         int           `json:"movedFiles"`
	PermissionUpdates  int           `json:"permissionUpdates"`
	CreatedDirectories int           `json:"createdDirectories"`
	ProcessingTime     time.Duration `json:"processingTime"`
	ErrorCount         int           `json:"errorCount"`
}

// ExecutionError is the normalised form of every failure a run records.
type ExecutionError struct {
	Phase       Phase       `json:"phase"`
	Environment Environment `json:"environment,omitempty"`
	Message     string      `json:"message"`
	Timestamp   time.Time   `json:"timestamp"`
	Details     interface{} `json:"-"`
}

func (e ExecutionError) Error() string {
	if e.Environment != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Phase, e.Environment, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Phase, e.Message)
}

// Rate is a percentage that may not have been measured. A Rate that was
// not computed renders as "not computed" and never feeds thresholds.
type Rate struct {
	Percent  float64
	Computed bool
}

// ComputedRate wraps a measured percentage.
func ComputedRate(percent float64) Rate {
	return Rate{Percent: percent, Computed: true}
}

// NotComputed marks a statistic the run has no measurement for.
func NotComputed() Rate {
	return Rate{}
}

func (r Rate) String() string {
	if !r.Computed {
		return "not computed"
	}
	return fmt.Sprintf("%.1f%%", r.Percent)
}

// Below reports whether the rate was measured and is under threshold.
func (r Rate) Below(threshold float64) bool {
	return r.Computed && r.Percent < threshold
}

// MarshalJSON encodes measured rates as numbers and the rest as the
// string "not computed".
func (r Rate) MarshalJSON() ([]byte, error) {
	if !r.Computed {
		return json.Marshal("not computed")
	}
	return json.Marshal(r.Percent)
}

// OverallStatistics sums per-environment results.
type OverallStatistics struct {
	TotalScannedFiles       int  `json:"totalScannedFiles"`
	TotalMovedFiles         int  `json:"totalMovedFiles"`
	TotalCreatedDirectories int  `json:"totalCreatedDirectories"`
	TotalPermissionUpdates  int  `json:"totalPermissionUpdates"`
	FlatFileReduction       int  `json:"flatFileReduction"`
	StructureComplianceRate Rate `json:"structureComplianceRate"`
	EnvironmentMatchRate    Rate `json:"environmentMatchRate"`
}

// ReportKind names a report produced during the generating_report phase.
type ReportKind string

const (
	ReportExecutionSummary      ReportKind = "execution_summary"
	ReportEnvironmentComparison ReportKind = "environment_comparison"
	ReportErrorAnalysis         ReportKind = "error_analysis"
	ReportPerformanceAnalysis   ReportKind = "performance_analysis"
)

// GeneratedReport points at a report file written by a run.
type GeneratedReport struct {
	Kind        ReportKind `json:"type"`
	FilePath    string     `json:"filePath"`
	GeneratedAt time.Time  `json:"generatedAt"`
}

// PhaseTiming records how long one phase handler ran.
type PhaseTiming struct {
	Phase    Phase         `json:"phase"`
	Duration time.Duration `json:"duration"`
	Failed   bool          `json:"failed"`
}

// ExecutionResult is produced exactly once per run.
type ExecutionResult struct {
	ExecutionID         string                            `json:"executionId"`
	Success             bool                              `json:"success"`
	Options             ExecutionOptions                  `json:"-"`
	StartTime           time.Time                         `json:"startTime"`
	EndTime             time.Time                         `json:"endTime"`
	TotalProcessingTime time.Duration                     `json:"totalProcessingTime"`
	EnvironmentResults  map[Environment]EnvironmentResult `json:"environmentResults"`
	OverallStatistics   OverallStatistics                 `json:"overallStatistics"`
	PhaseTimings        []PhaseTiming                     `json:"phaseTimings"`
	Errors              []ExecutionError                  `json:"errors"`
	Warnings            []string                          `json:"warnings"`
	Reports             []GeneratedReport                 `json:"reports"`
	Backups             []BackupResult                    `json:"backups,omitempty"`
	Sync                *SyncResult                       `json:"sync,omitempty"`
	Consistency         *ConsistencyReport                `json:"consistency,omitempty"`
}

// LogFields summarises the result for structured logging.
func (r ExecutionResult) LogFields() []interface{} {
	return []interface{}{
		"execution_id", r.ExecutionID,
		"success", r.Success,
		"errors", len(r.Errors),
		"warnings", len(r.Warnings),
		"duration_ms", r.TotalProcessingTime.Milliseconds(),
	}
}

// OrderedEnvironments returns the environment results in request order,
// followed by any result whose environment was not requested.
func (r ExecutionResult) OrderedEnvironments() []EnvironmentResult {
	out := make([]EnvironmentResult, 0, len(r.EnvironmentResults))
	seen := make(map[Environment]struct{}, len(r.EnvironmentResults))
	for _, env := range r.Options.Environments {
		if res, ok := r.EnvironmentResults[env]; ok {
			out = append(out, res)
			seen[env] = struct{}{}
		}
	}
	var rest []EnvironmentResult
	for env, res := range r.EnvironmentResults {
		if _, ok := seen[env]; !ok {
			rest = append(rest, res)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].Environment < rest[j].Environment })
	return append(out, rest...)
}
