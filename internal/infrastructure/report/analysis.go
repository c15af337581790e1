package report

import (
	"fmt"
	"time"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
)

// EnvironmentTiming is one environment's share of the run.
type EnvironmentTiming struct {
	Environment    organize.Environment `json:"environment"`
	ProcessingTime time.Duration        `json:"processingTime"`
}

// Bottleneck flags an environment that took the longest.
type Bottleneck struct {
	Environment    organize.Environment `json:"environment"`
	ProcessingTime time.Duration        `json:"processingTime"`
	Percentage     float64              `json:"percentage"`
	Suggestion     string               `json:"suggestion"`
}

// Throughput relates the files scanned to the wall-clock time of the run.
type Throughput struct {
	FilesPerSecond float64       `json:"filesPerSecond"`
	TotalFiles     int           `json:"totalFiles"`
	TotalTime      time.Duration `json:"totalTime"`
}

// PerformanceAnalysis is derived from the final result only.
type PerformanceAnalysis struct {
	EnvironmentTimings []EnvironmentTiming    `json:"environmentTimings"`
	Bottlenecks        []Bottleneck           `json:"bottlenecks"`
	Throughput         Throughput             `json:"throughput"`
	MaxProcessingTime  time.Duration          `json:"maxProcessingTime"`
	MinProcessingTime  time.Duration          `json:"minProcessingTime"`
	PhaseTimings       []organize.PhaseTiming `json:"phaseTimings"`
}

// Priority orders recommendations.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Recommendation is a follow-up suggested by threshold rules.
type Recommendation struct {
	Type        string   `json:"type"`
	Priority    Priority `json:"priority"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Action      string   `json:"action"`
}

const (
	complianceThreshold = 90
	matchThreshold      = 95
	slowRunThreshold    = 60 * time.Second
)

// Analyze computes timing comparisons and throughput for result.
func Analyze(result organize.ExecutionResult) PerformanceAnalysis {
	envs := result.OrderedEnvironments()
	analysis := PerformanceAnalysis{
		EnvironmentTimings: make([]EnvironmentTiming, 0, len(envs)),
		PhaseTimings:       append([]organize.PhaseTiming(nil), result.PhaseTimings...),
	}

	var total time.Duration
	for i, env := range envs {
		analysis.EnvironmentTimings = append(analysis.EnvironmentTimings, EnvironmentTiming{
			Environment:    env.Environment,
			ProcessingTime: env.ProcessingTime,
		})
		total += env.ProcessingTime
		if i == 0 || env.ProcessingTime > analysis.MaxProcessingTime {
			analysis.MaxProcessingTime = env.ProcessingTime
		}
		if i == 0 || env.ProcessingTime < analysis.MinProcessingTime {
			analysis.MinProcessingTime = env.ProcessingTime
		}
	}

	if total > 0 {
		for _, env := range envs {
			if env.ProcessingTime != analysis.MaxProcessingTime {
				continue
			}
			analysis.Bottlenecks = append(analysis.Bottlenecks, Bottleneck{
				Environment:    env.Environment,
				ProcessingTime: env.ProcessingTime,
				Percentage:     float64(env.ProcessingTime) / float64(total) * 100,
				Suggestion:     fmt.Sprintf("%s took the longest; check its connectivity and file count", env.Environment),
			})
		}
	}

	analysis.Throughput = Throughput{
		TotalFiles: result.OverallStatistics.TotalScannedFiles,
		TotalTime:  result.TotalProcessingTime,
	}
	if seconds := result.TotalProcessingTime.Seconds(); seconds > 0 {
		analysis.Throughput.FilesPerSecond = float64(analysis.Throughput.TotalFiles) / seconds
	}
	return analysis
}

// Recommend applies the threshold rules to result. Rates that were not
// computed never trigger a recommendation.
func Recommend(result organize.ExecutionResult) []Recommendation {
	var recs []Recommendation
	stats := result.OverallStatistics

	if n := len(result.Errors); n > 0 {
		recs = append(recs, Recommendation{
			Type:        "maintenance",
			Priority:    PriorityHigh,
			Title:       "Resolve execution errors",
			Description: fmt.Sprintf("%d errors were recorded during the run.", n),
			Action:      "Review the error details and rerun the failed phases.",
		})
	}
	if stats.StructureComplianceRate.Below(complianceThreshold) {
		recs = append(recs, Recommendation{
			Type:        "structure",
			Priority:    PriorityMedium,
			Title:       "Improve structure compliance",
			Description: fmt.Sprintf("Structure compliance is %s, below %d%%.", stats.StructureComplianceRate, complianceThreshold),
			Action:      "Add classification rules for the files left at the root.",
		})
	}
	if stats.EnvironmentMatchRate.Below(matchThreshold) {
		recs = append(recs, Recommendation{
			Type:        "maintenance",
			Priority:    PriorityMedium,
			Title:       "Reconcile environments",
			Description: fmt.Sprintf("Environment match rate is %s, below %d%%.", stats.EnvironmentMatchRate, matchThreshold),
			Action:      "Run a sync_only pass and inspect the consistency report.",
		})
	}
	if result.TotalProcessingTime > slowRunThreshold {
		recs = append(recs, Recommendation{
			Type:        "performance",
			Priority:    PriorityLow,
			Title:       "Speed up execution",
			Description: fmt.Sprintf("The run took %s.", result.TotalProcessingTime.Round(time.Second)),
			Action:      "Enable parallel execution or raise the parallel limit.",
		})
	}
	return recs
}
