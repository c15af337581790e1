package execution

import (
	"time"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
)

// result converts the session into an ExecutionResult. It is used both for
// the final result and for the interim snapshot handed to report writers.
func (s *session) result(end time.Time) organize.ExecutionResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	envResults := make(map[organize.Environment]organize.EnvironmentResult, len(s.results))
	var stats organize.OverallStatistics
	for env, res := range s.results {
		copied := *res
		copied.Success = copied.ErrorCount == 0
		envResults[env] = copied

		stats.TotalScannedFiles += copied.ScannedFiles
		stats.TotalMovedFiles += copied.MovedFiles
		stats.TotalPermissionUpdates += copied.PermissionUpdates
		stats.TotalCreatedDirectories += copied.CreatedDirectories
	}
	stats.FlatFileReduction = stats.TotalMovedFiles
	stats.StructureComplianceRate = organize.NotComputed()
	stats.EnvironmentMatchRate = organize.NotComputed()
	if s.consistency != nil {
		stats.EnvironmentMatchRate = s.consistency.MatchRate()
	}

	result := organize.ExecutionResult{
		ExecutionID:         s.id,
		Success:             len(s.errors) == 0,
		Options:             s.options.Clone(),
		StartTime:           s.startTime,
		EndTime:             end,
		TotalProcessingTime: end.Sub(s.startTime),
		EnvironmentResults:  envResults,
		OverallStatistics:   stats,
		PhaseTimings:        append([]organize.PhaseTiming(nil), s.timings...),
		Errors:              append([]organize.ExecutionError{}, s.errors...),
		Warnings:            append([]string{}, s.warnings...),
		Reports:             append([]organize.GeneratedReport{}, s.reports...),
		Backups:             append([]organize.BackupResult(nil), s.backups...),
	}
	if s.sync != nil {
		syncCopy := *s.sync
		result.Sync = &syncCopy
	}
	if s.consistency != nil {
		consistencyCopy := *s.consistency
		result.Consistency = &consistencyCopy
	}
	return result
}
