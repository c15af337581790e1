package execution

import (
	"sync"
	"time"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
)

// session is the mutable state of one Execute call. Only the coordinator
// goroutine writes it; fan-out sub-tasks hand back commit functions instead.
type session struct {
	mu sync.Mutex

	id        string
	options   organize.ExecutionOptions
	startTime time.Time
	progress  organize.Progress
	results   map[organize.Environment]*organize.EnvironmentResult
	errors    []organize.ExecutionError
	warnings  []string

	// mergeScans keeps a single working file set shared by all
	// environments instead of one set per environment.
	mergeScans bool
	merged     []organize.FileInfo
	scans      map[organize.Environment][]organize.FileInfo

	sharedClassifications *classificationSet
	classifications       map[organize.Environment]*classificationSet

	moved       map[organize.Environment][]organize.FileInfo
	timings     []organize.PhaseTiming
	backups     []organize.BackupResult
	sync        *organize.SyncResult
	consistency *organize.ConsistencyReport
	reports     []organize.GeneratedReport
}

func newSession(id string, options organize.ExecutionOptions, start time.Time, mergeScans bool) *session {
	s := &session{
		id:        id,
		options:   options,
		startTime: start,
		progress: organize.Progress{
			SessionID:    id,
			CurrentPhase: organize.PhaseInitializing,
			StartTime:    start,
		},
		results:         make(map[organize.Environment]*organize.EnvironmentResult, len(options.Environments)),
		mergeScans:      mergeScans,
		scans:           make(map[organize.Environment][]organize.FileInfo),
		classifications: make(map[organize.Environment]*classificationSet),
		moved:           make(map[organize.Environment][]organize.FileInfo),
	}
	for _, env := range options.Environments {
		s.results[env] = &organize.EnvironmentResult{Environment: env}
	}
	return s
}

// beginPhase moves progress to phase and returns the snapshot to publish.
func (s *session) beginPhase(phase organize.Phase, index, total int, now time.Time) organize.Progress {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.progress.CurrentPhase = phase
	s.progress.OverallProgress = float64(index) / float64(total) * 100
	s.progress.PhaseProgress = 0
	s.progress.EstimatedTimeRemaining = 0
	if index > 0 {
		elapsed := now.Sub(s.startTime)
		s.progress.EstimatedTimeRemaining = elapsed / time.Duration(index) * time.Duration(total-index)
	}
	return s.progress
}

// finish marks the terminal phase and returns the final snapshot.
func (s *session) finish(phase organize.Phase) organize.Progress {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.progress.CurrentPhase = phase
	if phase == organize.PhaseCompleted {
		s.progress.OverallProgress = 100
		s.progress.PhaseProgress = 100
	}
	s.progress.EstimatedTimeRemaining = 0
	return s.progress
}

func (s *session) recordError(phase organize.Phase, env organize.Environment, message string, details interface{}, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.errors = append(s.errors, organize.ExecutionError{
		Phase:       phase,
		Environment: env,
		Message:     message,
		Timestamp:   at,
		Details:     details,
	})
	s.progress.ErrorCount++
}

func (s *session) addWarning(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.warnings = append(s.warnings, message)
	s.progress.WarningCount++
}

func (s *session) recordTiming(phase organize.Phase, d time.Duration, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timings = append(s.timings, organize.PhaseTiming{Phase: phase, Duration: d, Failed: failed})
}

// environment returns the mutable counters of env. Callers hold s.mu.
func (s *session) environment(env organize.Environment) *organize.EnvironmentResult {
	res, ok := s.results[env]
	if !ok {
		res = &organize.EnvironmentResult{Environment: env}
		s.results[env] = res
	}
	return res
}

func (s *session) addProcessingTime(env organize.Environment, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.environment(env).ProcessingTime += d
}

func (s *session) addEnvironmentError(env organize.Environment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.environment(env).ErrorCount++
}

func (s *session) storeScan(env organize.Environment, files []organize.FileInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scans[env] = append([]organize.FileInfo(nil), files...)
	if s.mergeScans {
		s.merged = append(s.merged, files...)
	}
	s.environment(env).ScannedFiles += len(files)

	total := 0
	if s.mergeScans {
		total = len(s.merged)
	} else {
		for _, scanned := range s.scans {
			total += len(scanned)
		}
	}
	s.progress.TotalFiles = total
}

// workingFiles is the file set phases operate on for env. With merged scans
// every environment sees the same union.
func (s *session) workingFiles(env organize.Environment) []organize.FileInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mergeScans {
		return append([]organize.FileInfo(nil), s.merged...)
	}
	return append([]organize.FileInfo(nil), s.scans[env]...)
}

// ownScan is what env's scanner reported, regardless of merging.
func (s *session) ownScan(env organize.Environment) []organize.FileInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]organize.FileInfo(nil), s.scans[env]...)
}

// storeClassifications replaces the classification mapping. With merged
// scans the whole shared mapping is replaced, so the last environment to
// classify wins.
func (s *session) storeClassifications(env organize.Environment, results []organize.ClassificationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := newClassificationSet(results)
	if s.mergeScans {
		s.sharedClassifications = set
	} else {
		s.classifications[env] = set
	}
	s.environment(env).ClassifiedFiles += len(results)
}

func (s *session) classificationsFor(env organize.Environment) []organize.ClassificationResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.classifications[env]
	if s.mergeScans {
		set = s.sharedClassifications
	}
	return set.list()
}

func (s *session) storeMoved(env organize.Environment, files []organize.FileInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.moved[env] = append([]organize.FileInfo(nil), files...)
	s.environment(env).MovedFiles += len(files)
	s.progress.ProcessedFiles += len(files)
}

func (s *session) movedFiles(env organize.Environment) []organize.FileInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]organize.FileInfo(nil), s.moved[env]...)
}

func (s *session) addCreatedDirectories(env organize.Environment, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.environment(env).CreatedDirectories += n
}

func (s *session) addPermissionUpdates(env organize.Environment, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.environment(env).PermissionUpdates += n
}

func (s *session) addBackup(backup organize.BackupResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backups = append(s.backups, backup)
}

func (s *session) recordSync(result organize.SyncResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync = &result
}

func (s *session) recordConsistency(report organize.ConsistencyReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consistency = &report
}

func (s *session) addReport(report organize.GeneratedReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, report)
}

// classificationSet keeps classifications keyed by source path in first-seen
// order; later entries for the same path replace earlier ones.
type classificationSet struct {
	order  []string
	byPath map[string]organize.ClassificationResult
}

func newClassificationSet(results []organize.ClassificationResult) *classificationSet {
	set := &classificationSet{byPath: make(map[string]organize.ClassificationResult, len(results))}
	for _, r := range results {
		if _, seen := set.byPath[r.File.Path]; !seen {
			set.order = append(set.order, r.File.Path)
		}
		set.byPath[r.File.Path] = r
	}
	return set
}

func (c *classificationSet) list() []organize.ClassificationResult {
	if c == nil {
		return nil
	}
	out := make([]organize.ClassificationResult, 0, len(c.order))
	for _, p := range c.order {
		out = append(out, c.byPath[p])
	}
	return out
}
