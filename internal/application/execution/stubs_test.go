package execution

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
	"github.com/alexisbeaulieu97/reshelf/internal/ports"
)

const (
	opScan        = "scan"
	opClassify    = "classify"
	opDirectories = "directories"
	opBackup      = "backup"
	opMove        = "move"
	opPermissions = "permissions"
	opValidate    = "validate"
	opConnection  = "connection"
)

// stubEnvironment implements every per-environment collaborator and counts
// the calls it receives.
type stubEnvironment struct {
	env   organize.Environment
	files []organize.FileInfo

	mu       sync.Mutex
	calls    map[string]int
	failures map[string]error
	panics   map[string]bool
	before   map[string]func(ctx context.Context)

	movedInputs      [][]organize.FileInfo
	matchedInputs    [][]organize.ClassificationResult
	classifiedInputs [][]organize.FileInfo
	backupIDs        []string
	backupPaths      [][]string

	validation organize.PermissionValidation
	withProbe  bool
}

func newStubEnvironment(env organize.Environment, fileCount int) *stubEnvironment {
	files := make([]organize.FileInfo, 0, fileCount)
	for i := 0; i < fileCount; i++ {
		name := fmt.Sprintf("file-%d.sh", i)
		files = append(files, organize.FileInfo{
			Path:         path.Join("/", string(env), name),
			Name:         name,
			Extension:    ".sh",
			Environment:  env,
			RelativePath: name,
		})
	}
	return &stubEnvironment{
		env:        env,
		files:      files,
		calls:      map[string]int{},
		failures:   map[string]error{},
		panics:     map[string]bool{},
		before:     map[string]func(context.Context){},
		validation: organize.PermissionValidation{Valid: true},
	}
}

func (s *stubEnvironment) failOn(op string, err error) *stubEnvironment {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
	return s
}

func (s *stubEnvironment) panicOn(op string) *stubEnvironment {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panics[op] = true
	return s
}

func (s *stubEnvironment) beforeOp(op string, fn func(ctx context.Context)) *stubEnvironment {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.before[op] = fn
	return s
}

func (s *stubEnvironment) record(ctx context.Context, op string) error {
	s.mu.Lock()
	s.calls[op]++
	hook := s.before[op]
	shouldPanic := s.panics[op]
	err := s.failures[op]
	s.mu.Unlock()

	if hook != nil {
		hook(ctx)
	}
	if shouldPanic {
		panic(op + " exploded")
	}
	return err
}

func (s *stubEnvironment) count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *stubEnvironment) set() ports.CollaboratorSet {
	set := ports.CollaboratorSet{
		RootPath:    "/" + string(s.env),
		Scanner:     s,
		Classifier:  s,
		Mover:       s,
		Backup:      s,
		Directories: s,
		Permissions: s,
		Validator:   s,
	}
	if s.withProbe {
		set.Connection = s
	}
	return set
}

func (s *stubEnvironment) DetectFlatFiles(ctx context.Context, env organize.Environment) ([]organize.FileInfo, error) {
	if err := s.record(ctx, opScan); err != nil {
		return nil, err
	}
	return append([]organize.FileInfo(nil), s.files...), nil
}

func (s *stubEnvironment) ClassifyEnvironment(ctx context.Context, env organize.Environment, files []organize.FileInfo) (organize.Classification, error) {
	if err := s.record(ctx, opClassify); err != nil {
		return organize.Classification{}, err
	}
	s.mu.Lock()
	s.classifiedInputs = append(s.classifiedInputs, files)
	s.mu.Unlock()

	results := make([]organize.ClassificationResult, 0, len(files))
	for _, file := range files {
		results = append(results, organize.ClassificationResult{
			File:        file,
			FileType:    organize.FileTypeScript,
			TargetPath:  "scripts",
			Permissions: "0755",
			Confidence:  0.9,
			AppliedRule: "scripts",
		})
	}
	return organize.Classification{Classifications: results}, nil
}

func (s *stubEnvironment) MoveFiles(ctx context.Context, scanned []organize.FileInfo, classifications []organize.ClassificationResult, opts organize.MoveOptions) (organize.MoveResult, error) {
	if err := s.record(ctx, opMove); err != nil {
		return organize.MoveResult{}, err
	}
	s.mu.Lock()
	s.movedInputs = append(s.movedInputs, scanned)
	s.matchedInputs = append(s.matchedInputs, classifications)
	s.mu.Unlock()

	var result organize.MoveResult
	for _, c := range classifications {
		moved := c.File
		moved.RelativePath = path.Join(c.TargetPath, c.File.Name)
		moved.Path = path.Join("/", string(opts.Environment), moved.RelativePath)
		result.MovedFiles = append(result.MovedFiles, moved)
	}
	return result, nil
}

func (s *stubEnvironment) SetPermissions(ctx context.Context, files []organize.FileInfo, classifications []organize.ClassificationResult, env organize.Environment) (organize.PermissionSummary, error) {
	if err := s.record(ctx, opPermissions); err != nil {
		return organize.PermissionSummary{}, err
	}
	return organize.PermissionSummary{Environment: env, TotalFiles: len(files), SuccessfulUpdates: len(files)}, nil
}

func (s *stubEnvironment) ValidatePermissions(ctx context.Context, files []organize.FileInfo, classifications []organize.ClassificationResult, env organize.Environment) (organize.PermissionValidation, error) {
	if err := s.record(ctx, opValidate); err != nil {
		return organize.PermissionValidation{}, err
	}
	return s.validation, nil
}

func (s *stubEnvironment) CreateEnvironmentStructure(ctx context.Context, targetPath string, env organize.Environment) (organize.DirectoryResult, error) {
	if err := s.record(ctx, opDirectories); err != nil {
		return organize.DirectoryResult{}, err
	}
	return organize.DirectoryResult{Environment: env, Created: []string{"scripts", "docs"}}, nil
}

func (s *stubEnvironment) CreateBackup(ctx context.Context, paths []string, backupID string) (organize.BackupResult, error) {
	if err := s.record(ctx, opBackup); err != nil {
		return organize.BackupResult{}, err
	}
	s.mu.Lock()
	s.backupIDs = append(s.backupIDs, backupID)
	s.backupPaths = append(s.backupPaths, append([]string(nil), paths...))
	s.mu.Unlock()
	return organize.BackupResult{BackupID: backupID, Environment: s.env}, nil
}

func (s *stubEnvironment) TestConnection(ctx context.Context) error {
	return s.record(ctx, opConnection)
}

type stubSync struct {
	mu          sync.Mutex
	syncCalls   int
	verifyCalls int
	lastSource  string
	lastDest    string
	lastOptions organize.SyncOptions
	report      organize.ConsistencyReport
	syncErr     error
}

func newStubSync() *stubSync {
	return &stubSync{report: organize.ConsistencyReport{IsConsistent: true}}
}

func (s *stubSync) ExecuteSync(ctx context.Context, src, dst string, opts organize.SyncOptions) (organize.SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncCalls++
	s.lastSource, s.lastDest, s.lastOptions = src, dst, opts
	if s.syncErr != nil {
		return organize.SyncResult{}, s.syncErr
	}
	return organize.SyncResult{SyncID: "sync-1", Direction: opts.Direction, DryRun: opts.DryRun}, nil
}

func (s *stubSync) VerifyConsistency(ctx context.Context) (organize.ConsistencyReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verifyCalls++
	return s.report, nil
}

type stubReportWriter struct {
	mu    sync.Mutex
	kinds []organize.ReportKind
}

func (w *stubReportWriter) WriteReport(ctx context.Context, kind organize.ReportKind, snapshot organize.ExecutionResult) (organize.GeneratedReport, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.kinds = append(w.kinds, kind)
	return organize.GeneratedReport{Kind: kind, FilePath: string(kind) + ".md", GeneratedAt: time.Now()}, nil
}

type recordingPublisher struct {
	mu        sync.Mutex
	events    []recordedEvent
	onPublish func(ports.DomainEvent)
}

type recordedEvent struct {
	eventType   string
	payload     interface{}
	executionID string
}

func (r *recordingPublisher) Publish(ctx context.Context, event ports.DomainEvent) error {
	if r.onPublish != nil {
		r.onPublish(event)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{
		eventType:   event.EventType(),
		payload:     event.Payload(),
		executionID: ports.ExecutionID(ctx),
	})
	return nil
}

func (r *recordingPublisher) Subscribe(string, ports.EventHandler) (ports.Subscription, error) {
	return noopSubscription{}, nil
}

func (r *recordingPublisher) ofType(eventType string) []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recordedEvent
	for _, evt := range r.events {
		if evt.eventType == eventType {
			out = append(out, evt)
		}
	}
	return out
}

type noopSubscription struct{}

func (noopSubscription) Unsubscribe() {}

func collaboratorsOf(stubs ...*stubEnvironment) ports.Collaborators {
	collaborators := ports.Collaborators{}
	for _, stub := range stubs {
		collaborators[stub.env] = stub.set()
	}
	return collaborators
}
