package execution

import (
	"context"
	"errors"
	"time"

	"github.com/sourcegraph/conc/panics"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
	"github.com/alexisbeaulieu97/reshelf/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/reshelf/internal/ports"
	pkgerrors "github.com/alexisbeaulieu97/reshelf/pkg/errors"
)

// Engine sequences the planned phases of a run, fanning per-environment work
// out to the collaborator set of each environment.
type Engine struct {
	collaborators ports.Collaborators
	sync          ports.SyncManager
	reports       ports.ReportWriter
	logger        ports.Logger
	events        ports.EventPublisher
	clock         func() time.Time

	mergeScans      bool
	syncSource      string
	syncDestination string
	syncExcludes    []string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger injects a logger into the engine.
func WithLogger(logger ports.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithEvents injects an event publisher.
func WithEvents(events ports.EventPublisher) Option {
	return func(e *Engine) {
		e.events = events
	}
}

// WithSyncManager injects the manager used by the syncing and validating
// phases.
func WithSyncManager(manager ports.SyncManager) Option {
	return func(e *Engine) {
		e.sync = manager
	}
}

// WithReportWriter injects the writer used by the generating_report phase.
func WithReportWriter(writer ports.ReportWriter) Option {
	return func(e *Engine) {
		e.reports = writer
	}
}

// WithMergeScans controls whether scan results of all environments form one
// working set (the default) or stay partitioned per environment.
func WithMergeScans(merge bool) Option {
	return func(e *Engine) {
		e.mergeScans = merge
	}
}

// WithSyncPaths overrides the source and destination handed to the sync
// manager.
func WithSyncPaths(source, destination string) Option {
	return func(e *Engine) {
		if source != "" {
			e.syncSource = source
		}
		if destination != "" {
			e.syncDestination = destination
		}
	}
}

// WithSyncExcludes overrides the patterns the sync phase skips.
func WithSyncExcludes(patterns []string) Option {
	return func(e *Engine) {
		e.syncExcludes = append([]string(nil), patterns...)
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// NewEngine constructs an Engine over the given per-environment
// collaborators.
func NewEngine(collaborators ports.Collaborators, opts ...Option) *Engine {
	engine := &Engine{
		collaborators:   collaborators,
		logger:          logging.NewNoOpLogger(),
		clock:           time.Now,
		mergeScans:      true,
		syncSource:      ".",
		syncDestination: organize.DefaultSyncDestination,
		syncExcludes:    organize.DefaultSyncExcludes(),
	}
	for _, opt := range opts {
		opt(engine)
	}
	engine.logger = engine.logger.With("layer", "application", "component", "engine")
	return engine
}

// Execute runs every planned phase and always returns a result, converting
// failures and recovered panics into ExecutionErrors.
func (e *Engine) Execute(ctx context.Context, options organize.ExecutionOptions) organize.ExecutionResult {
	if ctx == nil {
		ctx = context.Background()
	}
	options = options.Clone()

	id := ports.NewExecutionID()
	ctx = ports.WithExecutionID(ctx, id)
	s := newSession(id, options, e.now(), e.mergeScans)
	callback := options.ProgressCallback

	phases := organize.Plan(options)
	e.logger.Info(ctx, "execution started",
		"mode", options.Mode,
		"environments", options.Environments,
		"phases", len(phases),
		"dry_run", options.DryRun,
		"parallel", options.EnableParallel,
	)
	if e.mergeScans {
		e.logger.Info(ctx, "scan results are merged across environments", "merge_scans", true)
	}

	failed := false
	for i, phase := range phases {
		if err := ctx.Err(); err != nil {
			s.recordError(phase, "", "execution cancelled", cancelledError(err), e.now())
			e.logger.Warn(ctx, "execution cancelled", "phase", phase)
			failed = true
			break
		}

		snapshot := s.beginPhase(phase, i, len(phases), e.now())
		e.publish(ctx, callback, ports.EventProgressUpdated, snapshot)

		start := e.now()
		err := e.runPhase(ctx, s, phase)
		duration := e.now().Sub(start)
		s.recordTiming(phase, duration, err != nil)

		if err == nil {
			e.logger.Debug(ctx, "phase completed", "phase", phase, "duration_ms", duration.Milliseconds())
			e.publish(ctx, callback, ports.EventPhaseCompleted, PhaseEvent{Phase: phase, Duration: duration.Milliseconds()})
			continue
		}

		env, message, details := attribute(err)
		s.recordError(phase, env, message, details, e.now())
		e.logger.Error(ctx, "phase failed", "phase", phase, "environment", env, "error", err)

		if !options.ContinueOnError || organize.CodeOf(err) == organize.ErrCodeCancelled || ctx.Err() != nil {
			failed = true
			break
		}
		e.publish(ctx, callback, ports.EventPhaseFailed, PhaseEvent{Phase: phase, Duration: duration.Milliseconds(), Err: err})
	}

	terminal := organize.PhaseCompleted
	if failed {
		terminal = organize.PhaseFailed
	}
	e.publish(ctx, callback, ports.EventProgressUpdated, s.finish(terminal))

	result := e.finalize(s)
	eventType := ports.EventExecutionCompleted
	if failed {
		eventType = ports.EventExecutionFailed
	}
	e.logger.Info(ctx, "execution finished", result.LogFields()...)
	e.publish(ctx, callback, eventType, result)
	return result
}

func (e *Engine) runPhase(ctx context.Context, s *session, phase organize.Phase) (err error) {
	handler := e.handlerFor(phase)
	if handler == nil {
		return nil
	}

	var catcher panics.Catcher
	catcher.Try(func() {
		err = handler(ctx, s)
	})
	if recovered := catcher.Recovered(); recovered != nil {
		return organize.NewError(organize.ErrCodeInternal, "phase handler panicked", recovered.AsError(), map[string]interface{}{"phase": phase})
	}
	return err
}

// finalize converts the session into the run's result. A nil session is a
// programmer error.
func (e *Engine) finalize(s *session) organize.ExecutionResult {
	if s == nil {
		panic("execution: finalize called without a session")
	}
	return s.result(e.now())
}

func (e *Engine) now() time.Time {
	return e.clock()
}

// attribute extracts the environment a failure belongs to, its message and
// the details kept alongside the ExecutionError.
func attribute(err error) (organize.Environment, string, interface{}) {
	var collabErr *pkgerrors.CollaboratorError
	if errors.As(err, &collabErr) {
		details := map[string]interface{}{"cause": collabErr.Err}
		if len(collabErr.Others) > 0 {
			details["other_failures"] = collabErr.Others
		}
		return organize.Environment(collabErr.Environment), collabErr.Err.Error(), details
	}
	return "", err.Error(), map[string]interface{}{"cause": err}
}
