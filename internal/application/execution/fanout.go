package execution

import (
	"context"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/sourcegraph/conc/panics"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
	pkgerrors "github.com/alexisbeaulieu97/reshelf/pkg/errors"
)

// subTask is the per-environment body of a phase. It must not touch the
// session; it returns a commit that the coordinator applies afterwards.
type subTask func(ctx context.Context, env organize.Environment) (commit func(), err error)

type outcome struct {
	env      organize.Environment
	commit   func()
	err      error
	duration time.Duration
	ran      bool
}

// fanOut runs task once per environment and commits the outcomes in request
// order. In parallel mode every sub-task runs to completion before the first
// failure, in request order, is returned; siblings are never cancelled.
// Sequential mode stops at the first failure or cancellation.
func (e *Engine) fanOut(ctx context.Context, s *session, phase organize.Phase, task subTask) error {
	if !phase.PerEnvironment() {
		return organize.NewError(organize.ErrCodeInternal, "phase does not fan out per environment", nil, map[string]interface{}{"phase": phase})
	}
	envs := s.options.Environments

	var outcomes []outcome
	if s.options.EnableParallel && len(envs) > 1 {
		var err error
		outcomes, err = e.runParallel(ctx, envs, s.options.MaxParallel, task)
		if err != nil {
			return organize.NewError(organize.ErrCodeInternal, "failed to start worker pool", err, nil)
		}
	} else {
		outcomes = e.runSequential(ctx, envs, task)
	}

	var first *outcome
	for i := range outcomes {
		out := &outcomes[i]
		if !out.ran {
			continue
		}
		s.addProcessingTime(out.env, out.duration)
		if out.err != nil {
			s.addEnvironmentError(out.env)
			if first == nil {
				first = out
				continue
			}
			e.logger.Warn(ctx, "additional environment failure", "phase", phase, "environment", out.env, "error", out.err)
			continue
		}
		if out.commit != nil {
			out.commit()
		}
	}

	if first != nil {
		return &pkgerrors.CollaboratorError{
			Environment: string(first.env),
			Operation:   string(phase),
			Err:         first.err,
			Others:      collectOthers(phase, outcomes, first),
		}
	}
	return nil
}

func (e *Engine) runSequential(ctx context.Context, envs []organize.Environment, task subTask) []outcome {
	outcomes := make([]outcome, len(envs))
	for i, env := range envs {
		outcomes[i] = e.runOne(ctx, env, task)
		if outcomes[i].err != nil {
			break
		}
	}
	return outcomes
}

func (e *Engine) runParallel(ctx context.Context, envs []organize.Environment, maxParallel int, task subTask) ([]outcome, error) {
	if maxParallel < 1 {
		maxParallel = 1
	}
	pool, err := ants.NewPool(maxParallel)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	outcomes := make([]outcome, len(envs))
	var wg sync.WaitGroup
	for i, env := range envs {
		i, env := i, env
		outcomes[i].env = env
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			outcomes[i] = e.runOne(ctx, env, task)
		})
		if submitErr != nil {
			wg.Done()
			outcomes[i].ran = true
			outcomes[i].err = organize.NewError(organize.ErrCodeInternal, "failed to schedule environment", submitErr, nil)
		}
	}
	wg.Wait()
	return outcomes, nil
}

func (e *Engine) runOne(ctx context.Context, env organize.Environment, task subTask) outcome {
	out := outcome{env: env, ran: true}
	if err := ctx.Err(); err != nil {
		out.err = cancelledError(err)
		return out
	}
	start := e.now()

	var catcher panics.Catcher
	catcher.Try(func() {
		out.commit, out.err = task(ctx, env)
	})
	if recovered := catcher.Recovered(); recovered != nil {
		out.commit = nil
		out.err = organize.NewError(organize.ErrCodeInternal, "environment task panicked", recovered.AsError(), map[string]interface{}{"environment": env})
	}

	out.duration = e.now().Sub(start)
	return out
}

func collectOthers(phase organize.Phase, outcomes []outcome, first *outcome) []error {
	var others []error
	for i := range outcomes {
		out := &outcomes[i]
		if out == first || !out.ran || out.err == nil {
			continue
		}
		others = append(others, pkgerrors.NewCollaboratorError(string(out.env), string(phase), out.err))
	}
	return others
}

func cancelledError(cause error) error {
	return organize.NewError(organize.ErrCodeCancelled, "execution cancelled", cause, nil)
}
