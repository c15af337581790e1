package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/reshelf/internal/application/execution"
	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
	"github.com/alexisbeaulieu97/reshelf/internal/ports"
)

// Tracker follows a run through the event publisher and renders the last
// progress snapshot on a fixed tick. Interactive trackers drive a
// Bubbletea program; the others print a console bar line whenever the
// snapshot changed since the previous tick.
type Tracker struct {
	mu       sync.Mutex
	model    Model
	last     organize.Progress
	seen     bool
	lastLine string

	out         io.Writer
	interactive bool
	interval    time.Duration
	now         func() time.Time

	program    *tea.Program
	programErr error
	subs       []ports.Subscription
	stop       chan struct{}
	done       chan struct{}
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithOutput sets where the tracker renders.
func WithOutput(w io.Writer) TrackerOption {
	return func(t *Tracker) {
		if w != nil {
			t.out = w
		}
	}
}

// WithInteractive selects the Bubbletea display.
func WithInteractive(interactive bool) TrackerOption {
	return func(t *Tracker) {
		t.interactive = interactive
	}
}

// WithInterval sets the refresh tick.
func WithInterval(d time.Duration) TrackerOption {
	return func(t *Tracker) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithClock overrides the clock used for elapsed times.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTracker builds a tracker for the planned phases. cancel is invoked
// when the user interrupts the interactive display.
func NewTracker(phases []organize.Phase, cancel func(), opts ...TrackerOption) *Tracker {
	t := &Tracker{
		out:      os.Stdout,
		interval: DefaultInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.model = NewModel("", phases, t.interval, cancel)
	return t
}

// Attach subscribes the tracker to every run event it renders.
func (t *Tracker) Attach(publisher ports.EventPublisher) error {
	for _, eventType := range []string{
		ports.EventProgressUpdated,
		ports.EventPhaseCompleted,
		ports.EventPhaseFailed,
		ports.EventExecutionCompleted,
		ports.EventExecutionFailed,
	} {
		sub, err := publisher.Subscribe(eventType, t.handle)
		if err != nil {
			t.detach()
			return fmt.Errorf("subscribe to %s: %w", eventType, err)
		}
		t.subs = append(t.subs, sub)
	}
	return nil
}

func (t *Tracker) handle(_ context.Context, event ports.DomainEvent) error {
	switch payload := event.Payload().(type) {
	case organize.Progress:
		t.mu.Lock()
		t.last = payload
		t.seen = true
		t.mu.Unlock()
		t.dispatch(ProgressMsg{Progress: payload})
	case execution.PhaseEvent:
		t.dispatch(PhaseDoneMsg{Phase: payload.Phase, Failed: event.EventType() == ports.EventPhaseFailed})
	case organize.ExecutionResult:
		t.dispatch(FinishedMsg{Result: payload})
	default:
		return fmt.Errorf("unexpected %s payload %T", event.EventType(), payload)
	}
	return nil
}

func (t *Tracker) dispatch(msg tea.Msg) {
	t.mu.Lock()
	program := t.program
	if program == nil {
		updated, _ := t.model.Update(msg)
		if m, ok := updated.(Model); ok {
			t.model = m
		}
	}
	t.mu.Unlock()
	if program != nil {
		program.Send(msg)
	}
}

// Last returns the most recent progress snapshot.
func (t *Tracker) Last() (organize.Progress, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, t.seen
}

// Start begins rendering until Stop is called or ctx ends.
func (t *Tracker) Start(ctx context.Context) {
	t.stop = make(chan struct{})
	t.done = make(chan struct{})

	if t.interactive {
		t.mu.Lock()
		t.program = tea.NewProgram(t.model, tea.WithOutput(t.out), tea.WithContext(ctx))
		program := t.program
		t.mu.Unlock()
		go func() {
			defer close(t.done)
			_, err := program.Run()
			if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				t.mu.Lock()
				t.programErr = err
				t.mu.Unlock()
			}
		}()
		return
	}

	go t.loop(ctx)
}

func (t *Tracker) loop(ctx context.Context) {
	defer close(t.done)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.Render()
		case <-t.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Render prints the console line for the last snapshot if it changed.
func (t *Tracker) Render() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.seen {
		return
	}
	line := ConsoleLine(t.last, t.now())
	if line == t.lastLine {
		return
	}
	t.lastLine = line
	fmt.Fprintln(t.out, line)
}

// Stop ends rendering, unsubscribes, and for console trackers prints the
// final view.
func (t *Tracker) Stop() error {
	defer t.detach()
	if t.done == nil {
		return nil
	}

	if t.interactive {
		t.mu.Lock()
		program := t.program
		t.mu.Unlock()
		program.Quit()
		<-t.done
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.programErr
	}

	close(t.stop)
	<-t.done
	t.Render()

	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, t.model.View())
	return nil
}

func (t *Tracker) detach() {
	for _, sub := range t.subs {
		sub.Unsubscribe()
	}
	t.subs = nil
}
