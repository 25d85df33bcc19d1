// Package task provides a cancellable background loop and a registry of the
// goroutines started through it.
package task

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/flightlab-io/flightlab/pkg/log"
)

// ErrHalt is returned by a step to end the loop without being cancelled.
var ErrHalt = errors.New("task halted")

// Outcome tells why a Task's loop ended.
type Outcome int

const (
	// OutcomeNone means the task has not finished a run yet.
	OutcomeNone Outcome = iota
	// OutcomeCancelled means Stop was called.
	OutcomeCancelled
	// OutcomeHalted means the step returned ErrHalt.
	OutcomeHalted
	// OutcomeAborted means the init function failed.
	OutcomeAborted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeHalted:
		return "halted"
	case OutcomeAborted:
		return "aborted"
	default:
		return "none"
	}
}

// StepFunc is one iteration of a Task. A step that waits must do so with
// Task.Sleep or by selecting on ctx.Done.
type StepFunc func(ctx context.Context) error

// Task repeats a step until it is stopped. At most one loop runs at a time.
type Task struct {
	name    string
	step    StepFunc
	init    func(ctx context.Context) error
	cleanup func()
	clock   clock.Clock
	log     log.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	outcome Outcome
}

// Option configures a Task.
type Option func(*Task)

// WithInit runs fn once before the first step. If it fails the loop is skipped
// and the outcome is OutcomeAborted; cleanup still runs.
func WithInit(fn func(ctx context.Context) error) Option {
	return func(t *Task) { t.init = fn }
}

// WithCleanup runs fn after the loop ends, whatever the outcome.
func WithCleanup(fn func()) Option {
	return func(t *Task) { t.cleanup = fn }
}

// WithClock replaces the clock used by Sleep.
func WithClock(c clock.Clock) Option {
	return func(t *Task) {
		if c != nil {
			t.clock = c
		}
	}
}

// WithLogger sets the logger step errors are reported to.
func WithLogger(l log.Logger) Option {
	return func(t *Task) { t.log = l }
}

// New returns a stopped Task.
func New(name string, step StepFunc, opts ...Option) *Task {
	t := &Task{
		name:  name,
		step:  step,
		clock: clock.RealClock{},
	}
	for _, o := range opts {
		o(t)
	}
	if t.log == nil {
		t.log = log.WithName("task")
	}
	t.log = t.log.WithValues("task", name)

	// A never-started task reports itself as done.
	t.done = make(chan struct{})
	close(t.done)
	return t
}

// Name returns the task name.
func (t *Task) Name() string { return t.name }

// Start launches the loop. It is a no-op while the loop is running.
func (t *Task) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	t.cancel = cancel
	t.done = done
	t.outcome = OutcomeNone

	go t.run(ctx, cancel, done)
}

// Stop cancels the loop and waits until cleanup has finished.
func (t *Task) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	<-done
}

// Running reports whether a loop is active.
func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}

// Outcome returns how the last run ended.
func (t *Task) Outcome() Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.outcome
}

// Done is closed when the current run has finished.
func (t *Task) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// Sleep waits for d or until ctx is cancelled. It returns false if cancelled.
func (t *Task) Sleep(ctx context.Context, d time.Duration) bool {
	return Sleep(ctx, t.clock, d)
}

// Sleep waits on c for d or until ctx is cancelled. It returns false if cancelled.
func Sleep(ctx context.Context, c clock.Clock, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := c.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C():
		return true
	}
}

func (t *Task) run(ctx context.Context, cancel context.CancelFunc, done chan struct{}) {
	id := registry.add(t.name)

	outcome := t.loop(ctx)
	cancel()

	if t.cleanup != nil {
		t.safely(func() error { t.cleanup(); return nil })
	}

	t.mu.Lock()
	t.outcome = outcome
	t.cancel = nil
	t.mu.Unlock()

	registry.remove(id)
	close(done)
}

func (t *Task) loop(ctx context.Context) Outcome {
	if t.init != nil {
		if err := t.safely(func() error { return t.init(ctx) }); err != nil {
			t.log.Error(err, "Task init failed")
			return OutcomeAborted
		}
	}

	for {
		if ctx.Err() != nil {
			return OutcomeCancelled
		}

		err := t.safely(func() error { return t.step(ctx) })
		switch {
		case err == nil:
		case errors.Is(err, ErrHalt):
			t.log.Debug("Task halted")
			return OutcomeHalted
		case ctx.Err() != nil:
			return OutcomeCancelled
		default:
			t.log.Error(err, "Task step failed")
		}
	}
}

// safely runs fn and turns a panic into an error.
func (t *Task) safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			t.log.Error(err, "Recovered from panic", "stack", string(debug.Stack()))
		}
	}()
	return fn()
}
