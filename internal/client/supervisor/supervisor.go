// Package supervisor owns a machine's components and connects them to the
// master.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	v1 "github.com/flightlab-io/flightlab/api/v1"
	"github.com/flightlab-io/flightlab/internal/component"
	"github.com/flightlab-io/flightlab/internal/pkg/metrics"
	"github.com/flightlab-io/flightlab/internal/pkg/task"
	"github.com/flightlab-io/flightlab/pkg/log"
)

// Control is the supervisor's link to the master.
type Control interface {
	Start()
	Stop()
	UpdateStatus(cs v1.ComponentStatus)
}

// Listener is a local server run for the lifetime of the supervisor.
type Listener interface {
	Start(ctx context.Context) error
}

// Factory builds a component from its configuration.
type Factory func(cfg *v1.Component, deps component.Deps) (component.Component, error)

type Option func(*Supervisor)

// WithFactory replaces component.New.
func WithFactory(f Factory) Option {
	return func(s *Supervisor) { s.factory = f }
}

// WithExit sets the function EXIT calls, typically the cancel of the process
// context.
func WithExit(fn func()) Option {
	return func(s *Supervisor) { s.exit = fn }
}

type Supervisor struct {
	machine    string
	components []component.Component
	factory    Factory
	exit       func()
	log        log.Logger

	mu      sync.Mutex
	control Control
	closing bool

	// dispatches in flight; cancelled by Shutdown
	ctx      context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup

	shutdownOnce sync.Once
}

// New builds every component of machine. If one fails, the ones already built
// are closed.
func New(machine *v1.Machine, deps component.Deps, opts ...Option) (*Supervisor, error) {
	s := &Supervisor{
		machine: machine.Name,
		factory: component.New,
		exit:    func() {},
		log:     deps.Logger,
	}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = log.Std()
	}
	s.log = s.log.WithValues("machine", machine.Name)
	deps.Logger = s.log
	s.ctx, s.cancel = context.WithCancel(context.Background())

	for _, cfg := range machine.Components {
		c, err := s.factory(cfg, deps)
		if err != nil {
			s.closeComponents()
			return nil, fmt.Errorf("component %q: %w", cfg.Name, err)
		}
		c.OnStatusChanged(s.forward)
		s.components = append(s.components, c)
	}
	s.log.Info("Components ready", "count", len(s.components))
	return s, nil
}

// Components returns the owned components.
func (s *Supervisor) Components() []component.Component {
	return s.components
}

// Statuses returns the status of every component.
func (s *Supervisor) Statuses() []v1.ComponentStatus {
	out := make([]v1.ComponentStatus, 0, len(s.components))
	for _, c := range s.components {
		out = append(out, c.Status())
	}
	return out
}

// MachineStatus returns the full report of this machine.
func (s *Supervisor) MachineStatus() *v1.MachineStatus {
	statuses := s.Statuses()
	ms := &v1.MachineStatus{Name: s.machine, ComponentStatus: make([]*v1.ComponentStatus, len(statuses))}
	for i := range statuses {
		ms.ComponentStatus[i] = &statuses[i]
	}
	return ms
}

// forward pushes a component's new status to the master. Changes made before
// a control link is attached reach the master with the connect resync.
func (s *Supervisor) forward(c component.Component) {
	s.mu.Lock()
	ctl := s.control
	s.mu.Unlock()
	if ctl != nil {
		ctl.UpdateStatus(c.Status())
	}
}

// HandleCommand runs EXIT and DEBUG itself and dispatches anything else to
// every component at once. It never blocks on a component.
func (s *Supervisor) HandleCommand(cmd v1.Command) {
	switch cmd {
	case v1.CommandExit:
		s.log.Info("Exit requested by master")
		s.exit()
		return
	case v1.CommandDebug:
		s.log.Info("Debug dump", "goroutines", runtime.NumGoroutine(), "tasks", task.Active())
		return
	case v1.CommandUnspecified:
		return
	}

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		s.log.Warn("Ignoring command after shutdown", "command", cmd)
		return
	}
	s.inflight.Add(len(s.components))
	s.mu.Unlock()

	for _, c := range s.components {
		task.Go(fmt.Sprintf("dispatch %s %s", cmd, c.Name()), func() {
			defer s.inflight.Done()
			s.dispatch(c, cmd)
		})
	}
}

func (s *Supervisor) dispatch(c component.Component, cmd v1.Command) {
	start := time.Now()
	err := component.Dispatch(s.ctx, c, cmd)
	metrics.DispatchLatency.WithLabelValues(string(c.Kind()), cmd.String()).Observe(time.Since(start).Seconds())
	if err != nil && !errors.Is(err, context.Canceled) {
		s.log.Error(err, "Command failed", "component", c.Name(), "command", cmd)
	}
}

// Run connects ctl, serves lis and blocks until ctx is done or lis fails,
// then shuts everything down.
func (s *Supervisor) Run(ctx context.Context, ctl Control, lis Listener) error {
	s.mu.Lock()
	s.control = ctl
	s.mu.Unlock()

	lisCtx, stopListener := context.WithCancel(ctx)
	lisErr := make(chan error, 1)
	go func() { lisErr <- lis.Start(lisCtx) }()

	ctl.Start()
	s.log.Info("Supervisor running")

	var err error
	select {
	case <-ctx.Done():
		stopListener()
		err = <-lisErr
	case err = <-lisErr:
		stopListener()
		if err != nil {
			s.log.Error(err, "Local listener failed")
		}
	}

	s.Shutdown()
	return err
}

// Shutdown stops the control link, waits for dispatches to return and closes
// every component. Only the first call does anything.
func (s *Supervisor) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.log.Info("Shutting down supervisor")

		s.mu.Lock()
		ctl := s.control
		s.control = nil
		s.closing = true
		s.mu.Unlock()
		if ctl != nil {
			ctl.Stop()
		}

		s.cancel()
		s.inflight.Wait()
		s.closeComponents()
	})
}

func (s *Supervisor) closeComponents() {
	var g errgroup.Group
	for _, c := range s.components {
		g.Go(func() error {
			if err := c.Close(); err != nil {
				s.log.Error(err, "Failed to close component", "component", c.Name())
			}
			return nil
		})
	}
	_ = g.Wait()
}
