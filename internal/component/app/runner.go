package app

import (
	"context"
	"sync"
	"time"

	"k8s.io/utils/clock"

	v1 "github.com/flightlab-io/flightlab/api/v1"
	"github.com/flightlab-io/flightlab/internal/pkg/task"
	"github.com/flightlab-io/flightlab/pkg/log"
)

// pollInterval is how often a running child is checked.
var pollInterval = time.Second

// runner keeps one child process alive while it is wanted and reports its
// status through report.
type runner struct {
	settings *v1.AppSettings
	log      log.Logger
	report   func(v1.AppStatus)

	// keepAlive relaunches a child that exited on its own.
	keepAlive bool

	mu     sync.Mutex
	proc   *process
	wanted bool

	monitor *task.Task
}

func newRunner(name string, s *v1.AppSettings, keepAlive bool, l log.Logger, c clock.Clock, report func(v1.AppStatus)) *runner {
	r := &runner{
		settings:  s,
		log:       l,
		report:    report,
		keepAlive: keepAlive,
	}
	r.monitor = task.New("monitor "+name, r.poll,
		task.WithLogger(l),
		task.WithClock(c),
		task.WithCleanup(func() { l.Debug("Process monitor stopped") }),
	)
	return r
}

// launch starts the child unless it is already running.
func (r *runner) launch() error {
	r.mu.Lock()
	r.wanted = true
	if r.proc != nil && r.proc.alive() {
		r.mu.Unlock()
		return nil
	}
	p, err := launch(r.settings)
	if err != nil {
		r.mu.Unlock()
		r.report(v1.AppStatusNotRunning)
		return err
	}
	r.proc = p
	r.mu.Unlock()

	r.log.Info("Process started", "pid", p.pid(), "path", r.settings.ExecutablePath)
	r.report(v1.AppStatusRunning)
	return nil
}

// halt stops the child and keeps it stopped.
func (r *runner) halt() error {
	r.mu.Lock()
	r.wanted = false
	p := r.proc
	r.proc = nil
	r.mu.Unlock()

	if p != nil {
		if err := p.terminate(); err != nil {
			return err
		}
		r.log.Info("Process stopped", "pid", p.pid(), "exitCode", p.exitCode())
	}
	r.report(v1.AppStatusNotRunning)
	return nil
}

func (r *runner) running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.proc != nil && r.proc.alive()
}

// poll is the monitor step.
func (r *runner) poll(ctx context.Context) error {
	r.mu.Lock()
	p, wanted := r.proc, r.wanted
	crashed := p != nil && !p.alive()
	if crashed {
		r.proc = nil
	}
	r.mu.Unlock()

	switch {
	case crashed:
		r.log.Warn("Process exited", "pid", p.pid(), "exitCode", p.exitCode())
		r.report(v1.AppStatusNotRunning)
		if wanted && r.keepAlive {
			if err := r.launch(); err != nil {
				return err
			}
		}
	case p == nil:
		r.report(v1.AppStatusNotRunning)
	}

	r.monitor.Sleep(ctx, pollInterval)
	return nil
}

func (r *runner) close() error {
	r.monitor.Stop()
	return r.halt()
}
