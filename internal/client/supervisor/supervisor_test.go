package supervisor

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/flightlab-io/flightlab/api/v1"
	"github.com/flightlab-io/flightlab/internal/component"
	"github.com/flightlab-io/flightlab/pkg/log"
)

type fakeComponent struct {
	*component.Base

	mu     sync.Mutex
	calls  []string
	block  chan struct{}
	closes atomic.Int32
}

func (f *fakeComponent) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
}

func (f *fakeComponent) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *fakeComponent) Start(ctx context.Context) error {
	f.record("start")
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			f.record("cancelled")
			return ctx.Err()
		}
	}
	return nil
}

func (f *fakeComponent) Stop(context.Context) error { f.record("stop"); return nil }

func (f *fakeComponent) Restart(ctx context.Context) error { return component.StopStart(ctx, f) }

func (f *fakeComponent) Close() error {
	return f.CloseOnce(func() error {
		f.closes.Add(1)
		return nil
	})
}

type fakeControl struct {
	mu      sync.Mutex
	updates []v1.ComponentStatus
	started bool
	stopped int
}

func (c *fakeControl) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true
}

func (c *fakeControl) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped++
}

func (c *fakeControl) UpdateStatus(cs v1.ComponentStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updates = append(c.updates, cs)
}

func (c *fakeControl) sent() []v1.ComponentStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.updates)
}

type listenerFunc func(ctx context.Context) error

func (f listenerFunc) Start(ctx context.Context) error { return f(ctx) }

func blockUntilDone(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func machine(names ...string) *v1.Machine {
	m := &v1.Machine{Name: "sim-1"}
	for _, n := range names {
		m.Components = append(m.Components, &v1.Component{Name: n, Status: v1.StatusNotApplicable, Light: &v1.LightSettings{}})
	}
	return m
}

// fakeFactory builds fakeComponents and remembers them by name.
type fakeFactory struct {
	built  map[string]*fakeComponent
	block  map[string]chan struct{}
	failOn string
}

func (ff *fakeFactory) New(cfg *v1.Component, deps component.Deps) (component.Component, error) {
	if cfg.Name == ff.failOn {
		return nil, errors.New("no such device")
	}
	f := &fakeComponent{block: ff.block[cfg.Name]}
	f.Base = component.NewBase(f, cfg, deps.Logger)
	if ff.built == nil {
		ff.built = map[string]*fakeComponent{}
	}
	ff.built[cfg.Name] = f
	return f, nil
}

func newSupervisor(t *testing.T, ff *fakeFactory, opts ...Option) *Supervisor {
	t.Helper()
	s, err := New(machine("a", "b"), component.Deps{Logger: log.NewNopLogger()}, append(opts, WithFactory(ff.New))...)
	require.NoError(t, err)
	return s
}

func TestStatusChangesAreForwarded(t *testing.T) {
	ff := &fakeFactory{}
	s := newSupervisor(t, ff)
	ctl := &fakeControl{}

	// Not attached yet: dropped, the connect resync covers it.
	ff.built["a"].SetStatus(v1.StatusOn, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, ctl, listenerFunc(blockUntilDone)) }()

	require.Eventually(t, func() bool {
		ctl.mu.Lock()
		defer ctl.mu.Unlock()
		return ctl.started
	}, time.Second, 5*time.Millisecond)

	ff.built["b"].SetStatus(v1.StatusOff, nil)
	require.Len(t, ctl.sent(), 1)
	assert.Equal(t, "b", ctl.sent()[0].Name)
	assert.Equal(t, v1.StatusOff, ctl.sent()[0].Status)

	ms := s.MachineStatus()
	assert.Equal(t, "sim-1", ms.Name)
	require.Len(t, ms.ComponentStatus, 2)
	assert.Equal(t, v1.StatusOn, ms.ComponentStatus[0].Status)

	cancel()
	require.NoError(t, <-done)
}

func TestDispatchIsConcurrent(t *testing.T) {
	release := make(chan struct{})
	ff := &fakeFactory{block: map[string]chan struct{}{"a": release}}
	s := newSupervisor(t, ff)
	defer s.Shutdown()

	returned := make(chan struct{})
	go func() {
		s.HandleCommand(v1.CommandStart)
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("HandleCommand blocked on a component")
	}

	require.Eventually(t, func() bool { return slices.Equal(ff.built["b"].called(), []string{"start"}) },
		time.Second, 5*time.Millisecond, "a slow component must not hold up the others")
	assert.Equal(t, []string{"start"}, ff.built["a"].called())

	close(release)
	s.HandleCommand(v1.CommandRestart)
	require.Eventually(t, func() bool {
		return slices.Equal(ff.built["a"].called(), []string{"start", "stop", "start"})
	}, time.Second, 5*time.Millisecond)
}

func TestExitAndDebugAreHandledLocally(t *testing.T) {
	var exits atomic.Int32
	ff := &fakeFactory{}
	s := newSupervisor(t, ff, WithExit(func() { exits.Add(1) }))
	defer s.Shutdown()

	s.HandleCommand(v1.CommandDebug)
	s.HandleCommand(v1.CommandExit)
	s.HandleCommand(v1.CommandUnspecified)

	assert.Equal(t, int32(1), exits.Load())
	assert.Empty(t, ff.built["a"].called())
	assert.Empty(t, ff.built["b"].called())
}

func TestShutdownClosesEveryComponentOnce(t *testing.T) {
	ff := &fakeFactory{block: map[string]chan struct{}{"a": make(chan struct{})}}
	s := newSupervisor(t, ff)
	ctl := &fakeControl{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, ctl, listenerFunc(blockUntilDone)) }()

	s.HandleCommand(v1.CommandStart)
	require.Eventually(t, func() bool { return len(ff.built["a"].called()) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	s.Shutdown()

	assert.Equal(t, 1, ctl.stopped)
	for _, name := range []string{"a", "b"} {
		assert.Equal(t, int32(1), ff.built[name].closes.Load(), name)
	}
	assert.Equal(t, []string{"start", "cancelled"}, ff.built["a"].called(), "in-flight dispatch is cancelled")

	s.HandleCommand(v1.CommandStop)
	assert.NotContains(t, ff.built["b"].called(), "stop")
}

func TestListenerFailureShutsDown(t *testing.T) {
	ff := &fakeFactory{}
	s := newSupervisor(t, ff)
	ctl := &fakeControl{}
	boom := errors.New("address already in use")

	err := s.Run(context.Background(), ctl, listenerFunc(func(context.Context) error { return boom }))

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, ctl.stopped)
	assert.Equal(t, int32(1), ff.built["a"].closes.Load())
}

func TestNewClosesBuiltComponentsOnFailure(t *testing.T) {
	ff := &fakeFactory{failOn: "b"}
	_, err := New(machine("a", "b"), component.Deps{Logger: log.NewNopLogger()}, WithFactory(ff.New))

	assert.ErrorContains(t, err, `component "b"`)
	assert.Equal(t, int32(1), ff.built["a"].closes.Load())
}
