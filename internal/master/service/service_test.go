package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"

	v1 "github.com/flightlab-io/flightlab/api/v1"
	"github.com/flightlab-io/flightlab/pkg/log"
)

// fakeStream records sent messages. When gate is set, every Send waits for a
// value on it.
type fakeStream[T any] struct {
	grpc.ServerStream
	ctx  context.Context
	gate chan struct{}

	mu   sync.Mutex
	sent []*T
}

func newFakeStream[T any](ctx context.Context) *fakeStream[T] {
	return &fakeStream[T]{ctx: ctx}
}

func (f *fakeStream[T]) Context() context.Context { return f.ctx }

func (f *fakeStream[T]) Send(m *T) error {
	f.mu.Lock()
	f.sent = append(f.sent, m)
	f.mu.Unlock()
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-f.ctx.Done():
			return f.ctx.Err()
		}
	}
	return nil
}

func (f *fakeStream[T]) messages() []*T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*T(nil), f.sent...)
}

func testConfig() *v1.SystemConfig {
	return &v1.SystemConfig{
		MasterMachineName: "master",
		Machines: []*v1.Machine{
			{
				Name: "master",
				IP:   "10.0.0.1",
				Components: []*v1.Component{
					{Name: "projector", Status: v1.StatusUnknown, Projector: &v1.ProjectorSettings{IP: "10.0.0.50"}},
				},
			},
			{
				Name: "sim-1",
				IP:   "10.0.0.2",
				Components: []*v1.Component{
					{Name: "xplane", Status: v1.StatusUnknown, App: &v1.AppSettings{ExecutablePath: "/opt/xplane"}},
					{Name: "lights", Status: v1.StatusNotApplicable, Light: &v1.LightSettings{Com: "/dev/ttyUSB0"}},
				},
			},
		},
	}
}

func newTestService(t *testing.T) *ControlService {
	t.Helper()
	s := New(testConfig(), WithLogger(log.NewNopLogger()), WithPollInterval(20*time.Millisecond))
	t.Cleanup(s.Stop)
	return s
}

func appStatus(name string, st v1.Status, as v1.AppStatus) *v1.ComponentStatus {
	return &v1.ComponentStatus{Name: name, Status: st, AppStatus: &as}
}

func projectorStatus(st v1.Status, ps v1.ProjectorStatus) *v1.ComponentStatus {
	return &v1.ComponentStatus{Name: "projector", Status: st, ProjectorStatus: &ps}
}

func TestAggregate(t *testing.T) {
	S := func(s ...v1.Status) []v1.Status { return s }
	tests := []struct {
		name string
		in   []v1.Status
		want v1.SystemState
	}{
		{"on and off", S(v1.StatusOn, v1.StatusOff), v1.SystemStateTransient},
		{"mixed with not applicable", S(v1.StatusOn, v1.StatusOn, v1.StatusOff, v1.StatusNotApplicable), v1.SystemStateTransient},
		{"all off", S(v1.StatusOff, v1.StatusOff), v1.SystemStateOff},
		{"empty", S(), v1.SystemStateOff},
		{"only not applicable", S(v1.StatusNotApplicable), v1.SystemStateOff},
		{"unknown wins", S(v1.StatusUnknown, v1.StatusOn), v1.SystemStateUnknown},
		{"unknown over transient", S(v1.StatusTransient, v1.StatusUnknown), v1.SystemStateUnknown},
		{"transient", S(v1.StatusTransient, v1.StatusOn), v1.SystemStateTransient},
		{"all on", S(v1.StatusOn, v1.StatusNotApplicable, v1.StatusOn), v1.SystemStateOn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Aggregate(tt.in))
		})
	}
}

func TestUpdateStatusAggregatesOnChange(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	assert.Equal(t, v1.SystemStateUnknown, s.State())

	var states []v1.SystemState
	s.OnStateChanged(func(st v1.SystemState) { states = append(states, st) })

	_, err := s.UpdateStatus(ctx, &v1.MachineStatus{Name: "master", ComponentStatus: []*v1.ComponentStatus{
		projectorStatus(v1.StatusOn, v1.ProjectorStatusOn),
	}})
	require.NoError(t, err)
	assert.Equal(t, v1.SystemStateUnknown, s.State(), "xplane is still unknown")
	assert.Empty(t, states)

	_, err = s.UpdateStatus(ctx, &v1.MachineStatus{Name: "sim-1", ComponentStatus: []*v1.ComponentStatus{
		appStatus("xplane", v1.StatusOn, v1.AppStatusRunning),
	}})
	require.NoError(t, err)
	assert.Equal(t, v1.SystemStateOn, s.State())

	// Same report again: no redundant notification.
	_, err = s.UpdateStatus(ctx, &v1.MachineStatus{Name: "sim-1", ComponentStatus: []*v1.ComponentStatus{
		appStatus("xplane", v1.StatusOn, v1.AppStatusRunning),
	}})
	require.NoError(t, err)

	_, err = s.UpdateStatus(ctx, &v1.MachineStatus{Name: "master", ComponentStatus: []*v1.ComponentStatus{
		projectorStatus(v1.StatusTransient, v1.ProjectorStatusCoolDown),
	}})
	require.NoError(t, err)

	assert.Equal(t, []v1.SystemState{v1.SystemStateOn, v1.SystemStateTransient}, states)

	cfg := s.Config()
	assert.Equal(t, v1.ProjectorStatusCoolDown, cfg.Machine("master").Component("projector").Projector.Status)
	assert.Equal(t, v1.AppStatusRunning, cfg.Machine("sim-1").Component("xplane").App.Status)
	assert.Equal(t, v1.SystemStateTransient, cfg.State)
}

func TestStateListenersEndOnLatestState(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	_, err := s.UpdateStatus(ctx, &v1.MachineStatus{Name: "master", ComponentStatus: []*v1.ComponentStatus{
		projectorStatus(v1.StatusOn, v1.ProjectorStatusOn),
	}})
	require.NoError(t, err)

	var (
		mu     sync.Mutex
		states []v1.SystemState
	)
	s.OnStateChanged(func(st v1.SystemState) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, st)
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				st, as := v1.StatusOn, v1.AppStatusRunning
				if (i+j)%2 == 0 {
					st, as = v1.StatusOff, v1.AppStatusNotRunning
				}
				_, _ = s.UpdateStatus(ctx, &v1.MachineStatus{Name: "sim-1", ComponentStatus: []*v1.ComponentStatus{
					appStatus("xplane", st, as),
				}})
			}
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, states)
	assert.Equal(t, s.State(), states[len(states)-1])
	for i := 1; i < len(states); i++ {
		assert.NotEqual(t, states[i-1], states[i], "repeated announcement at %d", i)
	}
}

func TestUpdateStatusSkipsUnknownNames(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	before := s.Config()

	resp, err := s.UpdateStatus(ctx, &v1.MachineStatus{Name: "sim-9", ComponentStatus: []*v1.ComponentStatus{
		appStatus("xplane", v1.StatusOn, v1.AppStatusRunning),
	}})
	require.NoError(t, err)
	assert.NotNil(t, resp)
	assert.Equal(t, before, s.Config())

	_, err = s.UpdateStatus(ctx, &v1.MachineStatus{Name: "sim-1", ComponentStatus: []*v1.ComponentStatus{
		appStatus("missing", v1.StatusOff, v1.AppStatusNotRunning),
		appStatus("xplane", v1.StatusOff, v1.AppStatusNotRunning),
	}})
	require.NoError(t, err)

	cfg := s.Config()
	assert.Equal(t, v1.StatusOff, cfg.Machine("sim-1").Component("xplane").Status)
	assert.Equal(t, v1.StatusUnknown, cfg.Machine("master").Component("projector").Status)
	assert.Len(t, cfg.Machine("sim-1").Components, 2)
}

func TestGetConfigReturnsSnapshot(t *testing.T) {
	s := newTestService(t)
	cfg, err := s.GetConfig(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)

	cfg.Machines[0].Components[0].Status = v1.StatusOn
	cfg.Machines = nil

	again := s.Config()
	assert.Len(t, again.Machines, 2)
	assert.Equal(t, v1.StatusUnknown, again.Machines[0].Components[0].Status)
}

func TestWatchStatusFloodNeverBlocks(t *testing.T) {
	s := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := newFakeStream[v1.MachineStatus](ctx)
	stream.gate = make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- s.WatchStatus(&emptypb.Empty{}, stream) }()
	require.Eventually(t, func() bool { _, n, _ := s.watcherCount(); return n == 1 }, time.Second, 5*time.Millisecond)

	report := func(st v1.Status) *v1.MachineStatus {
		return &v1.MachineStatus{Name: "sim-1", ComponentStatus: []*v1.ComponentStatus{appStatus("xplane", st, v1.AppStatusRunning)}}
	}

	// The first report is picked up and its Send blocks on the gate.
	_, err := s.UpdateStatus(ctx, report(v1.StatusOn))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(stream.messages()) == 1 }, time.Second, 5*time.Millisecond)

	flooded := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			_, _ = s.UpdateStatus(ctx, report(v1.StatusOff))
		}
		close(flooded)
	}()
	select {
	case <-flooded:
	case <-time.After(5 * time.Second):
		t.Fatal("UpdateStatus blocked on a full watcher queue")
	}

	close(stream.gate)
	require.Eventually(t, func() bool { return len(stream.messages()) == 101 }, 5*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestWatchConfigSeesLatestSnapshot(t *testing.T) {
	s := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := newFakeStream[v1.SystemConfig](ctx)
	done := make(chan error, 1)
	go func() { done <- s.WatchConfig(&emptypb.Empty{}, stream) }()
	require.Eventually(t, func() bool { n, _, _ := s.watcherCount(); return n == 1 }, time.Second, 5*time.Millisecond)

	for i := 0; i < 300; i++ {
		st := v1.StatusOff
		if i%2 == 0 {
			st = v1.StatusOn
		}
		_, err := s.UpdateStatus(ctx, &v1.MachineStatus{Name: "sim-1", ComponentStatus: []*v1.ComponentStatus{
			appStatus("xplane", st, v1.AppStatusRunning),
		}})
		require.NoError(t, err)
	}

	// The last update set xplane OFF.
	require.Eventually(t, func() bool {
		msgs := stream.messages()
		if len(msgs) == 0 {
			return false
		}
		return msgs[len(msgs)-1].Machine("sim-1").Component("xplane").Status == v1.StatusOff
	}, 5*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	n, _, _ := s.watcherCount()
	assert.Zero(t, n)
}

func commands(msgs []*v1.SystemCommand) []v1.Command {
	out := make([]v1.Command, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Command)
	}
	return out
}

func TestWatchCommandOnlySeesLatest(t *testing.T) {
	s := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := newFakeStream[v1.SystemCommand](ctx)
	stream.gate = make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- s.WatchCommand(&v1.MachineID{Name: "sim-1"}, stream) }()
	require.Eventually(t, func() bool { _, _, n := s.watcherCount(); return n == 1 }, time.Second, 5*time.Millisecond)

	s.SendCommand(v1.CommandRestart)
	require.Eventually(t, func() bool { return len(stream.messages()) == 1 }, time.Second, 5*time.Millisecond)

	// The watcher is busy delivering RESTART; both commands arrive before it
	// wakes again.
	s.SendCommand(v1.CommandStart)
	s.SendCommand(v1.CommandStop)
	stream.gate <- struct{}{}

	require.Eventually(t, func() bool { return len(stream.messages()) == 2 }, time.Second, 5*time.Millisecond)
	close(stream.gate)
	assert.Never(t, func() bool { return len(stream.messages()) > 2 }, 100*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, []v1.Command{v1.CommandRestart, v1.CommandStop}, commands(stream.messages()))

	cancel()
	require.NoError(t, <-done)
}

func TestWatchCommandWaitsForNextSend(t *testing.T) {
	s := newTestService(t)
	s.SendCommand(v1.CommandStart)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream := newFakeStream[v1.SystemCommand](ctx)
	go func() { _ = s.WatchCommand(&v1.MachineID{Name: "sim-1"}, stream) }()
	require.Eventually(t, func() bool { _, _, n := s.watcherCount(); return n == 1 }, time.Second, 5*time.Millisecond)

	assert.Never(t, func() bool { return len(stream.messages()) > 0 }, 100*time.Millisecond, 10*time.Millisecond)

	s.SendCommand(v1.CommandStop)
	require.Eventually(t, func() bool { return len(stream.messages()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []v1.Command{v1.CommandStop}, commands(stream.messages()))
}

func TestStopEndsEveryStream(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		assert.NoError(t, s.WatchConfig(&emptypb.Empty{}, newFakeStream[v1.SystemConfig](ctx)))
	}()
	go func() {
		defer wg.Done()
		assert.NoError(t, s.WatchStatus(&emptypb.Empty{}, newFakeStream[v1.MachineStatus](ctx)))
	}()
	go func() {
		defer wg.Done()
		assert.NoError(t, s.WatchCommand(&v1.MachineID{Name: "sim-1"}, newFakeStream[v1.SystemCommand](ctx)))
	}()
	require.Eventually(t, func() bool {
		c, st, cmd := s.watcherCount()
		return c == 1 && st == 1 && cmd == 1
	}, time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("streams did not end after Stop")
	}

	c, st, cmd := s.watcherCount()
	assert.Zero(t, c+st+cmd)

	// Streams opened after Stop end right away.
	assert.NoError(t, s.WatchStatus(&emptypb.Empty{}, newFakeStream[v1.MachineStatus](ctx)))
}

func TestSubscribe(t *testing.T) {
	s := newTestService(t)
	feed, cancel := s.Subscribe()

	_, err := s.UpdateStatus(context.Background(), &v1.MachineStatus{Name: "sim-1", ComponentStatus: []*v1.ComponentStatus{
		appStatus("xplane", v1.StatusOn, v1.AppStatusRunning),
	}})
	require.NoError(t, err)

	ms, ok := feed.Get(context.Background(), time.Second)
	require.True(t, ok)
	assert.Equal(t, "sim-1", ms.Name)

	cancel()
	_, n, _ := s.watcherCount()
	assert.Zero(t, n)
	_, ok = feed.Get(context.Background(), 10*time.Millisecond)
	assert.False(t, ok)
}
