package control

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	v1 "github.com/flightlab-io/flightlab/api/v1"
	"github.com/flightlab-io/flightlab/internal/master/service"
	"github.com/flightlab-io/flightlab/internal/pkg/metrics"
	"github.com/flightlab-io/flightlab/internal/pkg/task"
	"github.com/flightlab-io/flightlab/pkg/log"
	"github.com/flightlab-io/flightlab/pkg/options"
)

// fakeMaster serves a real ControlService over an in-memory listener that can
// be swapped to simulate a master restart.
type fakeMaster struct {
	svc *service.ControlService
	lis atomic.Pointer[bufconn.Listener]

	mu  sync.Mutex
	srv *grpc.Server
}

func newFakeMaster(t *testing.T) *fakeMaster {
	m := &fakeMaster{svc: service.New(&v1.SystemConfig{
		MasterMachineName: "master",
		Machines: []*v1.Machine{
			{Name: "master"},
			{Name: "sim-1", Components: []*v1.Component{
				{Name: "xplane", App: &v1.AppSettings{}},
				{Name: "p1", Projector: &v1.ProjectorSettings{}},
			}},
		},
	}, service.WithLogger(log.NewNopLogger()), service.WithPollInterval(10*time.Millisecond))}
	m.restart()
	t.Cleanup(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.srv.Stop()
	})
	return m
}

// restart serves on a fresh listener and drops the previous server.
func (m *fakeMaster) restart() {
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	v1.RegisterControlServiceServer(srv, m.svc)
	go srv.Serve(lis)
	m.lis.Store(lis)

	m.mu.Lock()
	old := m.srv
	m.srv = srv
	m.mu.Unlock()
	if old != nil {
		old.Stop()
	}
}

func (m *fakeMaster) dialer() grpc.DialOption {
	return grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return m.lis.Load().DialContext(ctx)
	})
}

type statusBoard struct {
	mu       sync.Mutex
	statuses []v1.ComponentStatus
	reads    atomic.Int32
}

func (b *statusBoard) set(s ...v1.ComponentStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statuses = s
}

func (b *statusBoard) get() []v1.ComponentStatus {
	b.reads.Add(1)
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]v1.ComponentStatus(nil), b.statuses...)
}

func appStatus(s v1.Status, a v1.AppStatus) v1.ComponentStatus {
	return v1.ComponentStatus{Name: "xplane", Status: s, AppStatus: &a}
}

func projectorStatus(s v1.Status, p v1.ProjectorStatus) v1.ComponentStatus {
	return v1.ComponentStatus{Name: "p1", Status: s, ProjectorStatus: &p}
}

func newClient(t *testing.T, m *fakeMaster, board *statusBoard, commands chan<- v1.Command) *Client {
	t.Helper()
	c, err := Dial("passthrough:///bufnet", "sim-1",
		&options.ControlOptions{ReconnectInterval: 20 * time.Millisecond, Timeout: time.Second},
		WithDialOptions(m.dialer()),
		WithLogger(log.NewNopLogger()),
		WithStatusSource(board.get),
		WithCommandHandler(func(cmd v1.Command) { commands <- cmd }),
	)
	require.NoError(t, err)
	return c
}

func TestClientResyncsAndReceivesCommands(t *testing.T) {
	m := newFakeMaster(t)
	board := &statusBoard{}
	board.set(appStatus(v1.StatusOn, v1.AppStatusRunning), projectorStatus(v1.StatusTransient, v1.ProjectorStatusWarmUp))
	commands := make(chan v1.Command, 10)

	c := newClient(t, m, board, commands)
	c.Start()
	c.Start()
	defer c.Stop()

	require.Eventually(t, func() bool { return m.svc.State() == v1.SystemStateTransient },
		5*time.Second, 10*time.Millisecond, "connect must push every component")

	require.Eventually(t, func() bool {
		m.svc.SendCommand(v1.CommandRestart)
		select {
		case cmd := <-commands:
			return cmd == v1.CommandRestart
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)

	c.UpdateStatus(projectorStatus(v1.StatusOn, v1.ProjectorStatusOn))
	require.Eventually(t, func() bool { return m.svc.State() == v1.SystemStateOn },
		5*time.Second, 10*time.Millisecond)
	p1 := m.svc.Config().Machine("sim-1").Component("p1")
	assert.Equal(t, v1.ProjectorStatusOn, p1.Projector.Status)
}

func TestClientReconnectsAfterMasterRestart(t *testing.T) {
	m := newFakeMaster(t)
	board := &statusBoard{}
	board.set(appStatus(v1.StatusOn, v1.AppStatusRunning), projectorStatus(v1.StatusOn, v1.ProjectorStatusOn))

	c := newClient(t, m, board, make(chan v1.Command, 10))
	c.Start()
	defer c.Stop()

	require.Eventually(t, func() bool { return m.svc.State() == v1.SystemStateOn },
		5*time.Second, 10*time.Millisecond)
	connects := testutil.ToFloat64(metrics.Reconnects)

	// Changes made while the master is away only arrive through the resync.
	board.set(appStatus(v1.StatusOff, v1.AppStatusNotRunning), projectorStatus(v1.StatusOff, v1.ProjectorStatusOff))
	m.restart()

	require.Eventually(t, func() bool { return m.svc.State() == v1.SystemStateOff },
		5*time.Second, 10*time.Millisecond)
	assert.Greater(t, testutil.ToFloat64(metrics.Reconnects), connects)
}

func TestResyncOncePerConnection(t *testing.T) {
	m := newFakeMaster(t)
	board := &statusBoard{}
	board.set(appStatus(v1.StatusOn, v1.AppStatusRunning))

	c := newClient(t, m, board, make(chan v1.Command, 10))
	c.Start()
	defer c.Stop()

	require.Eventually(t, func() bool { return board.reads.Load() == 1 },
		5*time.Second, 5*time.Millisecond)

	for want := int32(2); want <= 4; want++ {
		m.restart()
		require.Eventually(t, func() bool { return board.reads.Load() >= want },
			5*time.Second, 5*time.Millisecond)
		// Several reconnect intervals pass without another resync.
		time.Sleep(100 * time.Millisecond)
		assert.Equal(t, want, board.reads.Load())
	}
}

func TestStopWaitsForLoops(t *testing.T) {
	m := newFakeMaster(t)
	c := newClient(t, m, &statusBoard{}, make(chan v1.Command, 1))
	c.Start()

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.ControlConnectivity) == 1
	}, 5*time.Second, 10*time.Millisecond)

	c.Stop()
	assert.NotContains(t, task.Active(), "control watch sim-1")
	assert.NotContains(t, task.Active(), "control push sim-1")
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.ControlConnectivity))
	c.Stop()
}
