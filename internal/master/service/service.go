// Package service implements the master's ControlService: it owns the system
// configuration, folds status reports into it and fans notifications out to
// watch streams.
package service

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"

	v1 "github.com/flightlab-io/flightlab/api/v1"
	"github.com/flightlab-io/flightlab/internal/pkg/metrics"
	"github.com/flightlab-io/flightlab/internal/pkg/queue"
	"github.com/flightlab-io/flightlab/pkg/log"
)

// DefaultPollInterval bounds how long a stream handler takes to notice Stop.
const DefaultPollInterval = time.Second

const (
	streamConfig  = "config"
	streamStatus  = "status"
	streamCommand = "command"
	streamFeed    = "feed"
)

// Option configures a ControlService.
type Option func(*ControlService)

func WithLogger(l log.Logger) Option {
	return func(s *ControlService) { s.log = l }
}

func WithPollInterval(d time.Duration) Option {
	return func(s *ControlService) { s.pollInterval = d }
}

// ControlService serves configuration, status and commands to clients.
type ControlService struct {
	v1.UnimplementedControlServiceServer

	log          log.Logger
	pollInterval time.Duration

	// mu guards config. Readers copy it before releasing the lock.
	mu     sync.Mutex
	config *v1.SystemConfig

	watchMu         sync.Mutex
	configWatchers  map[string]*queue.Queue[struct{}]
	statusWatchers  map[string]*queue.Queue[*v1.MachineStatus]
	commandWatchers map[string]chan struct{}
	command         v1.Command
	stateListeners  []func(v1.SystemState)

	// stateMu serializes state notifications; announced is the last state
	// handed to listeners.
	stateMu   sync.Mutex
	announced v1.SystemState

	stopOnce sync.Once
	stopped  chan struct{}
}

var _ v1.ControlServiceServer = (*ControlService)(nil)

// New returns a service owning cfg. The aggregate state is computed from the
// configured statuses right away.
func New(cfg *v1.SystemConfig, opts ...Option) *ControlService {
	s := &ControlService{
		log:             log.WithName("control-service"),
		pollInterval:    DefaultPollInterval,
		config:          cfg,
		configWatchers:  map[string]*queue.Queue[struct{}]{},
		statusWatchers:  map[string]*queue.Queue[*v1.MachineStatus]{},
		commandWatchers: map[string]chan struct{}{},
		stopped:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	cfg.State = Aggregate(cfg.Statuses())
	s.announced = cfg.State
	metrics.SetSystemState(cfg.State.String(), SystemStates)
	return s
}

// Config returns a snapshot of the system configuration.
func (s *ControlService) Config() *v1.SystemConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config.DeepCopy()
}

// State returns the aggregate system state.
func (s *ControlService) State() v1.SystemState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config.State
}

// OnStateChanged registers fn to be called, in the goroutine that applied the
// status report, whenever the aggregate state changes.
func (s *ControlService) OnStateChanged(fn func(v1.SystemState)) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	s.stateListeners = append(s.stateListeners, fn)
}

func (s *ControlService) GetConfig(context.Context, *emptypb.Empty) (*v1.SystemConfig, error) {
	return s.Config(), nil
}

func (s *ControlService) WatchConfig(_ *emptypb.Empty, stream grpc.ServerStreamingServer[v1.SystemConfig]) error {
	id, q := s.addConfigWatcher()
	defer s.removeConfigWatcher(id)

	l := log.FromContext(stream.Context())
	l.Info("New client starts to watch config", "watcher", id)

	ctx := stream.Context()
	for {
		_, ok := q.Get(ctx, s.pollInterval)
		if s.isStopped() || ctx.Err() != nil {
			return nil
		}
		if !ok {
			continue
		}
		l.Debug("Notifying client of config change", "watcher", id)
		if err := stream.Send(s.Config()); err != nil {
			return err
		}
	}
}

func (s *ControlService) WatchStatus(_ *emptypb.Empty, stream grpc.ServerStreamingServer[v1.MachineStatus]) error {
	id, q := s.addStatusWatcher(streamStatus)
	defer s.removeStatusWatcher(streamStatus, id)

	l := log.FromContext(stream.Context())
	l.Info("New client starts to watch status", "watcher", id)

	ctx := stream.Context()
	for {
		ms, ok := q.Get(ctx, s.pollInterval)
		if s.isStopped() || ctx.Err() != nil {
			return nil
		}
		if !ok {
			continue
		}
		if err := stream.Send(ms); err != nil {
			return err
		}
	}
}

// Subscribe returns an in-process status feed with the same drop-on-full
// semantics as WatchStatus. Call cancel when done.
func (s *ControlService) Subscribe() (feed *queue.Queue[*v1.MachineStatus], cancel func()) {
	id, q := s.addStatusWatcher(streamFeed)
	return q, func() { s.removeStatusWatcher(streamFeed, id) }
}

// UpdateStatus folds a machine's report into the configuration. Unknown
// machines and components are logged and skipped; the call never fails.
func (s *ControlService) UpdateStatus(ctx context.Context, ms *v1.MachineStatus) (*emptypb.Empty, error) {
	l := log.FromContext(ctx)
	metrics.StatusUpdates.WithLabelValues(ms.Name).Inc()

	s.mu.Lock()
	machine := s.config.Machine(ms.Name)
	if machine == nil {
		s.mu.Unlock()
		l.Warn("Machine not found", "machine", ms.Name)
		return &emptypb.Empty{}, nil
	}
	for _, cs := range ms.ComponentStatus {
		if cs == nil {
			continue
		}
		c := machine.Component(cs.Name)
		if c == nil {
			l.Warn("Component not found", "machine", ms.Name, "component", cs.Name)
			continue
		}
		l.Info("Status update", "machine", ms.Name, "component", cs.Name, "status", cs.Status)
		c.ApplyStatus(cs)
	}
	prev := s.config.State
	state := Aggregate(s.config.Statuses())
	s.config.State = state
	s.mu.Unlock()

	if state != prev {
		l.Info("System state changed", "from", prev, "to", state)
		s.announceState()
	}

	s.notify(ms.DeepCopy())
	return &emptypb.Empty{}, nil
}

// announceState hands the current state to the gauge and the listeners.
// Concurrent reports may finish out of order, so the state is re-read under
// stateMu: the last announcement always carries the latest state.
func (s *ControlService) announceState() {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	state := s.State()
	if state == s.announced {
		return
	}
	s.announced = state
	metrics.SetSystemState(state.String(), SystemStates)

	s.watchMu.Lock()
	listeners := slices.Clone(s.stateListeners)
	s.watchMu.Unlock()
	for _, fn := range listeners {
		fn(state)
	}
}

// notify pushes ms to every status watcher and a token to every config
// watcher. Full queues drop the notification.
func (s *ControlService) notify(ms *v1.MachineStatus) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	for _, q := range s.statusWatchers {
		if !q.Push(ms) {
			metrics.NotificationsDropped.WithLabelValues(streamStatus).Inc()
		}
	}
	for _, q := range s.configWatchers {
		if !q.Push(struct{}{}) {
			metrics.NotificationsDropped.WithLabelValues(streamConfig).Inc()
		}
	}
}

func (s *ControlService) WatchCommand(id *v1.MachineID, stream grpc.ServerStreamingServer[v1.SystemCommand]) error {
	key, wake := s.addCommandWatcher()
	defer s.removeCommandWatcher(key)

	l := log.FromContext(stream.Context()).WithValues("machine", id.Name)
	l.Info("Client is listening to commands")
	defer l.Info("Client stopped listening to commands")

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stopped:
			return nil
		case <-wake:
		}

		cmd := s.currentCommand()
		if cmd == v1.CommandUnspecified {
			continue
		}
		l.Info("Sending command", "command", cmd)
		if err := stream.Send(&v1.SystemCommand{Command: cmd}); err != nil {
			return err
		}
	}
}

// SendCommand makes cmd the current command and wakes every command watcher.
// A watcher that has not woken up yet only sees the latest command.
func (s *ControlService) SendCommand(cmd v1.Command) {
	s.log.Info("Sending command to all clients", "command", cmd)
	metrics.CommandsSent.WithLabelValues(cmd.String()).Inc()

	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	s.command = cmd
	for _, wake := range s.commandWatchers {
		select {
		case wake <- struct{}{}:
		default:
		}
	}
}

func (s *ControlService) currentCommand() v1.Command {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	return s.command
}

// Stop ends every stream handler. It is safe to call more than once.
func (s *ControlService) Stop() {
	s.stopOnce.Do(func() {
		s.log.Info("Stopping control service")
		close(s.stopped)

		s.watchMu.Lock()
		defer s.watchMu.Unlock()
		for _, q := range s.configWatchers {
			q.Close()
		}
		for _, q := range s.statusWatchers {
			q.Close()
		}
	})
}

// Stopped is closed by Stop.
func (s *ControlService) Stopped() <-chan struct{} {
	return s.stopped
}

func (s *ControlService) isStopped() bool {
	select {
	case <-s.stopped:
		return true
	default:
		return false
	}
}

func (s *ControlService) addConfigWatcher() (string, *queue.Queue[struct{}]) {
	id := uuid.NewString()
	q := queue.New[struct{}](queue.DefaultCapacity)

	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if s.isStopped() {
		q.Close()
	}
	s.configWatchers[id] = q
	metrics.Watchers.WithLabelValues(streamConfig).Inc()
	return id, q
}

func (s *ControlService) removeConfigWatcher(id string) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if q, ok := s.configWatchers[id]; ok {
		q.Close()
		delete(s.configWatchers, id)
		metrics.Watchers.WithLabelValues(streamConfig).Dec()
	}
}

func (s *ControlService) addStatusWatcher(stream string) (string, *queue.Queue[*v1.MachineStatus]) {
	id := uuid.NewString()
	q := queue.New[*v1.MachineStatus](queue.DefaultCapacity)

	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if s.isStopped() {
		q.Close()
	}
	s.statusWatchers[id] = q
	metrics.Watchers.WithLabelValues(stream).Inc()
	return id, q
}

func (s *ControlService) removeStatusWatcher(stream, id string) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if q, ok := s.statusWatchers[id]; ok {
		q.Close()
		delete(s.statusWatchers, id)
		metrics.Watchers.WithLabelValues(stream).Dec()
	}
}

func (s *ControlService) addCommandWatcher() (string, chan struct{}) {
	id := uuid.NewString()
	wake := make(chan struct{}, 1)

	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	s.commandWatchers[id] = wake
	metrics.Watchers.WithLabelValues(streamCommand).Inc()
	return id, wake
}

func (s *ControlService) removeCommandWatcher(id string) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if _, ok := s.commandWatchers[id]; ok {
		delete(s.commandWatchers, id)
		metrics.Watchers.WithLabelValues(streamCommand).Dec()
	}
}

// watcherCount reports the number of registered watchers of each kind.
func (s *ControlService) watcherCount() (config, status, command int) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	return len(s.configWatchers), len(s.statusWatchers), len(s.commandWatchers)
}
