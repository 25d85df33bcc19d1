// Package control keeps a machine connected to the master's ControlService.
//
// Status pushes are never retried. They do pass through a bounded in-memory
// queue drained by a single sender, which keeps reports in emit order without
// blocking the emitting component. A push that finds the queue full, or that
// fails on the wire, is dropped; the resync on the next connection repairs
// the master's view.
package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
	"k8s.io/utils/clock"

	v1 "github.com/flightlab-io/flightlab/api/v1"
	"github.com/flightlab-io/flightlab/internal/pkg/metrics"
	grpcmw "github.com/flightlab-io/flightlab/internal/pkg/middleware/grpc"
	"github.com/flightlab-io/flightlab/internal/pkg/queue"
	"github.com/flightlab-io/flightlab/internal/pkg/task"
	"github.com/flightlab-io/flightlab/pkg/log"
	"github.com/flightlab-io/flightlab/pkg/options"
)

const pollInterval = time.Second

// CommandHandler receives every command read from the master. It runs in the
// watch loop and must not block.
type CommandHandler func(cmd v1.Command)

// StatusSource returns the status of every local component.
type StatusSource func() []v1.ComponentStatus

type Option func(*Client)

func WithCommandHandler(fn CommandHandler) Option {
	return func(c *Client) { c.onCommand = fn }
}

func WithStatusSource(fn StatusSource) Option {
	return func(c *Client) { c.statuses = fn }
}

func WithLogger(l log.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithClock(clk clock.Clock) Option {
	return func(c *Client) { c.clock = clk }
}

// WithDialOptions appends options to the gRPC connection.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(c *Client) { c.dialOpts = append(c.dialOpts, opts...) }
}

// Client owns the command stream of one machine and pushes its status.
// Pushes are fire-and-forget: a failed push is logged and the next reconnect
// resynchronizes the master.
type Client struct {
	machine  string
	opts     *options.ControlOptions
	conn     *grpc.ClientConn
	client   v1.ControlServiceClient
	dialOpts []grpc.DialOption

	onCommand CommandHandler
	statuses  StatusSource
	clock     clock.Clock
	log       log.Logger

	// Pushes leave in the order they were made.
	pending *queue.Queue[*v1.MachineStatus]
	watch   *task.Task
	sender  *task.Task
	monitor *task.Task

	closeOnce sync.Once
}

// Dial creates a client for machine. The connection is made lazily by Start.
func Dial(addr, machine string, opts *options.ControlOptions, o ...Option) (*Client, error) {
	c := &Client{
		machine:   machine,
		opts:      opts,
		onCommand: func(v1.Command) {},
		statuses:  func() []v1.ComponentStatus { return nil },
		clock:     clock.RealClock{},
		log:       log.WithName("control"),
		pending:   queue.New[*v1.MachineStatus](queue.DefaultCapacity),
	}
	for _, fn := range o {
		fn(c)
	}
	c.log = c.log.WithValues("master", addr, "machine", machine)

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(grpcmw.UnaryTimeout(opts.Timeout)),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                30 * time.Second,
			Timeout:             10 * time.Second,
			PermitWithoutStream: true,
		}),
	}, c.dialOpts...)

	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gRPC client for master addr '%s': %w", addr, err)
	}
	c.conn = conn
	c.client = v1.NewControlServiceClient(conn)

	c.watch = task.New("control watch "+machine, c.watchCommands, task.WithClock(c.clock), task.WithLogger(c.log))
	c.sender = task.New("control push "+machine, c.push, task.WithLogger(c.log))
	c.monitor = task.New("control monitor "+machine, c.monitorConnection, task.WithLogger(c.log))
	return c, nil
}

// Start opens the command stream and keeps it open. It is a no-op while running.
func (c *Client) Start() {
	c.sender.Start()
	c.monitor.Start()
	c.watch.Start()
}

// Stop ends the command stream and waits for every loop to exit. The client
// cannot be restarted afterwards.
func (c *Client) Stop() {
	c.watch.Stop()
	c.monitor.Stop()
	c.sender.Stop()
	c.closeOnce.Do(func() {
		c.pending.Close()
		if err := c.conn.Close(); err != nil {
			c.log.Debug("Closing connection", "error", err)
		}
		metrics.ControlConnectivity.Set(0)
	})
}

// UpdateStatus queues a single component's status for the master.
func (c *Client) UpdateStatus(cs v1.ComponentStatus) {
	c.enqueue(&v1.MachineStatus{Name: c.machine, ComponentStatus: []*v1.ComponentStatus{&cs}})
}

// UpdateAllStatus queues the status of every component for the master.
func (c *Client) UpdateAllStatus() {
	statuses := c.statuses()
	ms := &v1.MachineStatus{Name: c.machine, ComponentStatus: make([]*v1.ComponentStatus, len(statuses))}
	for i := range statuses {
		ms.ComponentStatus[i] = &statuses[i]
	}
	c.enqueue(ms)
}

func (c *Client) enqueue(ms *v1.MachineStatus) {
	if !c.pending.Push(ms) {
		metrics.NotificationsDropped.WithLabelValues("push").Inc()
		c.log.Warn("Status push dropped", "components", len(ms.ComponentStatus))
	}
}

// push sends queued reports one at a time.
func (c *Client) push(ctx context.Context) error {
	ms, ok := c.pending.Get(ctx, pollInterval)
	if !ok {
		return nil
	}
	if _, err := c.client.UpdateStatus(ctx, ms); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("Failed to update status", "components", len(ms.ComponentStatus), "error", err)
	}
	return nil
}

// watchCommands is one connection: open the stream, resynchronize, then
// deliver commands until the stream breaks.
func (c *Client) watchCommands(ctx context.Context) error {
	stream, err := c.client.WatchCommand(ctx, &v1.MachineID{Name: c.machine})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("Failed to connect to master, retrying", "in", c.opts.ReconnectInterval, "error", err)
		task.Sleep(ctx, c.clock, c.opts.ReconnectInterval)
		return nil
	}

	metrics.Reconnects.Inc()
	c.log.Info("Connected to master")
	c.UpdateAllStatus()

	for {
		cmd, err := stream.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) || status.Code(err) == codes.Unavailable {
				c.log.Info("Master closed the command stream, reconnecting", "in", c.opts.ReconnectInterval)
			} else {
				c.log.Error(err, "Command stream failed, reconnecting", "in", c.opts.ReconnectInterval)
			}
			task.Sleep(ctx, c.clock, c.opts.ReconnectInterval)
			return nil
		}
		c.log.Info("Command received", "command", cmd.Command)
		c.onCommand(cmd.Command)
	}
}

func (c *Client) monitorConnection(ctx context.Context) error {
	lastState := c.conn.GetState()
	updateMetric(lastState)

	for {
		if !c.conn.WaitForStateChange(ctx, lastState) {
			return ctx.Err()
		}
		newState := c.conn.GetState()
		c.log.Debug("Master connection state changed", "from", lastState, "to", newState)
		updateMetric(newState)
		lastState = newState
	}
}

func updateMetric(state connectivity.State) {
	if state == connectivity.Ready {
		metrics.ControlConnectivity.Set(1)
	} else {
		metrics.ControlConnectivity.Set(0)
	}
}
