// Package projector controls PJLink projectors.
package projector

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/looplab/fsm"

	v1 "github.com/flightlab-io/flightlab/api/v1"
	"github.com/flightlab-io/flightlab/internal/component"
	"github.com/flightlab-io/flightlab/internal/pkg/task"
	fsmutil "github.com/flightlab-io/flightlab/internal/pkg/util/fsm"
)

func init() {
	component.Register(v1.KindProjector, New)
}

// ErrBusy is returned when the projector is between power states.
var ErrBusy = errors.New("projector is changing power state")

const pollInterval = time.Second

const (
	eventPowerOn  = "power_on"
	eventPowerOff = "power_off"
)

// powerCodes maps POWR answers to projector statuses.
var powerCodes = map[string]v1.ProjectorStatus{
	"0": v1.ProjectorStatusOff,
	"1": v1.ProjectorStatusOn,
	"2": v1.ProjectorStatusCoolDown,
	"3": v1.ProjectorStatusWarmUp,
}

// Projector powers a PJLink projector on START and off on STOP, and polls
// its power state once per second.
type Projector struct {
	*component.Base
	ctl *Controller

	// mu serializes power commands against each other and against polls
	// updating the state machine.
	mu    sync.Mutex
	power *fsm.FSM

	monitor *task.Task
}

var _ component.Component = (*Projector)(nil)

func New(cfg *v1.Component, deps component.Deps) (component.Component, error) {
	s := cfg.Projector
	addr := net.JoinHostPort(s.IP, strconv.Itoa(s.Port))
	return newProjector(cfg, deps, NewController(addr, s.Password, deps.Clock)), nil
}

func newProjector(cfg *v1.Component, deps component.Deps, ctl *Controller) *Projector {
	p := &Projector{ctl: ctl}
	p.Base = component.NewBase(p, cfg, deps.Logger)

	p.power = fsm.NewFSM(
		v1.ProjectorStatusUnknown.String(),
		fsm.Events{
			{Name: eventPowerOn, Src: []string{v1.ProjectorStatusOff.String()}, Dst: v1.ProjectorStatusWarmUp.String()},
			{Name: eventPowerOff, Src: []string{v1.ProjectorStatusOn.String()}, Dst: v1.ProjectorStatusCoolDown.String()},
		},
		fsm.Callbacks{
			"before_" + eventPowerOn: fsmutil.WrapEvent(func(ctx context.Context, _ *fsm.Event) error {
				return p.ctl.Fire(ctx, "POWR", "1")
			}),
			"before_" + eventPowerOff: fsmutil.WrapEvent(func(ctx context.Context, _ *fsm.Event) error {
				_, err := p.ctl.Set(ctx, "POWR", "0", "OK")
				return err
			}),
		},
	)

	p.monitor = task.New("projector "+cfg.Name, p.poll,
		task.WithClock(deps.Clock),
		task.WithLogger(deps.Logger),
	)
	p.monitor.Start()
	return p
}

// PowerStatus asks the projector for its power state.
func (p *Projector) PowerStatus(ctx context.Context) (v1.ProjectorStatus, error) {
	code, err := p.ctl.Get(ctx, "POWR")
	if err != nil {
		return v1.ProjectorStatusUnknown, err
	}
	s, ok := powerCodes[code]
	if !ok {
		return v1.ProjectorStatusUnknown, fmt.Errorf("pjlink POWR: unknown power state %q", code)
	}
	return s, nil
}

// PowerOn does nothing if the projector is on or warming up and fails with
// ErrBusy while it cools down.
func (p *Projector) PowerOn(ctx context.Context) error {
	return p.transition(ctx, eventPowerOn, v1.ProjectorStatusOn, v1.ProjectorStatusWarmUp, v1.ProjectorStatusCoolDown)
}

// PowerOff does nothing if the projector is off or cooling down and fails
// with ErrBusy while it warms up.
func (p *Projector) PowerOff(ctx context.Context) error {
	return p.transition(ctx, eventPowerOff, v1.ProjectorStatusOff, v1.ProjectorStatusCoolDown, v1.ProjectorStatusWarmUp)
}

func (p *Projector) transition(ctx context.Context, event string, done, settling, busy v1.ProjectorStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	current, err := p.PowerStatus(ctx)
	if err != nil {
		return err
	}
	fsmutil.SetState(p.power, current.String())

	switch current {
	case done, settling:
		return nil
	case busy:
		return fmt.Errorf("%w: %s", ErrBusy, current)
	}

	if err := fsmutil.Fire(ctx, p.power, event); err != nil {
		return err
	}
	p.report(p.power.Current())
	return nil
}

func (p *Projector) report(state string) {
	var s v1.ProjectorStatus
	if err := s.UnmarshalText([]byte(state)); err != nil {
		return
	}
	p.SetStatus(v1.ProjectorGenericStatus(s), s)
}

func (p *Projector) poll(ctx context.Context) error {
	err := p.refresh(ctx)
	p.monitor.Sleep(ctx, pollInterval)
	return err
}

func (p *Projector) refresh(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, err := p.PowerStatus(ctx)
	if err != nil {
		return err
	}
	if fsmutil.SetState(p.power, s.String()) {
		p.Logger().Info("Projector power state", "state", s)
	}
	p.report(s.String())
	return nil
}

func (p *Projector) Start(ctx context.Context) error {
	p.Logger().Info("Powering on")
	return p.PowerOn(ctx)
}

func (p *Projector) Stop(ctx context.Context) error {
	p.Logger().Info("Powering off")
	return p.PowerOff(ctx)
}

func (p *Projector) Restart(ctx context.Context) error {
	return component.StopStart(ctx, p)
}

// Close stops polling. The projector keeps its power state.
func (p *Projector) Close() error {
	return p.CloseOnce(func() error {
		p.monitor.Stop()
		return p.ctl.Close()
	})
}
