// Package component defines the capability interface every controllable unit
// implements and the factory that builds units from configuration.
package component

import (
	"context"

	v1 "github.com/flightlab-io/flightlab/api/v1"
)

// Component is a controllable unit owned by one machine.
type Component interface {
	Name() string
	Kind() v1.Kind

	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error

	// Close stops every background task and releases external resources.
	// It is safe to call more than once.
	Close() error

	// Status returns a copy of the current status.
	Status() v1.ComponentStatus

	// OnStatusChanged registers fn to be called, in the goroutine that made
	// the change, each time the status changes.
	OnStatusChanged(fn func(Component))
}

// Dispatch maps START, STOP and RESTART onto c. Other commands are ignored.
func Dispatch(ctx context.Context, c Component, cmd v1.Command) error {
	switch cmd {
	case v1.CommandStart:
		return c.Start(ctx)
	case v1.CommandStop:
		return c.Stop(ctx)
	case v1.CommandRestart:
		return c.Restart(ctx)
	default:
		return nil
	}
}

// StopStart restarts c by stopping then starting it.
func StopStart(ctx context.Context, c Component) error {
	if err := c.Stop(ctx); err != nil {
		return err
	}
	return c.Start(ctx)
}
