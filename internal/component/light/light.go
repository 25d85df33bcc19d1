// Package light drives DMX fixtures through an Enttec USB interface.
package light

import (
	"context"
	"io"

	v1 "github.com/flightlab-io/flightlab/api/v1"
	"github.com/flightlab-io/flightlab/internal/component"
)

func init() {
	component.Register(v1.KindLight, New)
}

// openPort is replaced in tests.
var openPort = func(name string) (io.WriteCloser, error) { return OpenPort(name) }

// Light runs one Effect per configured fixture.
type Light struct {
	*component.Base
	universe *Universe
	effects  []*Effect
}

var _ component.Component = (*Light)(nil)

// New opens the DMX port and starts an effect for every channel.
func New(cfg *v1.Component, deps component.Deps) (component.Component, error) {
	port, err := openPort(cfg.Light.Com)
	if err != nil {
		return nil, err
	}

	l := &Light{universe: NewUniverse(port)}
	l.Base = component.NewBase(l, cfg, deps.Logger)
	for _, ch := range cfg.Light.Channels {
		e := NewEffect(l.universe, ch, deps.Clock, deps.Logger)
		e.Start()
		l.effects = append(l.effects, e)
	}
	return l, nil
}

func (l *Light) Start(context.Context) error {
	for _, e := range l.effects {
		e.On()
	}
	return nil
}

func (l *Light) Stop(context.Context) error {
	for _, e := range l.effects {
		e.Off()
	}
	return nil
}

func (l *Light) Restart(ctx context.Context) error {
	return component.StopStart(ctx, l)
}

func (l *Light) Close() error {
	return l.CloseOnce(func() error {
		for _, e := range l.effects {
			e.Stop()
		}
		l.Logger().Info("Shutting down light controller")
		return l.universe.Close()
	})
}
