// Package app implements the process based component kinds: app,
// windows_app and commandline.
package app

import (
	"context"

	v1 "github.com/flightlab-io/flightlab/api/v1"
	"github.com/flightlab-io/flightlab/internal/component"
)

func init() {
	component.Register(v1.KindApp, NewApp)
	component.Register(v1.KindWindowsApp, NewWindowsApp)
	component.Register(v1.KindCommandLine, NewCommandLine)
}

// App launches an executable on START and kills it on STOP.
type App struct {
	*component.Base
	run *runner
}

var _ component.Component = (*App)(nil)

// NewApp builds an app component and starts its process monitor.
func NewApp(cfg *v1.Component, deps component.Deps) (component.Component, error) {
	a := &App{}
	a.Base = component.NewBase(a, cfg, deps.Logger)
	a.run = newRunner(cfg.Name, cfg.App, cfg.App.RestartOnCrash, deps.Logger, deps.Clock, func(s v1.AppStatus) {
		a.SetStatus(v1.AppGenericStatus(s), s)
	})
	a.run.monitor.Start()
	return a, nil
}

func (a *App) Start(context.Context) error {
	return a.run.launch()
}

func (a *App) Stop(context.Context) error {
	return a.run.halt()
}

func (a *App) Restart(ctx context.Context) error {
	return component.StopStart(ctx, a)
}

func (a *App) Close() error {
	return a.CloseOnce(a.run.close)
}
