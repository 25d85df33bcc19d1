package app

import (
	"context"

	v1 "github.com/flightlab-io/flightlab/api/v1"
	"github.com/flightlab-io/flightlab/internal/component"
)

// WindowsApp is a desktop application whose reaction to commands depends on
// its run option:
//
//	NORMAL        START launches, STOP kills.
//	RUN_ALWAYS    launched at construction and kept alive; commands are ignored.
//	RUN_WHEN_OFF  launched at construction; START kills, STOP launches.
//	STOP_ONLY     START is ignored; STOP kills every process of the executable.
type WindowsApp struct {
	*component.Base
	option v1.RunOption
	run    *runner
}

var _ component.Component = (*WindowsApp)(nil)

func NewWindowsApp(cfg *v1.Component, deps component.Deps) (component.Component, error) {
	s := cfg.WindowsApp
	w := &WindowsApp{option: s.RunOption}
	w.Base = component.NewBase(w, cfg, deps.Logger)

	keepAlive := s.RestartOnCrash || s.RunOption == v1.RunOptionRunAlways
	w.run = newRunner(cfg.Name, &s.AppSettings, keepAlive, deps.Logger, deps.Clock, func(st v1.AppStatus) {
		w.SetStatus(v1.WindowsAppGenericStatus(w.option, st), st)
	})

	switch s.RunOption {
	case v1.RunOptionRunAlways, v1.RunOptionRunWhenOff:
		if err := w.run.launch(); err != nil {
			deps.Logger.Error(err, "Initial launch failed")
		}
	}
	w.run.monitor.Start()
	return w, nil
}

func (w *WindowsApp) Start(context.Context) error {
	switch w.option {
	case v1.RunOptionNormal:
		return w.run.launch()
	case v1.RunOptionRunWhenOff:
		return w.run.halt()
	}
	return nil
}

func (w *WindowsApp) Stop(context.Context) error {
	switch w.option {
	case v1.RunOptionNormal:
		return w.run.halt()
	case v1.RunOptionRunWhenOff:
		return w.run.launch()
	case v1.RunOptionStopOnly:
		if err := w.run.halt(); err != nil {
			return err
		}
		return killByExecutable(w.run.settings.ExecutablePath, w.Logger())
	}
	return nil
}

func (w *WindowsApp) Restart(ctx context.Context) error {
	if w.option != v1.RunOptionNormal {
		return nil
	}
	return component.StopStart(ctx, w)
}

func (w *WindowsApp) Close() error {
	return w.CloseOnce(w.run.close)
}
