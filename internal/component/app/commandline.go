package app

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	v1 "github.com/flightlab-io/flightlab/api/v1"
	"github.com/flightlab-io/flightlab/internal/component"
)

// CommandLine runs one-shot commands on START and STOP. Its status is always
// NOT_APPLICABLE.
type CommandLine struct {
	*component.Base
	settings *v1.CommandLineSettings
}

var _ component.Component = (*CommandLine)(nil)

func NewCommandLine(cfg *v1.Component, deps component.Deps) (component.Component, error) {
	c := &CommandLine{settings: cfg.CommandLine}
	c.Base = component.NewBase(c, cfg, deps.Logger)
	return c, nil
}

func (c *CommandLine) Start(ctx context.Context) error {
	return c.runAll(ctx, c.settings.WhenOn)
}

func (c *CommandLine) Stop(ctx context.Context) error {
	return c.runAll(ctx, c.settings.WhenOff)
}

func (c *CommandLine) Restart(ctx context.Context) error {
	return component.StopStart(ctx, c)
}

func (c *CommandLine) Close() error {
	return c.CloseOnce(nil)
}

// runAll runs every argv in order. A failing command does not stop the
// ones after it.
func (c *CommandLine) runAll(ctx context.Context, argvs [][]string) error {
	var errs []error
	for _, argv := range argvs {
		if len(argv) == 0 {
			continue
		}
		out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
		code := 0
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		if err != nil {
			c.Logger().Error(err, "Command failed", "argv", argv, "exitCode", code, "output", string(out))
			errs = append(errs, fmt.Errorf("%s: %w", argv[0], err))
			continue
		}
		c.Logger().Info("Command finished", "argv", argv, "exitCode", code)
	}
	return errors.Join(errs...)
}
