package app

import (
	"fmt"

	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/flightlab-io/flightlab/cmd/flightlab-master/app/options"
	"github.com/flightlab-io/flightlab/pkg/app"
)

const (
	commandName = "flightlab-master"
	commandDesc = `The Flight Lab master holds the system configuration, aggregates the
status pushed by every machine and issues system commands to all clients.
It serves the ControlService over gRPC and an HTTP façade for operators.`
)

func NewApp() *app.App {
	opts := options.NewMasterOptions()
	application := app.NewApp(
		commandName,
		"Launch the Flight Lab master",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
	)
	return application
}

func run(opts *options.MasterOptions) app.RunFunc {
	return func() error {
		ctx := genericapiserver.SetupSignalContext()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		master, err := cfg.NewMaster()
		if err != nil {
			return fmt.Errorf("failed to create master: %w", err)
		}

		return master.Run(ctx)
	}
}
