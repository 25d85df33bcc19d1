package app

import (
	"fmt"

	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/flightlab-io/flightlab/cmd/flightlab-client/app/options"
	"github.com/flightlab-io/flightlab/pkg/app"
)

const (
	commandName = "flightlab-client"
	commandDesc = `The Flight Lab client runs on every machine of the lab. It drives the
machine's components (applications, projectors, lights, sound, badge
reader), pushes their status to the master and executes the system
commands the master issues.`
)

func NewApp() *app.App {
	opts := options.NewClientOptions()
	application := app.NewApp(
		commandName,
		"Launch a Flight Lab client",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
	)
	return application
}

func run(opts *options.ClientOptions) app.RunFunc {
	return func() error {
		ctx := genericapiserver.SetupSignalContext()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		client, err := cfg.NewClient()
		if err != nil {
			return fmt.Errorf("failed to create client: %w", err)
		}

		return client.Run(ctx)
	}
}
