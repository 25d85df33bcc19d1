package options

import (
	"errors"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/flightlab-io/flightlab/internal/client"
	"github.com/flightlab-io/flightlab/internal/config"
	"github.com/flightlab-io/flightlab/pkg/app"
	"github.com/flightlab-io/flightlab/pkg/log"
	"github.com/flightlab-io/flightlab/pkg/options"
)

const defaultSystemConfig = "/etc/flightlab/system.yaml"

type ClientOptions struct {
	SystemConfig   string                  `json:"system-config" mapstructure:"system-config"`
	Machine        string                  `json:"machine" mapstructure:"machine"`
	ControlOptions *options.ControlOptions `json:"control" mapstructure:"control"`
	HttpOptions    *options.HttpOptions    `json:"http" mapstructure:"http"`
	S3Options      *options.S3Options      `json:"s3" mapstructure:"s3"`
	Log            *log.Options            `json:"log" mapstructure:"log"`
}

var _ app.NamedFlagSetOptions = (*ClientOptions)(nil)

func NewClientOptions() *ClientOptions {
	o := &ClientOptions{
		SystemConfig:   defaultSystemConfig,
		ControlOptions: options.NewControlOptions(),
		HttpOptions:    options.NewHttpOptions("0.0.0.0:9001"),
		S3Options:      options.NewS3Options(),
		Log:            log.NewOptions(),
	}

	return o
}

func (o *ClientOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	fs := fss.FlagSet("system")
	fs.StringVar(&o.SystemConfig, "system-config", o.SystemConfig, "Path to the YAML system configuration shared by the master and all clients.")
	fs.StringVar(&o.Machine, "machine", o.Machine, "Name of the local machine. Resolved from local addresses and the hostname when empty.")
	o.ControlOptions.AddFlags(fss.FlagSet("control"))
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.S3Options.AddFlags(fss.FlagSet("s3"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *ClientOptions) Complete() error {
	return nil
}

func (o *ClientOptions) Validate() error {
	errs := []error{}
	if o.SystemConfig == "" {
		errs = append(errs, errors.New("--system-config must be set"))
	}
	errs = append(errs, o.ControlOptions.Validate()...)
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.S3Options.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

// LogOptions returns the logger configuration.
func (o *ClientOptions) LogOptions() *log.Options {
	return o.Log
}

func (o *ClientOptions) Config() (*client.Config, error) {
	sys, err := config.Load(o.SystemConfig)
	if err != nil {
		return nil, err
	}
	return &client.Config{
		SystemConfig:   sys,
		MachineName:    o.Machine,
		ControlOptions: o.ControlOptions,
		HttpOptions:    o.HttpOptions,
		S3Options:      o.S3Options,
	}, nil
}
