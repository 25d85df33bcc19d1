package options

import (
	"errors"

	"github.com/spf13/pflag"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/flightlab-io/flightlab/internal/config"
	"github.com/flightlab-io/flightlab/internal/master"
	"github.com/flightlab-io/flightlab/pkg/app"
	"github.com/flightlab-io/flightlab/pkg/log"
	"github.com/flightlab-io/flightlab/pkg/options"
)

const defaultSystemConfig = "/etc/flightlab/system.yaml"

type MasterOptions struct {
	SystemConfig string               `json:"system-config" mapstructure:"system-config"`
	GrpcOptions  *options.GrpcOptions `json:"grpc" mapstructure:"grpc"`
	HttpOptions  *options.HttpOptions `json:"http" mapstructure:"http"`
	MqttOptions  *options.MqttOptions `json:"mqtt" mapstructure:"mqtt"`
	Log          *log.Options         `json:"log" mapstructure:"log"`
}

var _ app.NamedFlagSetOptions = (*MasterOptions)(nil)

func NewMasterOptions() *MasterOptions {
	o := &MasterOptions{
		SystemConfig: defaultSystemConfig,
		GrpcOptions:  options.NewGrpcOptions(),
		HttpOptions:  options.NewHttpOptions("0.0.0.0:8080"),
		MqttOptions:  options.NewMqttOptions(),
		Log:          log.NewOptions(),
	}

	return o
}

func (o *MasterOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	addSystemConfigFlag(fss.FlagSet("system"), &o.SystemConfig)
	o.GrpcOptions.AddFlags(fss.FlagSet("grpc"))
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func addSystemConfigFlag(fs *pflag.FlagSet, path *string) {
	fs.StringVar(path, "system-config", *path, "Path to the YAML system configuration shared by the master and all clients.")
}

func (o *MasterOptions) Complete() error {
	return nil
}

func (o *MasterOptions) Validate() error {
	errs := []error{}
	if o.SystemConfig == "" {
		errs = append(errs, errors.New("--system-config must be set"))
	}
	errs = append(errs, o.GrpcOptions.Validate()...)
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

// LogOptions returns the logger configuration.
func (o *MasterOptions) LogOptions() *log.Options {
	return o.Log
}

func (o *MasterOptions) Config() (*master.Config, error) {
	sys, err := config.Load(o.SystemConfig)
	if err != nil {
		return nil, err
	}
	return &master.Config{
		SystemConfig: sys,
		GrpcOptions:  o.GrpcOptions,
		HttpOptions:  o.HttpOptions,
		MqttOptions:  o.MqttOptions,
	}, nil
}
