package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*ControlOptions)(nil)

// ControlOptions configures a client's connection to the master's ControlService.
type ControlOptions struct {
	// Addr overrides the master address derived from the system configuration.
	Addr string `json:"addr" mapstructure:"addr"`

	// ReconnectInterval is the fixed delay before a broken command stream is reopened.
	ReconnectInterval time.Duration `json:"reconnect-interval" mapstructure:"reconnect-interval"`

	// Timeout bounds each status push.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

func NewControlOptions() *ControlOptions {
	return &ControlOptions{
		ReconnectInterval: 5 * time.Second,
		Timeout:           5 * time.Second,
	}
}

func (o *ControlOptions) Validate() []error {
	var errors []error

	if o.Addr != "" {
		if err := ValidateAddress(o.Addr); err != nil {
			errors = append(errors, err)
		}
	}
	if o.ReconnectInterval <= 0 {
		errors = append(errors, fmt.Errorf("--control.reconnect-interval must be positive"))
	}
	if o.Timeout <= 0 {
		errors = append(errors, fmt.Errorf("--control.timeout must be positive"))
	}

	return errors
}

func (o *ControlOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Addr, join(prefixes, "control.addr"), o.Addr, "Master ControlService address. Defaults to the master machine in the system configuration.")
	fs.DurationVar(&o.ReconnectInterval, join(prefixes, "control.reconnect-interval"), o.ReconnectInterval, "Delay before reconnecting a broken command stream.")
	fs.DurationVar(&o.Timeout, join(prefixes, "control.timeout"), o.Timeout, "Timeout for status pushes.")
}
