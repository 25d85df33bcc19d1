// Package config loads and validates the static system configuration shared
// by the master and every client.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/apimachinery/pkg/util/sets"

	v1 "github.com/flightlab-io/flightlab/api/v1"
)

const (
	DefaultGrpcPort       = 9000
	DefaultHttpPort       = 8080
	DefaultClientHttpPort = 9001
	DefaultPJLinkPort     = 4352
)

// DefaultLightChannels are the DMX start addresses of the four fixtures.
var DefaultLightChannels = []int{1, 17, 33, 49}

// DefaultPlayer plays a sound file; the media path is appended.
var DefaultPlayer = []string{"aplay", "-q"}

// ErrMachineNotFound is returned when no machine matches the local host.
var ErrMachineNotFound = errors.New("machine not found in system configuration")

// Load reads, defaults and validates the system configuration at path.
func Load(path string) (*v1.SystemConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read system config: %w", err)
	}
	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML system configuration, applies defaults and validates it.
// Unknown fields are rejected.
func Parse(r io.Reader) (*v1.SystemConfig, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	cfg := &v1.SystemConfig{}
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode system config: %w", err)
	}

	SetDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetDefaults fills in ports, device defaults and initial statuses.
// The aggregate state always starts UNKNOWN.
func SetDefaults(cfg *v1.SystemConfig) {
	cfg.State = v1.SystemStateUnknown
	for _, m := range cfg.Machines {
		if m.GrpcPort == 0 {
			m.GrpcPort = DefaultGrpcPort
		}
		if m.HttpPort == 0 {
			if m.Name == cfg.MasterMachineName {
				m.HttpPort = DefaultHttpPort
			} else {
				m.HttpPort = DefaultClientHttpPort
			}
		}
		for _, c := range m.Components {
			setComponentDefaults(c)
		}
	}
}

func setComponentDefaults(c *v1.Component) {
	switch {
	case c.Light != nil && len(c.Light.Channels) == 0:
		c.Light.Channels = append([]int(nil), DefaultLightChannels...)
	case c.Projector != nil && c.Projector.Port == 0:
		c.Projector.Port = DefaultPJLinkPort
	case c.Sound != nil && len(c.Sound.Player) == 0:
		c.Sound.Player = append([]string(nil), DefaultPlayer...)
	}
	c.Status = c.DefaultStatus()
}

// Validate checks the structural invariants of cfg and reports every
// violation found.
func Validate(cfg *v1.SystemConfig) error {
	var errs []error

	if cfg.MasterMachineName == "" {
		errs = append(errs, errors.New("master_machine_name is required"))
	}

	machines := sets.New[string]()
	masters := 0
	for i, m := range cfg.Machines {
		if m.Name == "" {
			errs = append(errs, fmt.Errorf("machines[%d]: name is required", i))
			continue
		}
		if machines.Has(m.Name) {
			errs = append(errs, fmt.Errorf("machine %q: duplicate name", m.Name))
		}
		machines.Insert(m.Name)

		if m.Name == cfg.MasterMachineName {
			masters++
			if m.IP == "" {
				errs = append(errs, fmt.Errorf("master machine %q: ip is required", m.Name))
			}
		}
		errs = append(errs, validateMachine(m)...)
	}

	if cfg.MasterMachineName != "" && masters == 0 {
		errs = append(errs, fmt.Errorf("master machine %q is not defined", cfg.MasterMachineName))
	}

	return utilerrors.NewAggregate(errs)
}

func validateMachine(m *v1.Machine) []error {
	var errs []error

	for _, p := range []int{m.GrpcPort, m.HttpPort} {
		if p < 0 || p > 65535 {
			errs = append(errs, fmt.Errorf("machine %q: invalid port %d", m.Name, p))
		}
	}

	components := sets.New[string]()
	for _, c := range m.Components {
		if err := c.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("machine %q: %w", m.Name, err))
			continue
		}
		if components.Has(c.Name) {
			errs = append(errs, fmt.Errorf("machine %q: duplicate component %q", m.Name, c.Name))
		}
		components.Insert(c.Name)

		if err := validateSettings(c); err != nil {
			errs = append(errs, fmt.Errorf("machine %q: component %q: %w", m.Name, c.Name, err))
		}
	}
	return errs
}

func validateSettings(c *v1.Component) error {
	switch c.Kind() {
	case v1.KindApp:
		if c.App.ExecutablePath == "" {
			return errors.New("executable_path is required")
		}
	case v1.KindWindowsApp:
		if c.WindowsApp.ExecutablePath == "" {
			return errors.New("executable_path is required")
		}
	case v1.KindLight:
		if c.Light.Com == "" {
			return errors.New("com is required")
		}
		for _, ch := range c.Light.Channels {
			if ch < 1 || ch+4 > 512 {
				return fmt.Errorf("channel %d out of the DMX universe", ch)
			}
		}
	case v1.KindProjector:
		if net.ParseIP(c.Projector.IP) == nil {
			return fmt.Errorf("invalid ip %q", c.Projector.IP)
		}
	case v1.KindSound:
		if c.Sound.MediaPath == "" {
			return errors.New("media_path is required")
		}
	case v1.KindBadger:
		if c.Badger.URL == "" || c.Badger.KeyParam == "" {
			return errors.New("url and key_param are required")
		}
		for _, id := range []string{c.Badger.USBVendorID, c.Badger.USBProductID} {
			if _, err := strconv.ParseUint(id, 16, 16); err != nil {
				return fmt.Errorf("invalid usb id %q", id)
			}
		}
	}
	return nil
}

// MasterAddr returns host:port of the master's ControlService.
func MasterAddr(cfg *v1.SystemConfig) (string, error) {
	m := cfg.Master()
	if m == nil {
		return "", fmt.Errorf("master machine %q: %w", cfg.MasterMachineName, ErrMachineNotFound)
	}
	return net.JoinHostPort(m.IP, strconv.Itoa(m.GrpcPort)), nil
}
