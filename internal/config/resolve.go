package config

import (
	"fmt"
	"net"
	"os"
	"strings"

	v1 "github.com/flightlab-io/flightlab/api/v1"
)

// HostInfo describes the local host for machine resolution.
type HostInfo struct {
	Hostname string
	Addrs    []string
}

// LocalHost collects the hostname and every interface address.
func LocalHost() (HostInfo, error) {
	var info HostInfo

	hostname, err := os.Hostname()
	if err != nil {
		return info, fmt.Errorf("hostname: %w", err)
	}
	info.Hostname = hostname

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return info, fmt.Errorf("interface addresses: %w", err)
	}
	for _, a := range addrs {
		if ipnet, ok := a.(*net.IPNet); ok {
			info.Addrs = append(info.Addrs, ipnet.IP.String())
		}
	}
	return info, nil
}

// ResolveMachine picks the machine this process runs as. An explicit name
// wins; otherwise the first machine whose ip is a local address, then the
// first whose name equals the hostname.
func ResolveMachine(cfg *v1.SystemConfig, name string, host HostInfo) (*v1.Machine, error) {
	if name != "" {
		if m := cfg.Machine(name); m != nil {
			return m, nil
		}
		return nil, fmt.Errorf("%q: %w", name, ErrMachineNotFound)
	}

	for _, m := range cfg.Machines {
		ip := net.ParseIP(m.IP)
		if ip == nil {
			continue
		}
		for _, a := range host.Addrs {
			if ip.Equal(net.ParseIP(a)) {
				return m, nil
			}
		}
	}

	short, _, _ := strings.Cut(host.Hostname, ".")
	for _, m := range cfg.Machines {
		if strings.EqualFold(m.Name, host.Hostname) || strings.EqualFold(m.Name, short) {
			return m, nil
		}
	}

	return nil, fmt.Errorf("host %q %v: %w", host.Hostname, host.Addrs, ErrMachineNotFound)
}
