package master

import (
	"fmt"
	"net"
	"strconv"

	v1 "github.com/flightlab-io/flightlab/api/v1"
	"github.com/flightlab-io/flightlab/internal/master/server"
	"github.com/flightlab-io/flightlab/internal/master/service"
	"github.com/flightlab-io/flightlab/pkg/log"
	"github.com/flightlab-io/flightlab/pkg/options"
)

type Config struct {
	SystemConfig *v1.SystemConfig
	GrpcOptions  *options.GrpcOptions
	HttpOptions  *options.HttpOptions
	MqttOptions  *options.MqttOptions
}

// NewMaster builds the ControlService and every server in front of it.
func (cfg *Config) NewMaster() (*Master, error) {
	l := log.WithName("master")

	m := cfg.SystemConfig.Master()
	if m == nil {
		return nil, fmt.Errorf("master machine %q is not defined", cfg.SystemConfig.MasterMachineName)
	}
	warnPortMismatch(l, "grpc", cfg.GrpcOptions.Addr, m.GrpcPort)
	warnPortMismatch(l, "http", cfg.HttpOptions.Addr, m.HttpPort)

	svc := service.New(cfg.SystemConfig, service.WithLogger(l.WithName("service")))

	serverConfig := &server.Config{
		HttpOptions: cfg.HttpOptions,
		GrpcOptions: cfg.GrpcOptions,
		MqttOptions: cfg.MqttOptions,
	}
	srvManager, err := server.NewManager(serverConfig, svc, m.Name, l)
	if err != nil {
		return nil, fmt.Errorf("failed to init server manager: %w", err)
	}

	return &Master{
		name:          m.Name,
		svc:           svc,
		serverManager: srvManager,
		log:           l,
	}, nil
}

// warnPortMismatch flags a listen address clients will not find: they dial
// the port recorded for the master in the system configuration.
func warnPortMismatch(l log.Logger, server, addr string, port int) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil || p == strconv.Itoa(port) {
		return
	}
	l.Warn("Listen port differs from the system configuration", "server", server, "addr", addr, "configured", port)
}
