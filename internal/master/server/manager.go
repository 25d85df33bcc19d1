package server

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/flightlab-io/flightlab/internal/master/notifier"
	"github.com/flightlab-io/flightlab/internal/master/server/grpc"
	"github.com/flightlab-io/flightlab/internal/master/server/http"
	"github.com/flightlab-io/flightlab/internal/master/service"
	"github.com/flightlab-io/flightlab/pkg/log"
)

// Server defines the common interface for all sub-servers (grpc, http, mqtt).
type Server interface {
	Start(ctx context.Context) error
}

// Manager manages the lifecycle of all protocol servers.
type Manager struct {
	servers []Server
	log     log.Logger
}

// NewManager creates a new server manager and initializes all sub-servers.
// machine names the master in the MQTT online topic.
func NewManager(cfg *Config, svc *service.ControlService, machine string, l log.Logger) (*Manager, error) {
	var servers []Server

	// 1. gRPC Server (the ControlService)
	servers = append(servers, grpc.NewServer(cfg.GrpcOptions, svc, l.WithName("grpc")))

	// 2. HTTP Server (façade, websocket & metrics)
	servers = append(servers, http.NewServer(cfg.HttpOptions, svc, l.WithName("http")))

	// 3. MQTT Mirror, only when a broker is configured
	if cfg.MqttOptions.Enabled() {
		mirror, err := notifier.NewMQTTMirror(cfg.MqttOptions, svc, machine, l.WithName("mqtt"))
		if err != nil {
			return nil, fmt.Errorf("failed to init mqtt mirror: %w", err)
		}
		servers = append(servers, mirror)
	}

	return NewManagerWith(l, servers...), nil
}

// NewManagerWith runs the given servers.
func NewManagerWith(l log.Logger, servers ...Server) *Manager {
	return &Manager{servers: servers, log: l}
}

// Start launches all servers in parallel and waits for termination.
// The first server to fail cancels the others.
func (m *Manager) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, srv := range m.servers {
		g.Go(func() error {
			return srv.Start(ctx)
		})
	}

	m.log.Info("All servers starting...", "count", len(m.servers))
	return g.Wait()
}
