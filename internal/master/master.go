// Package master runs the ControlService and the servers exposing it.
package master

import (
	"context"

	"github.com/flightlab-io/flightlab/internal/master/server"
	"github.com/flightlab-io/flightlab/internal/master/service"
	"github.com/flightlab-io/flightlab/pkg/log"
)

type Master struct {
	name          string
	svc           *service.ControlService
	serverManager *server.Manager
	log           log.Logger
}

// Service returns the master's ControlService.
func (m *Master) Service() *service.ControlService {
	return m.svc
}

// Run serves until ctx is cancelled or a server fails.
func (m *Master) Run(ctx context.Context) error {
	m.log.Info("Starting master", "machine", m.name, "state", m.svc.State())
	defer m.svc.Stop()

	if err := m.serverManager.Start(ctx); err != nil {
		return err
	}

	m.log.Info("Master stopped gracefully")
	return nil
}
