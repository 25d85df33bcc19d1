// Package client runs a machine's components under the master's control.
package client

import (
	"context"
)

// Run serves until ctx is cancelled or the master sends EXIT.
func (c *Client) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-c.exit:
			c.log.Info("Exiting on master request")
			cancel()
		case <-ctx.Done():
		}
	}()

	c.log.Info("Starting client", "components", len(c.supervisor.Components()))
	if err := c.supervisor.Run(ctx, c.control, c.listener); err != nil {
		return err
	}

	c.log.Info("Client stopped gracefully")
	return nil
}
