//go:build !linux

package app

import "github.com/flightlab-io/flightlab/pkg/log"

// killByExecutable only manages the component's own child on this platform.
func killByExecutable(path string, l log.Logger) error {
	l.Debug("Stopping foreign processes is not supported on this platform", "path", path)
	return nil
}
