//go:build linux

package app

import (
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/flightlab-io/flightlab/pkg/log"
)

// killByExecutable sends SIGTERM to every process running path.
func killByExecutable(path string, l log.Logger) error {
	want, err := filepath.EvalSymlinks(path)
	if err != nil {
		want = path
	}

	entries, err := os.ReadDir("/proc")
	if err != nil {
		return err
	}
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil || pid == os.Getpid() {
			continue
		}
		exe, err := os.Readlink(filepath.Join("/proc", e.Name(), "exe"))
		if err != nil || exe != want {
			continue
		}
		if err := unix.Kill(pid, unix.SIGTERM); err != nil {
			l.Warn("Failed to stop process", "pid", pid, "err", err)
			continue
		}
		l.Info("Stopped process", "pid", pid, "path", exe)
	}
	return nil
}
