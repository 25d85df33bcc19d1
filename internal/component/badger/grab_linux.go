//go:build linux

package badger

import (
	"os"

	"golang.org/x/sys/unix"
)

// EVIOCGRAB from linux/input.h.
const evIOCGRAB = 0x40044590

func grab(f *os.File) error {
	rc, err := f.SyscallConn()
	if err != nil {
		return err
	}
	var ioctlErr error
	if err := rc.Control(func(fd uintptr) {
		ioctlErr = unix.IoctlSetInt(int(fd), evIOCGRAB, 1)
	}); err != nil {
		return err
	}
	return ioctlErr
}
