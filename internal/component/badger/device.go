package badger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	sysInputDir = "/sys/class/input"
	devInputDir = "/dev/input"
)

var ErrDeviceNotFound = errors.New("badge reader not found")

// parseUSBID parses a hex USB vendor or product ID such as "0c27".
func parseUSBID(s string) (uint16, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid usb id %q: %w", s, err)
	}
	return uint16(v), nil
}

// findDevice returns the event device name (e.g. "event3") whose USB ids
// match, scanning sysDir laid out like /sys/class/input.
func findDevice(sysDir string, vendor, product uint16) (string, error) {
	matches, err := filepath.Glob(filepath.Join(sysDir, "event*"))
	if err != nil {
		return "", err
	}
	for _, dir := range matches {
		v, err := readUSBID(filepath.Join(dir, "device", "id", "vendor"))
		if err != nil || v != vendor {
			continue
		}
		p, err := readUSBID(filepath.Join(dir, "device", "id", "product"))
		if err != nil || p != product {
			continue
		}
		return filepath.Base(dir), nil
	}
	return "", fmt.Errorf("%w: %04x:%04x", ErrDeviceNotFound, vendor, product)
}

func readUSBID(path string) (uint16, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return parseUSBID(strings.TrimSpace(string(b)))
}

// openDevice opens the matching input device and grabs it so that badge
// numbers are not typed into other programs.
func openDevice(vendor, product uint16) (io.ReadCloser, error) {
	name, err := findDevice(sysInputDir, vendor, product)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(devInputDir, name))
	if err != nil {
		return nil, err
	}
	if err := grab(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("grab %s: %w", name, err)
	}
	return f, nil
}
