package light

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/jacobsa/go-serial/serial"
)

const (
	universeSize = 512

	// Enttec DMX USB Pro framing.
	frameStart     = 0x7E
	frameEnd       = 0xE7
	labelSendDMX   = 6
	minFrameLength = 255
)

// OpenPort opens the serial port of an Enttec DMX USB Pro.
func OpenPort(name string) (io.WriteCloser, error) {
	port, err := serial.Open(serial.OpenOptions{
		PortName:        name,
		BaudRate:        57600,
		DataBits:        8,
		StopBits:        2,
		MinimumReadSize: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("open dmx port %s: %w", name, err)
	}
	return port, nil
}

// Universe buffers one DMX universe and renders it to the interface.
// Each fixture uses five consecutive channels: intensity, red, green, blue
// and white.
type Universe struct {
	mu     sync.Mutex
	port   io.WriteCloser
	data   [universeSize]byte
	maxReg int
}

func NewUniverse(port io.WriteCloser) *Universe {
	return &Universe{port: port, maxReg: minFrameLength - 1}
}

// SetRGB sets a fixture. Call Render to send it.
func (u *Universe) SetRGB(channel int, r, g, b, w byte) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.set(channel, 255)
	u.set(channel+1, r)
	u.set(channel+2, g)
	u.set(channel+3, b)
	u.set(channel+4, w)
}

// SetHSV sets a fixture from hue, saturation, value and white in [0, 1].
func (u *Universe) SetHSV(channel int, h, s, v, w float64) {
	r, g, b := hsvToRGB(math.Mod(h, 1), s, v)
	u.SetRGB(channel, scale(r), scale(g), scale(b), scale(w))
}

func (u *Universe) set(addr int, v byte) {
	if addr < 0 || addr >= universeSize {
		return
	}
	u.data[addr] = v
	u.maxReg = max(u.maxReg, addr)
}

// Render writes the buffered universe to the port.
func (u *Universe) Render() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.port == nil {
		return io.ErrClosedPipe
	}
	_, err := u.port.Write(u.frame())
	return err
}

func (u *Universe) frame() []byte {
	n := u.maxReg + 1
	msg := make([]byte, 0, n+5)
	msg = append(msg, frameStart, labelSendDMX)
	msg = binary.LittleEndian.AppendUint16(msg, uint16(n))
	msg = append(msg, u.data[:n]...)
	return append(msg, frameEnd)
}

// Close blacks out every fixture and closes the port.
func (u *Universe) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.port == nil {
		return nil
	}
	clear(u.data[:])
	_, _ = u.port.Write(u.frame())
	err := u.port.Close()
	u.port = nil
	return err
}

func scale(f float64) byte {
	return byte(math.Round(255 * math.Max(0, math.Min(1, f))))
}

// hsvToRGB converts h, s, v in [0, 1] to r, g, b in [0, 1].
func hsvToRGB(h, s, v float64) (r, g, b float64) {
	if s == 0 {
		return v, v, v
	}
	i := math.Floor(h * 6)
	f := h*6 - i
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))
	switch int(i) % 6 {
	case 0:
		return v, t, p
	case 1:
		return q, v, p
	case 2:
		return p, v, t
	case 3:
		return p, q, v
	case 4:
		return t, p, v
	default:
		return v, p, q
	}
}
