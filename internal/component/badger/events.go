package badger

import (
	"bufio"
	"encoding/binary"
	"io"
)

const (
	evKey    = 0x01
	keyDown  = 1
	keyEnter = 28
)

// keyCodes maps the evdev key codes a badge scanner types to characters.
var keyCodes = map[uint16]byte{
	2: '1', 3: '2', 4: '3', 5: '4', 6: '5',
	7: '6', 8: '7', 9: '8', 10: '9', 11: '0',
	39: ':',
}

// inputEvent is struct input_event with a 64-bit timeval.
type inputEvent struct {
	Sec, Usec int64
	Type      uint16
	Code      uint16
	Value     int32
}

// readBadges decodes key-down events from r and calls fn with every badge ID
// terminated by ENTER. Other keys are ignored. It returns the read error that
// ended the stream.
func readBadges(r io.Reader, fn func(id string)) error {
	br := bufio.NewReader(r)
	var (
		ev inputEvent
		id []byte
	)
	for {
		if err := binary.Read(br, binary.NativeEndian, &ev); err != nil {
			return err
		}
		if ev.Type != evKey || ev.Value != keyDown {
			continue
		}
		if ev.Code == keyEnter {
			if len(id) > 0 {
				fn(string(id))
			}
			id = id[:0]
			continue
		}
		if c, ok := keyCodes[ev.Code]; ok {
			id = append(id, c)
		}
	}
}
