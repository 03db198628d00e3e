package leds

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxControlLen bounds a control payload before tokenizing. Longer payloads
// are truncated, as the firmware copied them into a 50 byte buffer.
const MaxControlLen = 49

// ModeCommand is the control command that toggles manual mode.
const ModeCommand = "mode"

var (
	// ErrMalformedControl: the payload did not split into exactly three tokens.
	ErrMalformedControl = errors.New("control message must be \"<command> <led> <state>\"")
	// ErrNonNumeric: a field that must be an integer is not one.
	ErrNonNumeric = errors.New("non-numeric field")
	// ErrInvalidMode: a mode command carried a state other than 0 or 1.
	ErrInvalidMode = errors.New("invalid state for mode command")
	// ErrLEDOutOfRange: the LED index is outside 0..3.
	ErrLEDOutOfRange = errors.New("invalid LED number")
)

// ParseLenient converts a data payload with C atoi semantics: leading
// whitespace, an optional sign, then the longest run of digits. Anything
// that does not start like a number yields 0, so "abc" behaves like "0".
// This is the historical firmware behaviour and is kept on purpose; a
// stricter parser would reject such payloads instead.
func ParseLenient(payload []byte) int {
	i := 0
	for i < len(payload) && isSpace(payload[i]) {
		i++
	}
	neg := false
	if i < len(payload) && (payload[i] == '+' || payload[i] == '-') {
		neg = payload[i] == '-'
		i++
	}

	var n int64
	for ; i < len(payload) && payload[i] >= '0' && payload[i] <= '9'; i++ {
		n = n*10 + int64(payload[i]-'0')
		if n > math.MaxInt32 {
			// The firmware's int is 32 bits; saturate instead of wrapping.
			n = math.MaxInt32 + 1
			break
		}
	}
	if neg {
		n = -n
	}
	if n > math.MaxInt32 {
		n = math.MaxInt32
	}
	return int(n)
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

type controlCommand struct {
	command string
	led     string // parsed only when the command needs it
	state   int
}

func parseControl(payload []byte) (controlCommand, error) {
	if len(payload) > MaxControlLen {
		payload = payload[:MaxControlLen]
	}
	fields := strings.Fields(string(payload))
	if len(fields) != 3 {
		return controlCommand{}, fmt.Errorf("%w: got %d tokens", ErrMalformedControl, len(fields))
	}
	state, err := strconv.Atoi(fields[2])
	if err != nil {
		return controlCommand{}, fmt.Errorf("%w: state %q", ErrNonNumeric, fields[2])
	}
	return controlCommand{command: fields[0], led: fields[1], state: state}, nil
}

func parseLEDIndex(s string) (int, error) {
	idx, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: led %q", ErrNonNumeric, s)
	}
	if idx < 0 || idx >= NumLEDs {
		return 0, fmt.Errorf("%w: %d", ErrLEDOutOfRange, idx)
	}
	return idx, nil
}
