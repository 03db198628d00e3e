// Package canframe encodes pin commands for a remote GPIO expander on the
// CAN bus. A command frame carries an opcode, the pin id and the level.
package canframe

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Opcodes understood by the expander firmware.
const (
	OpSetLevel  uint8 = 0x01
	OpConfigure uint8 = 0x02 // configure pin as output, driven to Level
)

// CommandLength is the DLC of every pin command frame.
const CommandLength = 4

// ErrShortFrame is returned when a frame is too short to be a command.
var ErrShortFrame = errors.New("canframe: frame shorter than a pin command")

// Frame represents a CAN frame.
type Frame struct {
	// bit 0-28: CAN identifier (11/29 bit)
	// bit 29: error message flag (ERR)
	// bit 30: remote transmission request (RTR)
	// bit 31: extended frame format (EFF)
	ID     uint32
	Length uint8
	Flags  uint8
	Res0   uint8
	Res1   uint8
	Data   [8]uint8
}

// PinCommand is the decoded payload of a command frame.
type PinCommand struct {
	Op    uint8
	Pin   uint16
	Level uint8
}

// Encode builds the frame for cmd addressed to id.
// Layout: [op][pin hi][pin lo][level].
func Encode(id uint32, cmd PinCommand) Frame {
	f := Frame{ID: id, Length: CommandLength}
	f.Data[0] = cmd.Op
	binary.BigEndian.PutUint16(f.Data[1:3], cmd.Pin)
	f.Data[3] = cmd.Level
	return f
}

// Decode parses a command frame.
func Decode(f Frame) (PinCommand, error) {
	if f.Length < CommandLength {
		return PinCommand{}, fmt.Errorf("%w: length %d", ErrShortFrame, f.Length)
	}
	return PinCommand{
		Op:    f.Data[0],
		Pin:   binary.BigEndian.Uint16(f.Data[1:3]),
		Level: f.Data[3],
	}, nil
}

// Level collapses an arbitrary integer level to the 0/1 signal the
// expander drives, matching how a GPIO setter treats any non-zero value.
func Level(level int) uint8 {
	if level != 0 {
		return 1
	}
	return 0
}
