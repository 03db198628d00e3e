package gpio

import (
	"fmt"

	"github.com/rs/zerolog"
)

// noop implements Writer for systems without LED hardware. It only logs.
type noop struct {
	pins   map[int]bool
	logger zerolog.Logger
}

func newNoop(pins []int, logger zerolog.Logger) *noop {
	n := &noop{pins: make(map[int]bool, len(pins)), logger: logger}
	for _, p := range pins {
		n.pins[p] = true
	}
	return n
}

// SetLevel logs the request but performs no actual pin control.
func (n *noop) SetLevel(pin, level int) error {
	if !n.pins[pin] {
		return fmt.Errorf("%w: %d", ErrUnknownPin, pin)
	}
	n.logger.Debug().Int("pin", pin).Int("level", level).Msg("GPIO not available (no-op)")
	return nil
}

func (n *noop) Close() error { return nil }
