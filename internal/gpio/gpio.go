// Package gpio drives the LED output pins. Backends cover the Linux GPIO
// character device, the Raspberry Pi register interface, a GPIO expander on
// the CAN bus and a logging no-op for machines without hardware.
package gpio

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/farouk15160/led-mqtt-control/internal/config"
)

var (
	// ErrUnknownDriver is returned by Open for an unsupported driver name.
	ErrUnknownDriver = errors.New("gpio: unknown driver")
	// ErrUnknownPin is returned by SetLevel for a pin that was not opened.
	ErrUnknownPin = errors.New("gpio: pin not configured")
)

// Writer sets output levels. Any non-zero level drives the pin high.
type Writer interface {
	SetLevel(pin, level int) error
	Close() error
}

// Open returns the backend selected by cfg.Driver with every pin configured
// as an output driven low.
func Open(cfg config.GPIO, logger zerolog.Logger) (Writer, error) {
	logger.Info().Str("driver", cfg.Driver).Ints("pins", cfg.Pins).Msg("Opening GPIO driver")

	switch cfg.Driver {
	case "cdev":
		return openCdev(cfg.Chip, cfg.Pins)
	case "rpio":
		return openRpio(cfg.Pins)
	case "can":
		return openCAN(cfg.CANInterface, cfg.CANID, cfg.Pins, logger)
	case "noop":
		return newNoop(cfg.Pins, logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

func normalize(level int) int {
	if level != 0 {
		return 1
	}
	return 0
}
