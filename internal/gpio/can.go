package gpio

import (
	"fmt"

	"github.com/brutella/can"
	"github.com/rs/zerolog"

	"github.com/farouk15160/led-mqtt-control/internal/canframe"
)

// frameSender is the part of *can.Bus the expander driver needs.
type frameSender interface {
	Publish(frame can.Frame) error
}

// canExpander implements Writer by sending pin commands to a GPIO expander
// node on the CAN bus.
type canExpander struct {
	sender frameSender
	id     uint32
	pins   map[int]bool
	logger zerolog.Logger
	close  func() error
}

// openCAN activates the CAN interface and starts its read/publish loop.
func openCAN(iface string, id uint32, pins []int, logger zerolog.Logger) (*canExpander, error) {
	logger.Info().Str("interface", iface).Msg("Initializing CAN-Bus interface")
	bus, err := can.NewBusForInterfaceWithName(iface)
	if err != nil {
		return nil, fmt.Errorf("activate CAN-Bus interface %s: %w", iface, err)
	}
	go func() {
		// Blocks until the bus disconnects.
		if err := bus.ConnectAndPublish(); err != nil {
			logger.Error().Err(err).Str("interface", iface).Msg("CAN-Bus connection ended")
		}
	}()

	d, err := newCANExpander(bus, id, pins, logger)
	if err != nil {
		bus.Disconnect()
		return nil, err
	}
	d.close = bus.Disconnect
	return d, nil
}

func newCANExpander(sender frameSender, id uint32, pins []int, logger zerolog.Logger) (*canExpander, error) {
	d := &canExpander{
		sender: sender,
		id:     id,
		pins:   make(map[int]bool, len(pins)),
		logger: logger,
	}
	for _, pin := range pins {
		if pin > 0xFFFF {
			return nil, fmt.Errorf("%w: CAN expander pin %d out of range", ErrUnknownPin, pin)
		}
		d.pins[pin] = true
		if err := d.send(canframe.OpConfigure, pin, 0); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *canExpander) SetLevel(pin, level int) error {
	if !d.pins[pin] {
		return fmt.Errorf("%w: %d", ErrUnknownPin, pin)
	}
	return d.send(canframe.OpSetLevel, pin, level)
}

func (d *canExpander) send(op uint8, pin, level int) error {
	f := canframe.Encode(d.id, canframe.PinCommand{
		Op:    op,
		Pin:   uint16(pin),
		Level: canframe.Level(level),
	})
	frame := can.Frame{
		ID:     f.ID,
		Length: f.Length,
		Flags:  f.Flags,
		Res0:   f.Res0,
		Res1:   f.Res1,
		Data:   f.Data,
	}
	if err := d.sender.Publish(frame); err != nil {
		return fmt.Errorf("publish CAN frame %X for pin %d: %w", f.ID, pin, err)
	}
	d.logger.Debug().Uint32("can_id", f.ID).Int("pin", pin).Uint8("op", op).Msg("CAN pin command sent")
	return nil
}

func (d *canExpander) Close() error {
	if d.close == nil {
		return nil
	}
	return d.close()
}
