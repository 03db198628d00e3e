package gpio

import (
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"
)

// rpioDriver implements Writer through the Raspberry Pi GPIO registers.
// It needs access to /dev/gpiomem.
type rpioDriver struct {
	pins map[int]rpio.Pin
}

func openRpio(pins []int) (*rpioDriver, error) {
	for _, pin := range pins {
		if pin > 255 {
			return nil, fmt.Errorf("%w: rpio pin %d out of range", ErrUnknownPin, pin)
		}
	}
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open rpio: %w", err)
	}
	d := &rpioDriver{pins: make(map[int]rpio.Pin, len(pins))}
	for _, n := range pins {
		p := rpio.Pin(uint8(n))
		p.Output()
		p.Low()
		d.pins[n] = p
	}
	return d, nil
}

func (d *rpioDriver) SetLevel(pin, level int) error {
	p, ok := d.pins[pin]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownPin, pin)
	}
	if normalize(level) == 1 {
		p.Write(rpio.High)
	} else {
		p.Write(rpio.Low)
	}
	return nil
}

func (d *rpioDriver) Close() error {
	return rpio.Close()
}
