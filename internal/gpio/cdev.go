package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "ledctl"

// cdev implements Writer on the Linux GPIO character device.
type cdev struct {
	chip  string
	lines map[int]*gpiocdev.Line
}

func openCdev(chip string, pins []int) (*cdev, error) {
	d := &cdev{chip: chip, lines: make(map[int]*gpiocdev.Line, len(pins))}
	for _, pin := range pins {
		line, err := gpiocdev.RequestLine(chip, pin, gpiocdev.AsOutput(0), gpiocdev.WithConsumer(consumer))
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("request %s line %d: %w", chip, pin, err)
		}
		d.lines[pin] = line
	}
	return d, nil
}

func (d *cdev) SetLevel(pin, level int) error {
	line, ok := d.lines[pin]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownPin, pin)
	}
	if err := line.SetValue(normalize(level)); err != nil {
		return fmt.Errorf("set %s line %d: %w", d.chip, pin, err)
	}
	return nil
}

func (d *cdev) Close() error {
	var errs []error
	for pin, line := range d.lines {
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line %d: %w", pin, err))
		}
	}
	return errors.Join(errs...)
}
