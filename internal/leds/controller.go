// Package leds implements the message-driven LED control state machine.
//
// A Controller owns the manual-mode flag and the level of four LEDs. Data
// messages switch all LEDs together unless manual mode is on; control
// messages toggle manual mode or, in manual mode, set a single LED. Every
// handler runs its whole read-decide-write sequence, pin writes included,
// under one mutex.
package leds

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/farouk15160/led-mqtt-control/internal/events"
)

// NumLEDs is the number of LEDs driven by a Controller.
const NumLEDs = 4

// PinWriter is the GPIO collaborator.
type PinWriter interface {
	SetLevel(pin, level int) error
}

// Snapshot is a copy of the state record.
type Snapshot struct {
	ManualMode bool         `json:"manual_mode"`
	Levels     [NumLEDs]int `json:"leds"`
	Pins       [NumLEDs]int `json:"pins"`
}

// Controller is the LED state machine. The zero value is not usable; build
// one with New.
type Controller struct {
	pins   [NumLEDs]int
	out    PinWriter
	bus    *events.Bus
	logger zerolog.Logger

	mu     sync.Mutex
	manual bool
	levels [NumLEDs]int
}

// New creates a controller in automatic mode with all LEDs recorded as off.
// bus may be nil.
func New(pins [NumLEDs]int, out PinWriter, bus *events.Bus, logger zerolog.Logger) *Controller {
	return &Controller{
		pins:   pins,
		out:    out,
		bus:    bus,
		logger: logger,
	}
}

// Run handles messages from in, in order, until in is closed or ctx is done.
func (c *Controller) Run(ctx context.Context, in <-chan Message) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-in:
			if !ok {
				return nil
			}
			c.Handle(msg)
		}
	}
}

// Handle dispatches one message to its handler.
func (c *Controller) Handle(msg Message) {
	switch m := msg.(type) {
	case DataMessage:
		c.HandleData(m.Payload)
	case ControlMessage:
		c.HandleControl(m.Payload)
	case ConnectionEvent:
		c.handleConnection(m)
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{ManualMode: c.manual, Levels: c.levels, Pins: c.pins}
}

// HandleData applies a data-topic payload. Value 0 turns every LED on, any
// other value turns every LED off. All four pins are written each time.
// In manual mode the payload is ignored.
func (c *Controller) HandleData(payload []byte) {
	value := ParseLenient(payload)

	var sets []events.LEDSetEvent
	var failed error

	c.mu.Lock()
	if c.manual {
		c.mu.Unlock()
		c.logger.Debug().Int("value", value).Msg("Manual mode enabled, data message ignored")
		c.report("data", events.OutcomeIgnored, nil)
		return
	}
	c.logger.Info().Int("value", value).Bytes("payload", payload).Msg("Received value")

	level := 0
	if value == 0 {
		level = 1
	}
	c.logger.Info().Bool("on", level == 1).Msg("Setting all LEDs")
	for i := range c.pins {
		if err := c.switchLED(i, level); err != nil {
			failed = errors.Join(failed, err)
			continue
		}
		sets = append(sets, events.LEDSetEvent{Index: i, Pin: c.pins[i], Level: level, Source: "data"})
	}
	state := c.stateEventLocked()
	c.mu.Unlock()

	c.publish(sets, state)
	if failed != nil {
		c.report("data", events.OutcomeFailed, failed)
		return
	}
	c.report("data", events.OutcomeApplied, nil)
}

// HandleControl applies a control-topic payload of the form
// "<command> <led> <state>". Malformed or invalid commands are logged and
// dropped; commands other than "mode" have no effect in automatic mode.
func (c *Controller) HandleControl(payload []byte) {
	cmd, err := parseControl(payload)
	if err != nil {
		c.logger.Warn().Err(err).Bytes("payload", payload).Msg("Invalid control message format")
		c.report("control", events.OutcomeRejected, err)
		return
	}
	c.logger.Info().Str("command", cmd.command).Str("led", cmd.led).Int("state", cmd.state).Msg("Control command")

	var sets []events.LEDSetEvent

	c.mu.Lock()
	outcome, err := c.applyControlLocked(cmd, &sets)
	var state *events.StateChangedEvent
	if outcome == events.OutcomeApplied {
		s := c.stateEventLocked()
		state = &s
	}
	c.mu.Unlock()

	if state != nil {
		c.publish(sets, *state)
	}
	c.report("control", outcome, err)
}

func (c *Controller) applyControlLocked(cmd controlCommand, sets *[]events.LEDSetEvent) (string, error) {
	if cmd.command == ModeCommand {
		if cmd.state != 0 && cmd.state != 1 {
			err := fmt.Errorf("%w: %d", ErrInvalidMode, cmd.state)
			c.logger.Warn().Err(err).Msg("Invalid state for mode command")
			return events.OutcomeRejected, err
		}
		c.manual = cmd.state == 1
		c.logger.Info().Bool("manual_mode", c.manual).Msg("Manual mode changed")
		return events.OutcomeApplied, nil
	}

	if !c.manual {
		c.logger.Debug().Str("command", cmd.command).Msg("Automatic mode, control command ignored")
		return events.OutcomeIgnored, nil
	}

	idx, err := parseLEDIndex(cmd.led)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Invalid LED number")
		return events.OutcomeRejected, err
	}
	if err := c.switchLED(idx, cmd.state); err != nil {
		return events.OutcomeFailed, err
	}
	*sets = append(*sets, events.LEDSetEvent{Index: idx, Pin: c.pins[idx], Level: cmd.state, Source: "control"})
	return events.OutcomeApplied, nil
}

// switchLED writes the pin and, on success, records the level. Callers hold mu.
func (c *Controller) switchLED(idx, level int) error {
	pin := c.pins[idx]
	if err := c.out.SetLevel(pin, level); err != nil {
		c.logger.Error().Err(err).Int("led", idx).Int("pin", pin).Int("level", level).Msg("Pin write failed")
		return fmt.Errorf("led %d pin %d: %w", idx, pin, err)
	}
	c.levels[idx] = level
	c.logger.Info().Int("led", idx).Int("pin", pin).Bool("on", level != 0).Msg("LED switched")
	return nil
}

func (c *Controller) stateEventLocked() events.StateChangedEvent {
	return events.StateChangedEvent{ManualMode: c.manual, Levels: c.levels}
}

func (c *Controller) handleConnection(m ConnectionEvent) {
	if m.Connected {
		c.logger.Info().Str("broker", m.Broker).Msg("Network connectivity established")
	} else {
		c.logger.Warn().Str("broker", m.Broker).Msg("Network connectivity lost")
	}
	c.bus.Publish(events.ConnectionChangedEvent{Connected: m.Connected, Broker: m.Broker})
	c.report("connection", events.OutcomeApplied, nil)
}

func (c *Controller) publish(sets []events.LEDSetEvent, state events.StateChangedEvent) {
	for _, s := range sets {
		c.bus.Publish(s)
	}
	c.bus.Publish(state)
}

func (c *Controller) report(kind, outcome string, err error) {
	ev := events.MessageHandledEvent{Kind: kind, Outcome: outcome}
	if err != nil {
		ev.Reason = err.Error()
	}
	c.bus.Publish(ev)
}
