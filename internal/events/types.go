package events

// Event type constants for kelindar/event.
const (
	TypeLEDSet uint32 = iota + 1
	TypeStateChanged
	TypeMessageHandled
	TypeConnectionChanged
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// Outcome of handling one inbound message.
const (
	OutcomeApplied  = "applied"
	OutcomeIgnored  = "ignored"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed" // a pin write returned an error
)

// LEDSetEvent is published after every successful pin write, including
// writes that re-assert the level the LED already had.
type LEDSetEvent struct {
	Index  int    `json:"index"`
	Pin    int    `json:"pin"`
	Level  int    `json:"level"`
	Source string `json:"source"` // data or control
}

// Type returns the event type identifier for LEDSetEvent.
func (e LEDSetEvent) Type() uint32 { return TypeLEDSet }

// StateChangedEvent carries the full state record after a message was
// applied. It is published once per message, after the lock is released.
type StateChangedEvent struct {
	ManualMode bool   `json:"manual_mode"`
	Levels     [4]int `json:"leds"`
}

// Type returns the event type identifier for StateChangedEvent.
func (e StateChangedEvent) Type() uint32 { return TypeStateChanged }

// MessageHandledEvent reports the outcome of every inbound message.
type MessageHandledEvent struct {
	Kind    string `json:"kind"` // data, control or connection
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
}

// Type returns the event type identifier for MessageHandledEvent.
func (e MessageHandledEvent) Type() uint32 { return TypeMessageHandled }

// ConnectionChangedEvent reports broker connectivity.
type ConnectionChangedEvent struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// Type returns the event type identifier for ConnectionChangedEvent.
func (e ConnectionChangedEvent) Type() uint32 { return TypeConnectionChanged }
