package leds

// Message is an inbound input to the controller. The set of variants is
// closed: ConnectionEvent, DataMessage and ControlMessage.
type Message interface {
	kind() string
}

// ConnectionEvent reports that broker connectivity came up or went down.
type ConnectionEvent struct {
	Connected bool
	Broker    string
}

// DataMessage carries a payload received on the data topic.
type DataMessage struct {
	Payload []byte
}

// ControlMessage carries a payload received on the control topic.
type ControlMessage struct {
	Payload []byte
}

func (ConnectionEvent) kind() string { return "connection" }
func (DataMessage) kind() string     { return "data" }
func (ControlMessage) kind() string  { return "control" }
