package mqtt

import (
	"github.com/rs/zerolog"

	"github.com/farouk15160/led-mqtt-control/internal/leds"
)

// Router turns messages on the data and control topics, and connection
// changes, into leds.Message values on a single channel. The controller
// consumes that channel, so inputs are handled one at a time in arrival
// order.
type Router struct {
	dataTopic    string
	controlTopic string
	broker       string
	out          chan<- leds.Message
	logger       zerolog.Logger
}

// NewRouter creates a router writing to out.
func NewRouter(dataTopic, controlTopic, broker string, out chan<- leds.Message, logger zerolog.Logger) *Router {
	return &Router{
		dataTopic:    dataTopic,
		controlTopic: controlTopic,
		broker:       broker,
		out:          out,
		logger:       logger,
	}
}

// Attach registers the router's topics and connection hook on c. Each topic
// gets its own handler, so delivery does not depend on the incoming topic
// string matching the subscription.
func (r *Router) Attach(c *Client) {
	c.Handle(r.dataTopic, r.Data)
	c.Handle(r.controlTopic, r.Control)
	c.OnConnectionChange(r.Connection)
}

// Data forwards a message received on the data subscription.
func (r *Router) Data(topic string, payload []byte) {
	r.logger.Debug().Str("topic", topic).Bytes("payload", payload).Msg("Received data")
	r.out <- leds.DataMessage{Payload: payload}
}

// Control forwards a message received on the control subscription.
func (r *Router) Control(topic string, payload []byte) {
	r.logger.Debug().Str("topic", topic).Bytes("payload", payload).Msg("Received control")
	r.out <- leds.ControlMessage{Payload: payload}
}

// Connection forwards a connectivity change.
func (r *Router) Connection(connected bool) {
	r.out <- leds.ConnectionEvent{Connected: connected, Broker: r.broker}
}
