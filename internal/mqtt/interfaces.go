// internal/mqtt/interfaces.go
package mqtt

import "context"

// HandlerFunc receives a copy of the payload of a message on a routed topic.
type HandlerFunc func(topic string, payload []byte)

// Publisher is the publish side of Client, used by the status publisher,
// the OTA uploader and the relay.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// WaitPublisher publishes and waits for completion.
type WaitPublisher interface {
	PublishWait(ctx context.Context, topic string, qos byte, retained bool, payload []byte) error
}
