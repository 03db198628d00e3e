package mqtt

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/farouk15160/led-mqtt-control/internal/events"
	"github.com/farouk15160/led-mqtt-control/internal/leds"
)

type published struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  string
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
}

func (f *fakePublisher) Publish(topic string, qos byte, retained bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, published{Topic: topic, QoS: qos, Retained: retained, Payload: string(payload)})
	return nil
}

func (f *fakePublisher) all() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.msgs...)
}

func newTestStatus(pub Publisher, snap leds.Snapshot) *StatusPublisher {
	s := NewStatusPublisher(pub, "leds/status", "ledctl-test", func() leds.Snapshot { return snap }, zerolog.Nop())
	fixed := time.Unix(1700000000, 0)
	s.started = fixed.Add(-90 * time.Second)
	s.now = func() time.Time { return fixed }
	s.ipAddress = func() string { return "192.0.2.7" }
	s.temperature = func() float32 { return 0 }
	return s
}

func TestNewStatusTopics(t *testing.T) {
	require.Equal(t, StatusTopics{
		Start:        "leds/status/start",
		Availability: "leds/status/availability",
		State:        "leds/status/state",
		Request:      "leds/status/request",
		Health:       "leds/status/health",
	}, NewStatusTopics("leds/status"))
}

func TestPublishStartInfo(t *testing.T) {
	pub := &fakePublisher{}
	newTestStatus(pub, leds.Snapshot{}).PublishStartInfo()

	msgs := pub.all()
	require.Len(t, msgs, 1)
	require.Equal(t, "leds/status/start", msgs[0].Topic)
	require.True(t, msgs[0].Retained)
	require.JSONEq(t, `{
		"message": "LED controller is up and running",
		"ip_address": "192.0.2.7",
		"client_id": "ledctl-test",
		"timestamp": "1700000000"
	}`, msgs[0].Payload)
}

func TestPublishState(t *testing.T) {
	pub := &fakePublisher{}
	newTestStatus(pub, leds.Snapshot{}).PublishState(events.StateChangedEvent{ManualMode: true, Levels: [4]int{1, 0, 1, 0}})

	msgs := pub.all()
	require.Len(t, msgs, 1)
	require.Equal(t, "leds/status/state", msgs[0].Topic)
	require.True(t, msgs[0].Retained)
	require.JSONEq(t, `{"manual_mode":true,"leds":[1,0,1,0]}`, msgs[0].Payload)
}

func TestHandleStatusRequest(t *testing.T) {
	pub := &fakePublisher{}
	s := newTestStatus(pub, leds.Snapshot{ManualMode: true, Levels: [4]int{0, 1, 0, 0}})

	s.HandleStatusRequest("leds/status/request", []byte("anything"))

	msgs := pub.all()
	require.Len(t, msgs, 1)
	require.Equal(t, "leds/status/health", msgs[0].Topic)
	require.False(t, msgs[0].Retained)

	var report HealthReport
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Payload), &report))
	require.True(t, report.ManualMode)
	require.Equal(t, [4]int{0, 1, 0, 0}, report.LEDs)
	require.Equal(t, "N/A", report.Temperature)
	require.Equal(t, "0 days, 0 hours, 1 minutes, 30 seconds", report.Uptime)
	require.Positive(t, report.Goroutines)
}

func TestAttachPublishesStateFromBus(t *testing.T) {
	bus := events.New()
	defer bus.Close()
	pub := &fakePublisher{}
	s := newTestStatus(pub, leds.Snapshot{})
	c := NewClient(Options{Broker: "tcp://localhost:1883"}, zerolog.Nop())

	unsubscribe := s.Attach(c, bus)
	defer unsubscribe()

	bus.Publish(events.StateChangedEvent{Levels: [4]int{1, 1, 1, 1}})

	require.Eventually(t, func() bool {
		msgs := pub.all()
		return len(msgs) == 1 && msgs[0].Topic == "leds/status/state"
	}, time.Second, 10*time.Millisecond)

	c.mu.Lock()
	_, routed := c.routes["leds/status/request"]
	hooks := len(c.onState)
	c.mu.Unlock()
	require.True(t, routed)
	require.Equal(t, 1, hooks)
}

func TestFormatUptime(t *testing.T) {
	require.Equal(t, "1 days, 2 hours, 3 minutes, 4 seconds", formatUptime(93784))
}
