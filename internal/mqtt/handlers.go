package mqtt

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/farouk15160/led-mqtt-control/internal/events"
	"github.com/farouk15160/led-mqtt-control/internal/leds"
)

// Status subtopics below the configured status prefix.
const (
	StartSubtopic        = "start"
	AvailabilitySubtopic = "availability"
	StateSubtopic        = "state"
	RequestSubtopic      = "request"
	HealthSubtopic       = "health"
)

// StatusTopics derives the status topics from a prefix.
type StatusTopics struct {
	Start, Availability, State, Request, Health string
}

// NewStatusTopics joins each subtopic onto prefix.
func NewStatusTopics(prefix string) StatusTopics {
	return StatusTopics{
		Start:        prefix + "/" + StartSubtopic,
		Availability: prefix + "/" + AvailabilitySubtopic,
		State:        prefix + "/" + StateSubtopic,
		Request:      prefix + "/" + RequestSubtopic,
		Health:       prefix + "/" + HealthSubtopic,
	}
}

// StartInfo is the retained payload announcing the controller.
type StartInfo struct {
	Message   string `json:"message"`
	IPAddress string `json:"ip_address"`
	ClientID  string `json:"client_id"`
	Timestamp string `json:"timestamp"`
}

// StatePayload is the retained state snapshot.
type StatePayload struct {
	ManualMode bool              `json:"manual_mode"`
	LEDs       [leds.NumLEDs]int `json:"leds"`
}

// HealthReport answers a request on the request subtopic.
type HealthReport struct {
	ManualMode  bool              `json:"manual_mode"`
	LEDs        [leds.NumLEDs]int `json:"leds"`
	RAMUsage    string            `json:"ram_usage"`
	Goroutines  int               `json:"goroutines"`
	Temperature string            `json:"temperature"`
	Uptime      string            `json:"uptime"`
}

// StatusPublisher publishes start info, state snapshots and health reports.
type StatusPublisher struct {
	pub      Publisher
	topics   StatusTopics
	clientID string
	state    func() leds.Snapshot
	started  time.Time
	logger   zerolog.Logger

	// overridable in tests
	now         func() time.Time
	ipAddress   func() string
	temperature func() float32
}

// NewStatusPublisher creates a publisher. state supplies the snapshot for
// health reports.
func NewStatusPublisher(pub Publisher, prefix, clientID string, state func() leds.Snapshot, logger zerolog.Logger) *StatusPublisher {
	return &StatusPublisher{
		pub:         pub,
		topics:      NewStatusTopics(prefix),
		clientID:    clientID,
		state:       state,
		started:     time.Now(),
		logger:      logger,
		now:         time.Now,
		ipAddress:   getIPAddress,
		temperature: getTemperature,
	}
}

// Topics returns the topics in use.
func (s *StatusPublisher) Topics() StatusTopics { return s.topics }

// Attach publishes start info on every connect, answers health requests and
// publishes a state snapshot for every StateChangedEvent on bus. The
// returned function unsubscribes from bus.
func (s *StatusPublisher) Attach(c *Client, bus *events.Bus) func() {
	c.Handle(s.topics.Request, s.HandleStatusRequest)
	c.OnConnectionChange(func(connected bool) {
		if connected {
			s.PublishStartInfo()
		}
	})
	return bus.Subscribe(func(ev events.StateChangedEvent) {
		s.PublishState(ev)
	})
}

// PublishStartInfo publishes a retained message indicating the controller
// is running.
func (s *StatusPublisher) PublishStartInfo() {
	info := StartInfo{
		Message:   "LED controller is up and running",
		IPAddress: s.ipAddress(),
		ClientID:  s.clientID,
		Timestamp: strconv.FormatInt(s.now().Unix(), 10),
	}
	s.publishJSON(s.topics.Start, true, info)
}

// PublishState publishes a retained state snapshot.
func (s *StatusPublisher) PublishState(ev events.StateChangedEvent) {
	s.publishJSON(s.topics.State, true, StatePayload{ManualMode: ev.ManualMode, LEDs: ev.Levels})
}

// HandleStatusRequest gathers runtime information and publishes it to the
// health subtopic. The request payload is ignored.
func (s *StatusPublisher) HandleStatusRequest(topic string, _ []byte) {
	s.logger.Info().Str("topic", topic).Msg("Status requested")
	s.publishJSON(s.topics.Health, false, s.healthReport())
}

func (s *StatusPublisher) healthReport() HealthReport {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	snap := s.state()
	report := HealthReport{
		ManualMode:  snap.ManualMode,
		LEDs:        snap.Levels,
		RAMUsage:    fmt.Sprintf("%d MB", m.Alloc/(1024*1024)),
		Goroutines:  runtime.NumGoroutine(),
		Temperature: "N/A",
		Uptime:      formatUptime(uint64(s.now().Sub(s.started).Seconds())),
	}
	if t := s.temperature(); t > 0 {
		report.Temperature = fmt.Sprintf("%.1f°C", t)
	}
	return report
}

func (s *StatusPublisher) publishJSON(topic string, retained bool, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		s.logger.Error().Err(err).Str("topic", topic).Msg("Marshal status payload")
		return
	}
	if err := s.pub.Publish(topic, 0, retained, payload); err != nil {
		s.logger.Error().Err(err).Str("topic", topic).Msg("Publish status payload")
		return
	}
	s.logger.Debug().Str("topic", topic).Bool("retained", retained).Msg("Status published")
}
