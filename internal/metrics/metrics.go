// Package metrics exposes Prometheus metrics for the LED controller.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/farouk15160/led-mqtt-control/internal/events"
)

const namespace = "ledctl"

// Metrics owns a private registry so tests and multiple instances do not
// collide on the default one.
type Metrics struct {
	registry *prometheus.Registry

	messages      *prometheus.CounterVec
	pinWrites     *prometheus.CounterVec
	ledLevel      *prometheus.GaugeVec
	manualMode    prometheus.Gauge
	mqttConnected prometheus.Gauge
}

// New creates the collectors, including the Go runtime and process
// collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		messages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Inbound messages by kind and outcome",
		}, []string{"kind", "outcome"}),
		pinWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pin_writes_total",
			Help:      "Successful pin writes per LED",
		}, []string{"led"}),
		ledLevel: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "led_level",
			Help:      "Last level written to each LED",
		}, []string{"led"}),
		manualMode: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "manual_mode",
			Help:      "1 when manual mode is enabled",
		}),
		mqttConnected: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mqtt_connected",
			Help:      "1 while the broker connection is up",
		}),
	}
}

// Attach subscribes the collectors to bus and returns a function that
// removes every subscription.
func (m *Metrics) Attach(bus *events.Bus) func() {
	unsubs := []func(){
		bus.Subscribe(m.onMessageHandled),
		bus.Subscribe(m.onLEDSet),
		bus.Subscribe(m.onStateChanged),
		bus.Subscribe(m.onConnectionChanged),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) onMessageHandled(ev events.MessageHandledEvent) {
	m.messages.WithLabelValues(ev.Kind, ev.Outcome).Inc()
}

func (m *Metrics) onLEDSet(ev events.LEDSetEvent) {
	m.pinWrites.WithLabelValues(strconv.Itoa(ev.Index)).Inc()
}

func (m *Metrics) onStateChanged(ev events.StateChangedEvent) {
	for i, level := range ev.Levels {
		m.ledLevel.WithLabelValues(strconv.Itoa(i)).Set(float64(level))
	}
	m.manualMode.Set(boolFloat(ev.ManualMode))
}

func (m *Metrics) onConnectionChanged(ev events.ConnectionChangedEvent) {
	m.mqttConnected.Set(boolFloat(ev.Connected))
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
