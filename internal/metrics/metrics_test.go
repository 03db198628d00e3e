package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/farouk15160/led-mqtt-control/internal/events"
)

func TestCollectorsFollowEvents(t *testing.T) {
	bus := events.New()
	defer bus.Close()
	m := New()
	defer m.Attach(bus)()

	bus.Publish(events.MessageHandledEvent{Kind: "data", Outcome: events.OutcomeApplied})
	bus.Publish(events.MessageHandledEvent{Kind: "data", Outcome: events.OutcomeApplied})
	bus.Publish(events.MessageHandledEvent{Kind: "control", Outcome: events.OutcomeRejected})
	bus.Publish(events.LEDSetEvent{Index: 2, Pin: 18, Level: 1, Source: "control"})
	bus.Publish(events.StateChangedEvent{ManualMode: true, Levels: [4]int{0, 0, 1, 0}})
	bus.Publish(events.ConnectionChangedEvent{Connected: true, Broker: "tcp://b:1883"})

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.messages.WithLabelValues("data", events.OutcomeApplied)) == 2 &&
			testutil.ToFloat64(m.messages.WithLabelValues("control", events.OutcomeRejected)) == 1 &&
			testutil.ToFloat64(m.pinWrites.WithLabelValues("2")) == 1 &&
			testutil.ToFloat64(m.ledLevel.WithLabelValues("2")) == 1 &&
			testutil.ToFloat64(m.manualMode) == 1 &&
			testutil.ToFloat64(m.mqttConnected) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.onStateChanged(events.StateChangedEvent{Levels: [4]int{1, 1, 1, 1}})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.True(t, strings.Contains(body, `ledctl_led_level{led="3"} 1`))
	require.True(t, strings.Contains(body, "ledctl_manual_mode 0"))
	require.True(t, strings.Contains(body, "go_goroutines"))
}
