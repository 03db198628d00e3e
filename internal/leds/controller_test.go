package leds

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/farouk15160/led-mqtt-control/internal/events"
	"github.com/farouk15160/led-mqtt-control/internal/gpio/gpiotest"
)

var testPins = [NumLEDs]int{2, 4, 18, 19}

func newTestController(t *testing.T) (*Controller, *gpiotest.Recorder) {
	t.Helper()
	rec := &gpiotest.Recorder{}
	return New(testPins, rec, nil, zerolog.Nop()), rec
}

func allAt(level int) []gpiotest.Write {
	out := make([]gpiotest.Write, 0, NumLEDs)
	for _, p := range testPins {
		out = append(out, gpiotest.Write{Pin: p, Level: level})
	}
	return out
}

func enableManual(t *testing.T, c *Controller, rec *gpiotest.Recorder) {
	t.Helper()
	c.HandleControl([]byte("mode 0 1"))
	require.True(t, c.Snapshot().ManualMode)
	rec.Reset()
}

func TestDataZeroReassertsAllLEDs(t *testing.T) {
	c, rec := newTestController(t)

	c.HandleData([]byte("0"))
	require.Equal(t, allAt(1), rec.Writes())
	require.Equal(t, [NumLEDs]int{1, 1, 1, 1}, c.Snapshot().Levels)

	c.HandleData([]byte("0"))
	require.Equal(t, append(allAt(1), allAt(1)...), rec.Writes())
	require.Equal(t, [NumLEDs]int{1, 1, 1, 1}, c.Snapshot().Levels)
}

func TestDataNonZeroTurnsAllOff(t *testing.T) {
	c, rec := newTestController(t)
	c.HandleData([]byte("0"))
	rec.Reset()

	c.HandleData([]byte("42"))
	require.Equal(t, allAt(0), rec.Writes())
	require.Equal(t, [NumLEDs]int{0, 0, 0, 0}, c.Snapshot().Levels)
}

func TestManualModeGatesData(t *testing.T) {
	for _, payload := range []string{"0", "5"} {
		t.Run(payload, func(t *testing.T) {
			c, rec := newTestController(t)
			enableManual(t, c, rec)
			before := c.Snapshot()

			c.HandleData([]byte(payload))

			require.Empty(t, rec.Writes())
			require.Equal(t, before, c.Snapshot())
		})
	}
}

func TestManualModeDataLogsOnlyAtDebug(t *testing.T) {
	var buf bytes.Buffer
	rec := &gpiotest.Recorder{}
	c := New(testPins, rec, nil, zerolog.New(&buf).Level(zerolog.InfoLevel))
	enableManual(t, c, rec)
	buf.Reset()

	c.HandleData([]byte("0"))
	require.NotContains(t, buf.String(), "Received value")

	c.HandleControl([]byte("mode 0 0"))
	buf.Reset()
	c.HandleData([]byte("0"))
	require.Contains(t, buf.String(), "Received value")
}

func TestControlRoundTrip(t *testing.T) {
	c, rec := newTestController(t)

	c.HandleControl([]byte("mode x 1"))
	require.True(t, c.Snapshot().ManualMode)
	require.Empty(t, rec.Writes())

	c.HandleControl([]byte("set 2 1"))
	require.Equal(t, 1, c.Snapshot().Levels[2])
	require.Equal(t, []gpiotest.Write{{Pin: 18, Level: 1}}, rec.Writes())
}

func TestControlOutOfRangeRejected(t *testing.T) {
	c, rec := newTestController(t)
	enableManual(t, c, rec)
	before := c.Snapshot()

	for _, payload := range []string{"set 9 1", "set -1 1", "set 4 0"} {
		c.HandleControl([]byte(payload))
	}
	require.Empty(t, rec.Writes())
	require.Equal(t, before, c.Snapshot())
}

func TestMalformedDataDefaultsToZero(t *testing.T) {
	a, recA := newTestController(t)
	b, recB := newTestController(t)

	a.HandleData([]byte("abc"))
	b.HandleData([]byte("0"))

	require.Equal(t, recB.Writes(), recA.Writes())
	require.Equal(t, b.Snapshot(), a.Snapshot())
	require.Equal(t, [NumLEDs]int{1, 1, 1, 1}, a.Snapshot().Levels)
}

func TestControlIgnoredInAutomaticMode(t *testing.T) {
	c, rec := newTestController(t)
	before := c.Snapshot()

	c.HandleControl([]byte("set 1 1"))

	require.Empty(t, rec.Writes())
	require.Equal(t, before, c.Snapshot())
}

func TestControlTokenCountRejected(t *testing.T) {
	for _, payload := range []string{"set 1", "", "set 1 1 extra", "mode"} {
		t.Run(payload, func(t *testing.T) {
			c, rec := newTestController(t)
			enableManual(t, c, rec)
			before := c.Snapshot()

			c.HandleControl([]byte(payload))

			require.Empty(t, rec.Writes())
			require.Equal(t, before, c.Snapshot())
		})
	}
}

func TestModeRejectsInvalidState(t *testing.T) {
	c, rec := newTestController(t)
	enableManual(t, c, rec)

	c.HandleControl([]byte("mode 0 2"))
	require.True(t, c.Snapshot().ManualMode)

	c.HandleControl([]byte("mode 0 off"))
	require.True(t, c.Snapshot().ManualMode)

	c.HandleControl([]byte("mode 0 0"))
	require.False(t, c.Snapshot().ManualMode)
	require.Empty(t, rec.Writes())
}

func TestControlWritesStateVerbatim(t *testing.T) {
	c, rec := newTestController(t)
	enableManual(t, c, rec)

	c.HandleControl([]byte("set 3 7"))
	require.Equal(t, []gpiotest.Write{{Pin: 19, Level: 7}}, rec.Writes())
	require.Equal(t, 7, c.Snapshot().Levels[3])
}

func TestControlNonNumericLEDRejectedInManualMode(t *testing.T) {
	c, rec := newTestController(t)
	enableManual(t, c, rec)

	c.HandleControl([]byte("set x 1"))
	require.Empty(t, rec.Writes())
}

func TestControlPayloadTruncated(t *testing.T) {
	c, rec := newTestController(t)
	enableManual(t, c, rec)

	padded := "set 1 1" + strings.Repeat(" ", 60) + "trailing"
	c.HandleControl([]byte(padded))
	require.Equal(t, []gpiotest.Write{{Pin: 4, Level: 1}}, rec.Writes())

	// The state token falls past the cut, leaving two tokens.
	cut := "mode 0" + strings.Repeat(" ", MaxControlLen) + "0"
	c.HandleControl([]byte(cut))
	require.True(t, c.Snapshot().ManualMode)
}

func TestPinFailureKeepsPreviousLevel(t *testing.T) {
	c, rec := newTestController(t)
	rec.Fail(4)

	c.HandleData([]byte("0"))

	require.Equal(t, [NumLEDs]int{1, 0, 1, 1}, c.Snapshot().Levels)
	require.Len(t, rec.Writes(), 3)
}

func TestHandleDispatchesVariants(t *testing.T) {
	c, rec := newTestController(t)

	c.Handle(ConnectionEvent{Connected: true, Broker: "tcp://localhost:1883"})
	c.Handle(ControlMessage{Payload: []byte("mode 0 1")})
	c.Handle(ControlMessage{Payload: []byte("set 0 1")})
	c.Handle(DataMessage{Payload: []byte("0")})

	require.Equal(t, []gpiotest.Write{{Pin: 2, Level: 1}}, rec.Writes())
	require.Equal(t, [NumLEDs]int{1, 0, 0, 0}, c.Snapshot().Levels)
}

func TestRunProcessesInOrderUntilClosed(t *testing.T) {
	c, rec := newTestController(t)
	in := make(chan Message, 4)
	in <- DataMessage{Payload: []byte("0")}
	in <- ControlMessage{Payload: []byte("mode 0 1")}
	in <- ControlMessage{Payload: []byte("set 1 0")}
	in <- DataMessage{Payload: []byte("1")}
	close(in)

	require.NoError(t, c.Run(context.Background(), in))
	require.Equal(t, append(allAt(1), gpiotest.Write{Pin: 4, Level: 0}), rec.Writes())
	require.Equal(t, [NumLEDs]int{1, 0, 1, 1}, c.Snapshot().Levels)
}

func TestRunStopsOnCancel(t *testing.T) {
	c, _ := newTestController(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, make(chan Message)) }()

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestConcurrentHandlersNeverInterleave(t *testing.T) {
	c, rec := newTestController(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				c.HandleData([]byte("0"))
			} else {
				c.HandleData([]byte("1"))
			}
		}(i)
	}
	wg.Wait()

	writes := rec.Writes()
	require.Len(t, writes, 50*NumLEDs)
	for i := 0; i < len(writes); i += NumLEDs {
		batch := writes[i : i+NumLEDs]
		require.Equal(t, allAt(batch[0].Level), batch, "writes of one message were interleaved")
	}
	last := writes[len(writes)-1].Level
	require.Equal(t, [NumLEDs]int{last, last, last, last}, c.Snapshot().Levels)
}

func TestEventsPublished(t *testing.T) {
	bus := events.New()
	rec := &gpiotest.Recorder{}
	c := New(testPins, rec, bus, zerolog.Nop())

	handled := make(chan events.MessageHandledEvent, 8)
	states := make(chan events.StateChangedEvent, 8)
	defer bus.Subscribe(func(e events.MessageHandledEvent) { handled <- e })()
	defer bus.Subscribe(func(e events.StateChangedEvent) { states <- e })()

	c.HandleControl([]byte("set 1"))
	c.HandleData([]byte("0"))

	got := <-handled
	require.Equal(t, "control", got.Kind)
	require.Equal(t, events.OutcomeRejected, got.Outcome)
	require.NotEmpty(t, got.Reason)

	got = <-handled
	require.Equal(t, events.MessageHandledEvent{Kind: "data", Outcome: events.OutcomeApplied}, got)

	select {
	case st := <-states:
		require.Equal(t, [4]int{1, 1, 1, 1}, st.Levels)
		require.False(t, st.ManualMode)
	case <-time.After(time.Second):
		t.Fatal("no state event")
	}
}
