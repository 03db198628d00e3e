package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/farouk15160/led-mqtt-control/internal/config"
	"github.com/farouk15160/led-mqtt-control/internal/events"
	"github.com/farouk15160/led-mqtt-control/internal/gpio"
	"github.com/farouk15160/led-mqtt-control/internal/httpapi"
	"github.com/farouk15160/led-mqtt-control/internal/leds"
	"github.com/farouk15160/led-mqtt-control/internal/logging"
	"github.com/farouk15160/led-mqtt-control/internal/metrics"
	"github.com/farouk15160/led-mqtt-control/internal/mqtt"
)

const inboxSize = 64

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the LED controller",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, path, cmd.Flags(), logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, path string, flags *pflag.FlagSet, logger zerolog.Logger) error {
	pins, err := gpio.Open(cfg.GPIO, logging.Component(logger, "gpio"))
	if err != nil {
		return err
	}
	defer pins.Close()

	bus := events.New()
	defer bus.Close()
	m := metrics.New()
	defer m.Attach(bus)()

	ctrl := leds.New(cfg.PinArray(), pins, bus, logging.Component(logger, "leds"))

	statusTopics := mqtt.NewStatusTopics(cfg.MQTT.StatusTopic)
	client := mqtt.NewClient(mqtt.Options{
		Broker:            cfg.MQTT.Broker,
		ClientID:          cfg.MQTT.ClientID,
		AvailabilityTopic: statusTopics.Availability,
	}, logging.Component(logger, "mqtt"))

	inbox := make(chan leds.Message, inboxSize)
	mqtt.NewRouter(cfg.MQTT.DataTopic, cfg.MQTT.ControlTopic, client.Broker(), inbox, logging.Component(logger, "router")).Attach(client)
	status := mqtt.NewStatusPublisher(client, cfg.MQTT.StatusTopic, client.ClientID(), ctrl.Snapshot, logging.Component(logger, "status"))
	defer status.Attach(client, bus)()

	// The controller outlives the client so no paho callback blocks on a
	// full inbox during disconnect.
	runCtx, cancelRun := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- ctrl.Run(runCtx, inbox) }()

	httpErr := make(chan error, 1)
	httpCtx, cancelHTTP := context.WithCancel(ctx)
	defer cancelHTTP()
	if cfg.HTTP.Listen != "" {
		router := httpapi.NewRouter(ctrl, client, m.Handler(), logging.Component(logger, "http"))
		srv := httpapi.NewServer(cfg.HTTP.Listen, router, logging.Component(logger, "http"))
		go func() { httpErr <- srv.Serve(httpCtx) }()
	}

	if path != "" {
		w := config.NewWatcher(path, flags, 0, logging.Component(logger, "config"))
		w.OnReload(func(next *config.Config) { applyReload(cfg, next, logger) })
		if err := w.Start(); err != nil {
			logger.Warn().Err(err).Msg("Config watcher disabled")
		} else {
			defer w.Stop()
		}
	}

	client.Start()
	logger.Info().
		Ints("pins", cfg.GPIO.Pins).
		Str("data_topic", cfg.MQTT.DataTopic).
		Str("control_topic", cfg.MQTT.ControlTopic).
		Msg("LED controller running")

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-httpErr:
		if err != nil {
			runErr = err
			logger.Error().Err(err).Msg("HTTP server stopped")
		}
	}

	logger.Info().Msg("Shutting down gracefully...")
	client.Disconnect()
	cancelRun()
	select {
	case err := <-runDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			runErr = errors.Join(runErr, err)
		}
	case <-time.After(5 * time.Second):
		logger.Warn().Msg("Controller did not stop in time")
	}
	return runErr
}

// applyReload applies the settings that can change at runtime. Pins, driver
// and topics are fixed for the life of the process.
func applyReload(current, next *config.Config, logger zerolog.Logger) {
	if err := logging.SetLevel(next.Logging.Level); err != nil {
		logger.Warn().Err(err).Msg("Ignoring reloaded log level")
	} else {
		logger.Info().Str("level", next.Logging.Level).Msg("Log level updated")
	}
	if next.MQTT != current.MQTT || next.GPIO.Driver != current.GPIO.Driver || !slices.Equal(next.GPIO.Pins, current.GPIO.Pins) {
		logger.Warn().Msg("MQTT and GPIO settings changed on disk; restart to apply")
	}
}
