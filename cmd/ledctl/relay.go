package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/farouk15160/led-mqtt-control/internal/logging"
	"github.com/farouk15160/led-mqtt-control/internal/mqtt"
	"github.com/farouk15160/led-mqtt-control/internal/sensorjson"
)

func newRelayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Repair sensor JSON and republish it",
		Args:  cobra.NoArgs,
		RunE:  runRelay,
	}
	cmd.Flags().String("source", "", "Topic with raw sensor payloads (default from config)")
	cmd.Flags().String("target", "", "Topic for repaired payloads (default from config)")
	return cmd
}

func runRelay(cmd *cobra.Command, _ []string) error {
	cfg, _, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("source") {
		cfg.Relay.SourceTopic, _ = cmd.Flags().GetString("source")
	}
	if cmd.Flags().Changed("target") {
		cfg.Relay.TargetTopic, _ = cmd.Flags().GetString("target")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := mqtt.NewClient(mqtt.Options{Broker: cfg.MQTT.Broker, ClientID: cfg.MQTT.ClientID}, logging.Component(logger, "mqtt"))
	relay := sensorjson.NewRelay(client, cfg.Relay.TargetTopic, logging.Component(logger, "relay"))
	client.Handle(cfg.Relay.SourceTopic, relay.Handle)
	client.Start()
	logger.Info().Str("source", cfg.Relay.SourceTopic).Str("target", cfg.Relay.TargetTopic).Msg("Relay running")

	<-ctx.Done()
	client.Disconnect()
	logger.Info().Msg("Shutting down gracefully...")
	return nil
}
