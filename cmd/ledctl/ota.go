package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/farouk15160/led-mqtt-control/internal/logging"
	"github.com/farouk15160/led-mqtt-control/internal/mqtt"
	"github.com/farouk15160/led-mqtt-control/internal/ota"
)

func newOTACmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ota",
		Short: "Publish a firmware image to the OTA topic",
		Long:  `Reads the firmware file and publishes it in fixed-size chunks, in order, waiting for each publish before sending the next.`,
		Args:  cobra.NoArgs,
		RunE:  runOTA,
	}
	cmd.Flags().String("file", "", "Path to the firmware binary")
	cmd.Flags().String("topic", "", "OTA topic (default from config)")
	cmd.Flags().Int("chunk-size", 0, "Chunk size in bytes (default from config)")
	cmd.Flags().Duration("connect-timeout", 30*time.Second, "How long to wait for the broker")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runOTA(cmd *cobra.Command, _ []string) error {
	cfg, _, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	path, _ := cmd.Flags().GetString("file")
	if cmd.Flags().Changed("topic") {
		cfg.OTA.Topic, _ = cmd.Flags().GetString("topic")
	}
	if cmd.Flags().Changed("chunk-size") {
		cfg.OTA.ChunkSize, _ = cmd.Flags().GetInt("chunk-size")
	}
	timeout, _ := cmd.Flags().GetDuration("connect-timeout")

	f, err := ota.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	client := mqtt.NewClient(mqtt.Options{Broker: cfg.MQTT.Broker, ClientID: cfg.MQTT.ClientID}, logging.Component(logger, "mqtt"))
	connectCtx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	if err := client.Connect(connectCtx); err != nil {
		return err
	}
	defer client.Disconnect()

	u := &ota.Uploader{
		Pub:       client,
		Topic:     cfg.OTA.Topic,
		ChunkSize: cfg.OTA.ChunkSize,
		Logger:    logging.Component(logger, "ota"),
	}
	stats, err := u.Upload(cmd.Context(), f)
	fmt.Fprintf(cmd.OutOrStdout(), "Sent %d chunks (%d bytes) to %s\n", stats.Chunks, stats.Bytes, cfg.OTA.Topic)
	return err
}
