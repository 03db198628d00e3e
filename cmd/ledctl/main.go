package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/farouk15160/led-mqtt-control/internal/config"
	"github.com/farouk15160/led-mqtt-control/internal/logging"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ledctl",
		Short:         "MQTT driven LED controller",
		Long:          `ledctl drives four LEDs from MQTT data and control topics, and ships the OTA and sensor relay helpers that go with the receiver board.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.BindFlags(root.PersistentFlags())

	root.AddCommand(newServeCmd(), newOTACmd(), newRelayCmd())
	return root
}

// loadConfig resolves the configuration for cmd and builds the root logger
// from it.
func loadConfig(cmd *cobra.Command) (*config.Config, string, zerolog.Logger, error) {
	boot := logging.New(logging.Config{}, os.Stderr)
	path, err := cmd.Flags().GetString(config.FlagConfig)
	if err != nil {
		return nil, "", boot, err
	}
	cfg, err := config.Load(path, cmd.Flags(), boot)
	if err != nil {
		return nil, path, boot, err
	}
	logger := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}, os.Stderr)
	return cfg, path, logger, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ledctl:", err)
		os.Exit(1)
	}
}
