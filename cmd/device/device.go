package device

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Mmx233/improv/client"
	"github.com/Mmx233/improv/config"
	"github.com/Mmx233/improv/metrics"
	"github.com/Mmx233/improv/tools"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const defaultConfigFile = "config.yaml"

var (
	configFile    = tools.GetenvDefault(config.EnvPrefix+"CONFIG", defaultConfigFile)
	port          = tools.GetenvDefault(config.EnvPrefix+"PORT", "")
	baudRate      = tools.GetenvInt(config.EnvPrefix+"BAUD", 0)
	jsonOutput    bool
	metricsListen string
	wait          = 10 * time.Second

	// dialer replaces the serial dialer when set
	dialer client.Dialer
)

// Commands returns every command that talks to a device.
func Commands() []*cobra.Command {
	return []*cobra.Command{monitorCmd, stateCmd, infoCmd, scanCmd, provisionCmd}
}

func init() {
	for _, cmd := range Commands() {
		flags := cmd.Flags()
		flags.StringVarP(&configFile, "config", "c", configFile, "path of config file")
		flags.StringVarP(&port, "port", "p", port, "serial port of the device")
		flags.IntVarP(&baudRate, "baud", "b", baudRate, "baud rate, 0 keeps the configured value")
		flags.BoolVar(&jsonOutput, "json", false, "print JSON lines instead of text")
		flags.StringVar(&metricsListen, "metrics", "", "serve prometheus metrics on this address")
	}
	for _, cmd := range []*cobra.Command{stateCmd, infoCmd, scanCmd, provisionCmd} {
		cmd.Flags().DurationVarP(&wait, "wait", "w", wait, "how long to wait for the device to answer")
	}
}

// loadConfig reads the config file and applies the command line overrides.
// The default config file may be absent when --port is given.
func loadConfig() (*config.Client, error) {
	path := configFile
	if path == defaultConfigFile {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			path = ""
		}
	}

	return config.LoadClientConfig(path, func(c *config.Client) {
		if port != "" {
			c.Serial.Port = port
		}
		if baudRate > 0 {
			c.Serial.BaudRate = baudRate
		}
		if metricsListen != "" {
			c.Metrics.Listen = metricsListen
		}
		if jsonOutput {
			c.Output = config.OutputJSON
		}
	})
}

// connect builds a client from the configuration, starts the metrics
// endpoint if one is configured and opens the device.
func connect(ctx context.Context, cmd *cobra.Command) (*client.Client, *printer, error) {
	logger := log.With().Str("com", cmd.Name()+"-cmd").Logger()

	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if cfg.Metrics.Listen != "" {
		addr, err := metrics.StartServer(ctx, cfg.Metrics.Listen, reg)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Str("addr", addr).Msg("serving metrics")
	}

	opts := []client.Option{client.WithMetrics(m)}
	if dialer != nil {
		opts = append(opts, client.WithDialer(dialer))
	}
	c, err := client.New(cfg, opts...)
	if err != nil {
		return nil, nil, err
	}

	if err := c.Connect(ctx); err != nil {
		return nil, nil, fmt.Errorf("connect %s: %w", cfg.Serial.Port, err)
	}
	return c, newPrinter(cmd.OutOrStdout(), cfg.Output), nil
}
