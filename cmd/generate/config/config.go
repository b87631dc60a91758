package config

import (
	"fmt"
	"os"

	"github.com/Mmx233/improv/examples"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	configFile string // --config flag value

	Cmd = &cobra.Command{
		Use:   "config",
		Short: "Generate client configuration file",
		Args:  cobra.NoArgs,
		RunE:  runGenerate,
	}
)

func init() {
	Cmd.Flags().StringVarP(&configFile, "config", "c", "config.yaml", "output config file path")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	logger := log.With().Str("com", "generate").Logger()

	// Check if file exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("file already exists: %s", configFile)
	}

	// Load embedded template
	content, err := examples.ClientConfig()
	if err != nil {
		return fmt.Errorf("load client config template: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configFile, content, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	logger.Info().Str("file", configFile).Msg("generated client configuration")
	return nil
}
