package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/voicify-tts/internal/config"
	"github.com/dgnsrekt/voicify-tts/internal/logging"
)

const version = "0.1.0"

func newRootCommand() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:          "voicify-tts",
		Short:        "HTTP text-to-speech service",
		Version:      version,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
	addServeFlags(cmd, &opts)

	cmd.AddCommand(
		newServeCommand(),
		newPurgeCommand(),
		newSpeakCommand(),
		newHealthCommand(),
	)

	return cmd
}

// loadConfig reads the environment and builds the logger configured by it.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, logging.New(cfg.LogLevel, cfg.LogFormat), nil
}
