package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/voicify-tts/internal/artifact"
)

func newPurgeCommand() *cobra.Command {
	var workDir string

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete leftover output_*.wav artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if workDir != "" {
				cfg.WorkDir = workDir
			}

			artifacts, err := artifact.NewManager(cfg.WorkDir, logger)
			if err != nil {
				return err
			}

			removed, err := artifacts.PurgeStale()
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d stale artifact(s) from %s\n", removed, artifacts.Dir())
			return err
		},
	}

	cmd.Flags().StringVar(&workDir, "work-dir", "", "artifact directory (overrides WORK_DIR)")

	return cmd
}
