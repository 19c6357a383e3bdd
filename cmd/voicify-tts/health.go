package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newHealthCommand() *cobra.Command {
	var opts clientOptions

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Query a running server's health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			health, err := opts.client().Health(cmd.Context())
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(health)
		},
	}

	addClientFlags(cmd, &opts)

	return cmd
}
