package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the configured language model is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg, err := newClient()
		if err != nil {
			return err
		}
		h, err := client.CheckHealth(cmd.Context())
		if err != nil {
			return fmt.Errorf("health check: %w", err)
		}
		if err := writeJSON(cmd.OutOrStdout(), h); err != nil {
			return err
		}
		if !h.Available {
			return fmt.Errorf("model %s is not available from %s", cfg.Model, cfg.LLMProvider)
		}
		return nil
	},
}
