package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vonfeng/AgentMove-Public/internal/logger"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the prediction service status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, zl, client, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync(zl)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			h, err := client.Health(ctx)
			if err != nil {
				return fmt.Errorf("gateway %s: %w", cfg.Gateway.BaseURL, err)
			}
			fmt.Printf("status: %s\nagent loaded: %v\n", h.Status, h.AgentLoaded)
			return nil
		},
	}
}
