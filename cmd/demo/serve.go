package main

import (
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vonfeng/AgentMove-Public/internal/config"
	"github.com/vonfeng/AgentMove-Public/internal/logger"
	"github.com/vonfeng/AgentMove-Public/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the demo web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, zl, client, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync(zl)

			srv := server.NewServer(client, cfg, zl)
			router := srv.SetupRouter()

			// The frontend is served cross-origin during development.
			handler := cors.Default().Handler(router)

			zl.Info("starting demo server",
				zap.String("addr", cfg.Server.Addr),
				zap.String("gateway", cfg.Gateway.BaseURL))
			return http.ListenAndServe(cfg.Server.Addr, handler)
		},
	}
}

func timeout(cfg *config.Config) time.Duration {
	if cfg.Gateway.TimeoutSeconds <= 0 {
		return 120 * time.Second
	}
	return time.Duration(cfg.Gateway.TimeoutSeconds) * time.Second
}
