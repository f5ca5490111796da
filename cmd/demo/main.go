package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vonfeng/AgentMove-Public/internal/config"
	"github.com/vonfeng/AgentMove-Public/internal/gateway"
	"github.com/vonfeng/AgentMove-Public/internal/logger"
)

var cfgPath string

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	root := &cobra.Command{
		Use:   "demo",
		Short: "Interactive client for the AgentMove location-prediction service",
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "config/config.toml", "path to TOML config")

	root.AddCommand(newServeCmd(), newPredictCmd(), newHealthCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the config, builds the logger and the gateway client shared by
// every subcommand.
func setup() (*config.Config, *zap.Logger, *gateway.HTTPClient, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, nil, err
	}
	zl, err := logger.New(cfg.Debug)
	if err != nil {
		return nil, nil, nil, err
	}
	client := gateway.New(cfg.Gateway.BaseURL,
		gateway.WithTimeout(timeout(cfg)),
		gateway.WithLogger(zl),
	)
	return cfg, zl, client, nil
}
