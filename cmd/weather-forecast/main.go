// Command weather-forecast serves hourly temperature forecasts from a trained
// model and keeps the observation history it needs up to date.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/i474232898/weather-forecast/internal/config"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "weather-forecast",
	Short: "Hourly temperature forecasting service",
	Long: `weather-forecast loads the model trained by the pipeline, records observed
temperatures by hour and serves 24-hour forecasts with per-feature attributions.

Configuration is read from the environment (and .env), the training
parameters file and the dataset catalog.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(forecastCmd)
	rootCmd.AddCommand(ingestCmd)
}

// loadConfig reads configuration and builds the process logger.
func loadConfig() (*config.AppConfig, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	zap.ReplaceGlobals(logger)

	if !cfg.EnvFileLoaded {
		logger.Debug("no .env file found, using process environment")
	}
	return cfg, logger, nil
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	zcfg := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg.Level = lvl
	return zcfg.Build()
}
