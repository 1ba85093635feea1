package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var forecastFlags struct {
	temp   float64
	at     string
	record bool
}

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Print a 24-hour forecast report as JSON",
	Long: `Build the forecast report for one observation and print it to stdout.
Without --temp the current conditions are fetched from the providers.

Examples:
  # Forecast from an observed temperature at the current hour
  weather-forecast forecast --temp 71.5

  # Forecast from a given hour, recording the observation
  weather-forecast forecast --temp 64 --at 2024-07-04T06:00:00-05:00 --record`,
	RunE: runForecast,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch and record current conditions once",
	Long: `Run the scheduled job once: fetch current conditions, record them as the
observation for their hour and run the retraining command if configured.`,
	RunE: runIngest,
}

func init() {
	forecastCmd.Flags().Float64Var(&forecastFlags.temp, "temp", 0, "observed temperature in Fahrenheit")
	forecastCmd.Flags().StringVar(&forecastFlags.at, "at", "", "observation time (RFC3339, default now)")
	forecastCmd.Flags().BoolVar(&forecastFlags.record, "record", false, "record the observation in the store")
}

func runForecast(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	c, err := bootstrap(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer c.Close()

	ts := time.Now()
	if forecastFlags.at != "" {
		if ts, err = time.Parse(time.RFC3339, forecastFlags.at); err != nil {
			return errors.New("--at must be RFC3339")
		}
	}

	temp := forecastFlags.temp
	if cmd.Flags().Changed("temp") {
		if forecastFlags.record {
			if _, err := c.service.Observe(ctx, ts, temp); err != nil {
				return err
			}
		}
	} else {
		cond, err := c.service.FetchAndStore(ctx)
		if err != nil {
			return err
		}
		ts, temp = cond.StartTime, cond.Temperature
	}

	report, err := c.engine.Report(ctx, ts, temp)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	c, err := bootstrap(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer c.Close()

	return c.ingest(ctx)
}
