package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/weather-forecast/internal/api/http"
	"github.com/i474232898/weather-forecast/internal/artifact"
	"github.com/i474232898/weather-forecast/internal/scheduler"
)

var serveFlags struct {
	host        string
	port        string
	interval    time.Duration
	noScheduler bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the ingestion scheduler",
	Long: `Serve the forecast API. Unless disabled, current conditions are ingested
on a fixed interval in the background.

Examples:
  # Serve on the configured address
  weather-forecast serve

  # Serve on another port without the background scheduler
  weather-forecast serve --port 8080 --no-scheduler`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.host, "host", "", "listen host (overrides HOST)")
	serveCmd.Flags().StringVar(&serveFlags.port, "port", "", "listen port (overrides PORT)")
	serveCmd.Flags().DurationVar(&serveFlags.interval, "interval", 0, "ingestion interval (overrides FETCH_INTERVAL)")
	serveCmd.Flags().BoolVar(&serveFlags.noScheduler, "no-scheduler", false, "disable background ingestion")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	if serveFlags.host != "" {
		cfg.Host = serveFlags.host
	}
	if serveFlags.port != "" {
		cfg.Port = serveFlags.port
	}
	if serveFlags.interval > 0 {
		cfg.FetchInterval = serveFlags.interval
	}
	if serveFlags.noScheduler {
		cfg.SchedulerEnabled = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := bootstrap(ctx, cfg, log)
	if err != nil {
		log.Error("bootstrap failed", zap.Error(err))
		return err
	}
	defer c.Close()

	// Load artifacts eagerly and keep them warm; a missing model is served
	// as 503 until the pipeline produces one.
	watcher, err := artifact.NewWatcher(log)
	if err != nil {
		return err
	}
	defer watcher.Close()
	for _, w := range c.warmables {
		if err := w.Warm(); err != nil {
			log.Warn("artifact not loaded at startup", zap.String("dataset", w.Name()), zap.Error(err))
		}
		if err := watcher.Add(w); err != nil {
			log.Warn("artifact not watched", zap.String("dataset", w.Name()), zap.Error(err))
		}
	}
	go watcher.Run(ctx)

	deps := httpapi.Deps{
		Engine:  c.engine,
		Service: c.service,
		Logger:  log,
	}

	if cfg.SchedulerEnabled {
		sched := scheduler.New(c.ingest, scheduler.Options{
			Name:      "fetch-weather",
			Interval:  cfg.FetchInterval,
			Grace:     cfg.SchedulerGrace,
			StateFile: cfg.Resolve(cfg.SchedulerStateFile),
			Logger:    log,
		})
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()
		deps.Scheduler = sched
	} else {
		log.Info("background scheduler disabled")
	}

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "weather-forecast",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())

	httpapi.RegisterRoutes(app, deps)

	go func() {
		log.Info("http server listening", zap.String("addr", cfg.Addr()))
		if err := app.Listen(cfg.Addr()); err != nil {
			log.Error("fiber server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Warn("error during shutdown", zap.Error(err))
	}
	return nil
}
