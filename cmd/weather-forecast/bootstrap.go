package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/i474232898/weather-forecast/internal/artifact"
	"github.com/i474232898/weather-forecast/internal/catalog"
	"github.com/i474232898/weather-forecast/internal/config"
	"github.com/i474232898/weather-forecast/internal/forecast"
	"github.com/i474232898/weather-forecast/internal/history"
	"github.com/i474232898/weather-forecast/internal/model"
	"github.com/i474232898/weather-forecast/internal/retrain"
	"github.com/i474232898/weather-forecast/internal/store"
	"github.com/i474232898/weather-forecast/internal/weather"
	"github.com/i474232898/weather-forecast/internal/weather/providers"
)

// Catalog dataset names shared with the training pipeline.
const (
	datasetModel   = "trained_model"
	datasetMetrics = "model_metrics"
	datasetRaw     = "raw_weather_data"
)

// components is everything the commands need, built once before any of it
// is reachable.
type components struct {
	cfg     *config.AppConfig
	logger  *zap.Logger
	store   weather.Store
	service *weather.Service
	engine  *forecast.Engine
	retrain *retrain.Runner

	// warmables are watched for changes when serving.
	warmables []artifact.Warmable
}

func bootstrap(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*components, error) {
	params, err := config.LoadParameters(cfg.ProjectPath, cfg.ParametersFile)
	if err != nil {
		return nil, err
	}
	schema, err := params.Schema()
	if err != nil {
		return nil, fmt.Errorf("feature schema: %w", err)
	}

	cat, err := catalog.Load(cfg.ProjectPath, cfg.CatalogFile)
	if err != nil {
		return nil, err
	}

	loc, err := resolveLocation(cfg, params, logger)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, store.Options{
		Backend:  cfg.StoreBackend,
		Path:     cfg.Resolve(cfg.StorePath),
		DSN:      cfg.DatabaseURL,
		Location: cfg.Timezone,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("open temperature store: %w", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	service := weather.NewService(st, buildProviders(cfg, httpClient, logger), loc, cfg.HTTPTimeout, logger)

	columns := schema.Columns()
	models := artifact.NewCache[model.Model](datasetModel, cat, func(path string) (model.Model, error) {
		m, err := model.Load(path, columns)
		if err != nil {
			return nil, err
		}
		return m, nil
	}, logger)
	metrics := artifact.NewCache[model.Metrics](datasetMetrics, cat, model.LoadMetrics, logger)

	opts := forecast.Options{
		Models:       models,
		Metrics:      metrics,
		Store:        st,
		Schema:       schema,
		Location:     cfg.Timezone,
		HistoryYears: cfg.HistoryYears,
		Logger:       logger,
	}
	warmables := []artifact.Warmable{models, metrics}

	if _, err := cat.Path(datasetRaw); err == nil {
		archive := artifact.NewCache[*history.Archive](datasetRaw, cat, history.LoadArchive, logger)
		opts.Archive = archive
		warmables = append(warmables, archive)
	} else if !errors.Is(err, catalog.ErrUnknownDataset) {
		return nil, err
	} else {
		logger.Info("catalog has no raw weather dataset, historical comparison disabled")
	}

	engine, err := forecast.NewEngine(opts)
	if err != nil {
		st.Close()
		return nil, err
	}

	logger.Info("components ready",
		zap.Strings("features", columns),
		zap.Int("num_lags", schema.NumLags()),
		zap.String("location", loc.Key()),
		zap.String("store", cfg.StoreBackend),
		zap.String("timezone", cfg.Timezone.String()))

	return &components{
		cfg:       cfg,
		logger:    logger,
		store:     st,
		service:   service,
		engine:    engine,
		retrain:   retrain.NewRunner(cfg.RetrainCommand, cfg.ProjectPath, cfg.RetrainTimeout, logger),
		warmables: warmables,
	}, nil
}

func (c *components) Close() {
	if err := c.store.Close(); err != nil {
		c.logger.Warn("failed to close temperature store", zap.Error(err))
	}
}

// ingest fetches current conditions, records them and, when configured,
// runs the retraining command. It is the scheduled job.
func (c *components) ingest(ctx context.Context) error {
	cond, err := c.service.FetchAndStore(ctx)
	if err != nil {
		return err
	}
	c.logger.Info("current conditions ingested",
		zap.Time("start_time", cond.StartTime),
		zap.Float64("temperature", cond.Temperature),
		zap.String("forecast", cond.ShortForecast))

	if c.retrain != nil {
		if err := c.retrain.Run(ctx); err != nil {
			return fmt.Errorf("retrain: %w", err)
		}
	}
	return nil
}

// resolveLocation prefers configured coordinates, then the dashboard
// coordinates from the parameters file, then geocodes the configured city.
func resolveLocation(cfg *config.AppConfig, params *config.Parameters, logger *zap.Logger) (weather.Location, error) {
	loc := cfg.Location
	if loc.HasCoordinates() {
		return loc, nil
	}
	if params.Dashboard.Latitude != nil && params.Dashboard.Longitude != nil {
		loc.Lat, loc.Lon = params.Dashboard.Latitude, params.Dashboard.Longitude
		return loc, nil
	}
	if loc.City == "" {
		return loc, errors.New("no location configured: set WEATHER_LOCATION_LAT/LON, dashboard coordinates or WEATHER_LOCATION_CITY")
	}

	resolved, err := weather.ResolveCoordinates(loc, cfg.GeocoderAPIKey)
	if err != nil {
		return loc, err
	}
	logger.Info("location geocoded",
		zap.String("city", loc.City),
		zap.String("coordinates", resolved.Key()))
	return resolved, nil
}

func buildProviders(cfg *config.AppConfig, client *http.Client, logger *zap.Logger) []weather.Provider {
	var provs []weather.Provider
	for _, name := range cfg.Providers {
		switch name {
		case "nws":
			provs = append(provs, providers.NewNWSProvider(client, cfg.NWSUserAgent, logger))
		case "openmeteo":
			provs = append(provs, providers.NewOpenMeteoProvider(client, logger))
		case "openweather":
			provs = append(provs, providers.NewOpenWeatherProvider(client, cfg.OpenWeatherAPIKey, logger))
		}
	}
	return provs
}
