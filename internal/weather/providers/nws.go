package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/i474232898/weather-forecast/internal/weather"
)

// NWSProvider implements the weather.Provider interface for api.weather.gov.
// It resolves the gridpoint forecast for the location and reports the first
// forecast period as the current conditions.
type NWSProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewNWSProvider creates a weather.gov provider. weather.gov rejects
// requests without a User-Agent identifying the caller.
func NewNWSProvider(client *http.Client, userAgent string, logger *zap.Logger) *NWSProvider {
	return &NWSProvider{
		name:    "nws",
		baseURL: "https://api.weather.gov",
		httpCfg: HTTPClientConfig{
			Client:    client,
			Backoff:   DefaultBackoff,
			UserAgent: userAgent,
			Logger:    logger,
		},
		circuit: newCircuitBreaker("nws", logger),
	}
}

// WithBaseURL overrides the API root.
func (p *NWSProvider) WithBaseURL(u string) *NWSProvider {
	p.baseURL = strings.TrimRight(u, "/")
	return p
}

func (p *NWSProvider) Name() string {
	return p.name
}

type nwsPoints struct {
	Properties struct {
		Forecast string `json:"forecast"`
	} `json:"properties"`
}

type nwsForecast struct {
	Properties struct {
		Periods []struct {
			Name            string  `json:"name"`
			StartTime       string  `json:"startTime"`
			Temperature     float64 `json:"temperature"`
			TemperatureUnit string  `json:"temperatureUnit"`
			ShortForecast   string  `json:"shortForecast"`
		} `json:"periods"`
	} `json:"properties"`
}

func (p *NWSProvider) Fetch(ctx context.Context, loc weather.Location) (weather.ProviderReading, error) {
	if !loc.HasCoordinates() {
		return weather.ProviderReading{}, fmt.Errorf("nws requires latitude and longitude")
	}

	var points nwsPoints
	pointsURL := fmt.Sprintf("%s/points/%.4f,%.4f", p.baseURL, *loc.Lat, *loc.Lon)
	if err := getJSON(ctx, p.httpCfg, p.circuit, pointsURL, &points); err != nil {
		return weather.ProviderReading{}, fmt.Errorf("nws points: %w", err)
	}
	if points.Properties.Forecast == "" {
		return weather.ProviderReading{}, fmt.Errorf("%w: points response has no forecast url", ErrMalformedResponse)
	}

	var forecast nwsForecast
	if err := getJSON(ctx, p.httpCfg, p.circuit, points.Properties.Forecast, &forecast); err != nil {
		return weather.ProviderReading{}, fmt.Errorf("nws forecast: %w", err)
	}
	if len(forecast.Properties.Periods) == 0 {
		return weather.ProviderReading{}, fmt.Errorf("%w: forecast has no periods", ErrMalformedResponse)
	}

	first := forecast.Properties.Periods[0]
	ts, err := time.Parse(time.RFC3339, first.StartTime)
	if err != nil {
		return weather.ProviderReading{}, fmt.Errorf("%w: startTime %q: %v", ErrMalformedResponse, first.StartTime, err)
	}

	name := first.Name
	if name == "" {
		name = "Current"
	}
	short := first.ShortForecast
	if short == "" {
		short = "N/A"
	}

	return weather.ProviderReading{
		ProviderName:  p.name,
		StartTime:     ts,
		Temperature:   first.Temperature,
		Unit:          first.TemperatureUnit,
		ForecastName:  name,
		ShortForecast: short,
	}, nil
}
