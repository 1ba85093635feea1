package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/i474232898/weather-forecast/internal/weather"
)

// OpenWeatherProvider implements the weather.Provider interface for OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, apiKey string, logger *zap.Logger) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/2.5/weather",
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: DefaultBackoff,
			Logger:  logger,
		},
		circuit: newCircuitBreaker("openweathermap", logger),
	}
}

// WithBaseURL overrides the current-weather endpoint.
func (p *OpenWeatherProvider) WithBaseURL(u string) *OpenWeatherProvider {
	p.baseURL = u
	return p
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

func (p *OpenWeatherProvider) Fetch(ctx context.Context, loc weather.Location) (weather.ProviderReading, error) {
	if p.apiKey == "" {
		return weather.ProviderReading{}, fmt.Errorf("openweather api key is not configured")
	}

	values := url.Values{}
	values.Set("appid", p.apiKey)
	values.Set("units", "imperial")
	if loc.HasCoordinates() {
		values.Set("lat", fmt.Sprintf("%f", *loc.Lat))
		values.Set("lon", fmt.Sprintf("%f", *loc.Lon))
	} else {
		q := loc.City
		if loc.Country != "" {
			q = fmt.Sprintf("%s,%s", loc.City, loc.Country)
		}
		values.Set("q", q)
	}

	var payload struct {
		Dt   int64 `json:"dt"`
		Main *struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Weather []struct {
			Main        string `json:"main"`
			Description string `json:"description"`
		} `json:"weather"`
	}

	u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
	if err := getJSON(ctx, p.httpCfg, p.circuit, u, &payload); err != nil {
		return weather.ProviderReading{}, fmt.Errorf("openweather: %w", err)
	}
	if payload.Main == nil {
		return weather.ProviderReading{}, fmt.Errorf("%w: missing main.temp", ErrMalformedResponse)
	}

	ts := time.Unix(payload.Dt, 0).UTC()
	if payload.Dt == 0 {
		ts = time.Now().UTC()
	}

	short := "N/A"
	if len(payload.Weather) > 0 {
		short = payload.Weather[0].Main
	}

	return weather.ProviderReading{
		ProviderName:  p.name,
		StartTime:     ts,
		Temperature:   payload.Main.Temp,
		Unit:          "F",
		ForecastName:  "Current",
		ShortForecast: short,
	}, nil
}
