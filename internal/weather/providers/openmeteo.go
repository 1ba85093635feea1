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

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *http.Client, logger *zap.Logger) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: "https://api.open-meteo.com/v1/forecast",
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: DefaultBackoff,
			Logger:  logger,
		},
		circuit: newCircuitBreaker("openmeteo", logger),
	}
}

// WithBaseURL overrides the forecast endpoint.
func (p *OpenMeteoProvider) WithBaseURL(u string) *OpenMeteoProvider {
	p.baseURL = u
	return p
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) Fetch(ctx context.Context, loc weather.Location) (weather.ProviderReading, error) {
	if !loc.HasCoordinates() {
		return weather.ProviderReading{}, fmt.Errorf("openmeteo requires latitude and longitude")
	}

	values := url.Values{}
	values.Set("latitude", fmt.Sprintf("%f", *loc.Lat))
	values.Set("longitude", fmt.Sprintf("%f", *loc.Lon))
	values.Set("current", "temperature_2m,weather_code")
	values.Set("timezone", "auto")

	var payload struct {
		UTCOffsetSeconds int `json:"utc_offset_seconds"`
		Current          struct {
			Time          string   `json:"time"`
			Temperature2M *float64 `json:"temperature_2m"`
			WeatherCode   int      `json:"weather_code"`
		} `json:"current"`
		CurrentUnits struct {
			Temperature2M string `json:"temperature_2m"`
		} `json:"current_units"`
	}

	u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
	if err := getJSON(ctx, p.httpCfg, p.circuit, u, &payload); err != nil {
		return weather.ProviderReading{}, fmt.Errorf("openmeteo: %w", err)
	}
	if payload.Current.Temperature2M == nil {
		return weather.ProviderReading{}, fmt.Errorf("%w: missing current.temperature_2m", ErrMalformedResponse)
	}

	// Open-Meteo reports local wall-clock time without an offset.
	zone := time.FixedZone("", payload.UTCOffsetSeconds)
	ts, err := time.ParseInLocation("2006-01-02T15:04", payload.Current.Time, zone)
	if err != nil {
		ts = time.Now().In(zone)
	}

	return weather.ProviderReading{
		ProviderName:  p.name,
		StartTime:     ts,
		Temperature:   *payload.Current.Temperature2M,
		Unit:          payload.CurrentUnits.Temperature2M,
		ForecastName:  "Current",
		ShortForecast: describeOpenMeteoCode(payload.Current.WeatherCode),
	}, nil
}

// describeOpenMeteoCode maps WMO weather codes to a short description (simplified).
func describeOpenMeteoCode(code int) string {
	switch {
	case code == 0:
		return "Clear"
	case code >= 1 && code <= 3:
		return "Partly Cloudy"
	case code == 45 || code == 48:
		return "Fog"
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82):
		return "Rain"
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return "Snow"
	case code >= 95:
		return "Thunderstorms"
	default:
		return "N/A"
	}
}
