package weather

import (
	"context"
	"time"
)

// ProviderReading represents a single provider's current-conditions reading
// before unit normalization.
type ProviderReading struct {
	ProviderName string
	StartTime    time.Time

	Temperature   float64
	Unit          string
	ForecastName  string
	ShortForecast string
}

// Provider abstracts a weather data source (e.g. weather.gov, Open-Meteo).
type Provider interface {
	Name() string
	Fetch(ctx context.Context, loc Location) (ProviderReading, error)
}

// Store is the contract every temperature store must satisfy.
//
// Record keeps the first observation of an hour and reports whether the call
// wrote anything. LookupLags returns count entries for t-1h ... t-count·h,
// with nil for hours that have no observation.
type Store interface {
	Record(ctx context.Context, t time.Time, temperature float64) (bool, error)
	Lookup(ctx context.Context, t time.Time) (float64, bool, error)
	LookupLags(ctx context.Context, t time.Time, count int) ([]*float64, error)
	Range(ctx context.Context, from, to time.Time) ([]Observation, error)
	Latest(ctx context.Context) (Observation, error)
	Close() error
}
