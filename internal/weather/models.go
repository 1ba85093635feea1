package weather

import (
	"fmt"
	"time"
)

// Location represents the place whose temperature is observed and forecast.
// Coordinates are required by the upstream providers; City/Country are only
// used to geocode them when they are not configured.
type Location struct {
	City    string   `json:"city,omitempty"`
	Country string   `json:"country,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
}

// Key returns a canonical string key for logging this location.
func (l Location) Key() string {
	if l.Lat != nil && l.Lon != nil {
		return fmt.Sprintf("%.4f,%.4f", *l.Lat, *l.Lon)
	}
	return l.City + ":" + l.Country
}

// HasCoordinates reports whether latitude and longitude are both set.
func (l Location) HasCoordinates() bool {
	return l.Lat != nil && l.Lon != nil
}

// Conditions is the normalized current-conditions view returned by ingestion.
// Temperature is always Fahrenheit.
type Conditions struct {
	StartTime       time.Time `json:"start_time"`
	Temperature     float64   `json:"temperature"`
	TemperatureUnit string    `json:"temperature_unit"`
	ForecastName    string    `json:"forecast_name"`
	ShortForecast   string    `json:"short_forecast"`

	// Providers contributing to these conditions.
	Providers []ProviderContribution `json:"providers,omitempty"`
}

// ProviderContribution describes data coming from a single provider used in aggregation.
type ProviderContribution struct {
	ProviderName string    `json:"provider"`
	Timestamp    time.Time `json:"timestamp"`
}

// Observation is one recorded temperature for an hour. Timestamp is the
// start of the hour; ObservedAt is the instant the value was reported.
type Observation struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	ObservedAt  time.Time `json:"observed_at"`
}

// HourKey identifies an hour on the wall clock. At most one observation
// exists per key.
type HourKey struct {
	Year  int        `json:"year" db:"year"`
	Month time.Month `json:"month" db:"month"`
	Day   int        `json:"day" db:"day"`
	Hour  int        `json:"hour" db:"hour"`
}

// KeyOf truncates t to the hour using t's own wall clock.
func KeyOf(t time.Time) HourKey {
	return HourKey{Year: t.Year(), Month: t.Month(), Day: t.Day(), Hour: t.Hour()}
}

// Time returns the start of the hour in loc.
func (k HourKey) Time(loc *time.Location) time.Time {
	return time.Date(k.Year, k.Month, k.Day, k.Hour, 0, 0, 0, loc)
}

// Sub steps back n clock hours. Daylight-saving shifts do not apply, so
// the result never repeats or skips a clock hour.
func (k HourKey) Sub(n int) HourKey {
	return KeyOf(time.Date(k.Year, k.Month, k.Day, k.Hour-n, 0, 0, 0, time.UTC))
}

// Before orders keys chronologically.
func (k HourKey) Before(o HourKey) bool {
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	if k.Month != o.Month {
		return k.Month < o.Month
	}
	if k.Day != o.Day {
		return k.Day < o.Day
	}
	return k.Hour < o.Hour
}

func (k HourKey) String() string {
	return fmt.Sprintf("%04d-%02d-%02dT%02d", k.Year, int(k.Month), k.Day, k.Hour)
}
