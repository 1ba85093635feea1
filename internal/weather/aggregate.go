package weather

import "time"

// AggregateReadings combines Fahrenheit readings into a single Conditions value.
// Temperatures are averaged; the newest start time wins; descriptive fields
// come from the first reading that has them.
func AggregateReadings(readings []ProviderReading) Conditions {
	if len(readings) == 0 {
		return Conditions{
			StartTime:       time.Now().UTC(),
			TemperatureUnit: "F",
		}
	}

	var (
		sumTemp  float64
		newestTS time.Time
		name     string
		short    string
	)
	providers := make([]ProviderContribution, 0, len(readings))

	for _, r := range readings {
		sumTemp += r.Temperature

		if r.StartTime.After(newestTS) {
			newestTS = r.StartTime
		}
		if name == "" {
			name = r.ForecastName
		}
		if short == "" {
			short = r.ShortForecast
		}

		providers = append(providers, ProviderContribution{
			ProviderName: r.ProviderName,
			Timestamp:    r.StartTime,
		})
	}

	if newestTS.IsZero() {
		newestTS = time.Now().UTC()
	}
	if name == "" {
		name = "Current"
	}
	if short == "" {
		short = "N/A"
	}

	return Conditions{
		StartTime:       newestTS,
		Temperature:     sumTemp / float64(len(readings)),
		TemperatureUnit: "F",
		ForecastName:    name,
		ShortForecast:   short,
		Providers:       providers,
	}
}
