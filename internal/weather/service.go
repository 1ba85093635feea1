package weather

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/weather-forecast/internal/telemetry"
)

// ErrNoReadings is returned when no provider produced a usable reading.
var ErrNoReadings = errors.New("no successful provider readings")

// Service orchestrates fetching current conditions and recording observations.
type Service struct {
	store     Store
	providers []Provider
	location  Location
	timeout   time.Duration
	logger    *zap.Logger
}

// NewService creates a new Service. timeout bounds one fetch across all providers.
func NewService(store Store, providers []Provider, loc Location, timeout time.Duration, logger *zap.Logger) *Service {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		store:     store,
		providers: providers,
		location:  loc,
		timeout:   timeout,
		logger:    logger,
	}
}

// Location returns the configured location.
func (s *Service) Location() Location {
	return s.location
}

// Current fetches current conditions from all providers concurrently,
// normalizes them to Fahrenheit and aggregates the successful readings.
// Nothing is written.
func (s *Service) Current(ctx context.Context) (Conditions, error) {
	if len(s.providers) == 0 {
		return Conditions{}, fmt.Errorf("%w: no weather providers configured", ErrNoReadings)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	// Indexed by provider position so descriptive fields come from the
	// highest-priority provider that answered.
	slots := make([]*ProviderReading, len(s.providers))

	for i, p := range s.providers {
		i, p := i, p
		wg.Add(1)
		go func() {
			defer wg.Done()

			start := time.Now()
			r, err := p.Fetch(ctx, s.location)
			telemetry.ProviderFetchDuration.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())
			if err == nil {
				r.Temperature, err = ToFahrenheit(r.Temperature, r.Unit)
				r.Unit = "F"
			}
			if err != nil {
				// Log and continue; partial success is still an observation.
				s.logger.Warn("provider fetch failed",
					zap.String("provider", p.Name()),
					zap.String("location", s.location.Key()),
					zap.Error(err))
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
				mu.Unlock()
				return
			}

			slots[i] = &r
		}()
	}

	wg.Wait()

	readings := make([]ProviderReading, 0, len(slots))
	for _, r := range slots {
		if r != nil {
			readings = append(readings, *r)
		}
	}

	if len(readings) == 0 {
		return Conditions{}, fmt.Errorf("%w for %s: %w", ErrNoReadings, s.location.Key(), errors.Join(errs...))
	}

	return AggregateReadings(readings), nil
}

// FetchAndStore fetches current conditions and records them as the
// observation for their start hour. On failure nothing is written.
func (s *Service) FetchAndStore(ctx context.Context) (Conditions, error) {
	cond, err := s.Current(ctx)
	if err != nil {
		return Conditions{}, err
	}

	if _, err := s.Observe(ctx, cond.StartTime, cond.Temperature); err != nil {
		return cond, err
	}
	return cond, nil
}

// Observe records a temperature observed at t. It reports whether the
// observation was new for its hour.
func (s *Service) Observe(ctx context.Context, t time.Time, temperature float64) (bool, error) {
	recorded, err := s.store.Record(ctx, t, temperature)
	switch {
	case err != nil:
		telemetry.Observations.WithLabelValues("error").Inc()
		return false, fmt.Errorf("record observation: %w", err)
	case recorded:
		telemetry.Observations.WithLabelValues("recorded").Inc()
		s.logger.Info("observation recorded",
			zap.Time("timestamp", t),
			zap.Float64("temperature", temperature))
	default:
		telemetry.Observations.WithLabelValues("duplicate").Inc()
		s.logger.Debug("observation already present for hour",
			zap.Time("timestamp", t))
	}
	return recorded, nil
}

// Latest delegates to the underlying store.
func (s *Service) Latest(ctx context.Context) (Observation, error) {
	return s.store.Latest(ctx)
}

// Range delegates to the underlying store.
func (s *Service) Range(ctx context.Context, from, to time.Time) ([]Observation, error) {
	return s.store.Range(ctx, from, to)
}
