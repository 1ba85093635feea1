// Package forecast is the inference engine: single predictions, the 24-hour
// autoregressive rollout, attributions and the model metrics summary.
package forecast

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/weather-forecast/internal/artifact"
	"github.com/i474232898/weather-forecast/internal/explain"
	"github.com/i474232898/weather-forecast/internal/features"
	"github.com/i474232898/weather-forecast/internal/history"
	"github.com/i474232898/weather-forecast/internal/model"
	"github.com/i474232898/weather-forecast/internal/telemetry"
	"github.com/i474232898/weather-forecast/internal/weather"
)

// Horizon is the number of hourly steps in a forecast.
const Horizon = 24

const timestampLayout = "2006-01-02 15:04:05"

// Source yields the current version of an artifact; artifact.Cache
// implements it.
type Source[T any] interface {
	Get() (*artifact.Entry[T], error)
	Peek() *artifact.Entry[T]
	Path() (string, error)
}

// Options wires an Engine.
type Options struct {
	Models   Source[model.Model]
	Metrics  Source[model.Metrics]
	Archive  Source[*history.Archive] // optional
	Store    weather.Store
	Schema   *features.Schema
	Location *time.Location

	HistoryYears int
	Logger       *zap.Logger
	Now          func() time.Time
}

// Engine runs the model against store-backed feature vectors. It never
// writes to the store.
type Engine struct {
	models       Source[model.Model]
	metrics      Source[model.Metrics]
	archive      Source[*history.Archive]
	store        weather.Store
	schema       *features.Schema
	loc          *time.Location
	historyYears int
	logger       *zap.Logger
	now          func() time.Time
}

// NewEngine validates opts and builds an Engine.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Models == nil || opts.Store == nil || opts.Schema == nil {
		return nil, fmt.Errorf("forecast engine needs a model source, a store and a schema")
	}
	e := &Engine{
		models:       opts.Models,
		metrics:      opts.Metrics,
		archive:      opts.Archive,
		store:        opts.Store,
		schema:       opts.Schema,
		loc:          opts.Location,
		historyYears: opts.HistoryYears,
		logger:       opts.Logger,
		now:          opts.Now,
	}
	if e.loc == nil {
		e.loc = time.UTC
	}
	if e.historyYears <= 0 {
		e.historyYears = 5
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

// Location is the wall clock features are computed on.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Schema returns the feature layout.
func (e *Engine) Schema() *features.Schema {
	return e.schema
}

// Step is one hour of a forecast.
type Step struct {
	Time                 time.Time `json:"time"`
	Hour                 int       `json:"hour"`
	PredictedTemperature float64   `json:"predicted_temperature"`
}

// Prediction is a single model evaluation.
type Prediction struct {
	Prediction     float64             `json:"prediction"`
	InputFeatures  map[string]*float64 `json:"input_features"`
	ModelTimestamp string              `json:"model_timestamp"`
}

// vector builds the features for t from the store's lags.
func (e *Engine) vector(ctx context.Context, t time.Time, temp float64) (features.Vector, []*float64, error) {
	t = t.In(e.loc)
	lags, err := e.store.LookupLags(ctx, t, e.schema.NumLags())
	if err != nil {
		return features.Vector{}, nil, fmt.Errorf("lookup lags: %w", err)
	}
	return e.schema.Build(t, temp, lags), lags, nil
}

// Predict evaluates the model once for t with the observed temperature.
func (e *Engine) Predict(ctx context.Context, t time.Time, temp float64) (p Prediction, err error) {
	defer func() { telemetry.ForecastRequests.WithLabelValues("predict", telemetry.Result(err)).Inc() }()

	entry, err := e.models.Get()
	if err != nil {
		return Prediction{}, err
	}
	v, _, err := e.vector(ctx, t, temp)
	if err != nil {
		return Prediction{}, err
	}

	return Prediction{
		Prediction:     entry.Value.Predict(v.Values()),
		InputFeatures:  v.Map(),
		ModelTimestamp: e.formatToken(entry.Token),
	}, nil
}

// PredictCalendar predicts for month/day/hour of the current year. Inputs
// are validated before anything else happens.
func (e *Engine) PredictCalendar(ctx context.Context, month, day, hour int, temp float64) (Prediction, error) {
	year := e.now().In(e.loc).Year()
	if err := features.ValidateCalendar(year, month, day, hour); err != nil {
		return Prediction{}, err
	}
	t := time.Date(year, time.Month(month), day, hour, 0, 0, 0, e.loc)
	return e.Predict(ctx, t, temp)
}

// Forecast24h rolls the model forward Horizon hours from start. Step 0 uses
// the observed temperature and the store's lags; every later step uses the
// previous prediction as the current temperature and shifts it into the lag
// window.
func (e *Engine) Forecast24h(ctx context.Context, start time.Time, temp float64) (steps []Step, err error) {
	defer func() { telemetry.ForecastRequests.WithLabelValues("forecast", telemetry.Result(err)).Inc() }()

	entry, err := e.models.Get()
	if err != nil {
		return nil, err
	}
	start = start.In(e.loc)
	lags, err := e.store.LookupLags(ctx, start, e.schema.NumLags())
	if err != nil {
		return nil, fmt.Errorf("lookup lags: %w", err)
	}
	return Rollout(entry.Value, e.schema, start, temp, lags, Horizon), nil
}

// Rollout is the autoregressive loop behind Forecast24h.
func Rollout(m model.Model, schema *features.Schema, start time.Time, temp float64, lags []*float64, hours int) []Step {
	window := append([]*float64(nil), lags...)
	current := temp
	steps := make([]Step, 0, hours)

	for i := 0; i < hours; i++ {
		ts := start.Add(time.Duration(i) * time.Hour)
		v := schema.Build(ts, current, window)
		y := m.Predict(v.Values())

		steps = append(steps, Step{
			Time:                 ts,
			Hour:                 ts.Hour(),
			PredictedTemperature: y,
		})

		if len(window) > 0 {
			prev := current
			window = append([]*float64{&prev}, window[:len(window)-1]...)
		}
		current = y
	}
	return steps
}

// Explain attributes the prediction for t to its features.
func (e *Engine) Explain(ctx context.Context, t time.Time, temp float64) (r explain.Result, err error) {
	defer func() { telemetry.ForecastRequests.WithLabelValues("explain", telemetry.Result(err)).Inc() }()

	entry, err := e.models.Get()
	if err != nil {
		return explain.Result{}, err
	}
	v, _, err := e.vector(ctx, t, temp)
	if err != nil {
		return explain.Result{}, err
	}
	return Attribute(entry.Value, v), nil
}

// Attribute computes the normalized attribution of one vector.
func Attribute(m model.Model, v features.Vector) explain.Result {
	phi, base := m.Contributions(v.Values())
	return explain.Normalize(v.Names(), phi, base)
}

// MetricsReport summarizes the evaluation metrics of the current model.
type MetricsReport struct {
	MSE         *float64 `json:"mse"`
	RMSE        *float64 `json:"rmse"`
	MAE         *float64 `json:"mae"`
	LastUpdated string   `json:"last_updated"`
	ModelExists bool     `json:"model_exists"`
	Error       string   `json:"error,omitempty"`
}

// Metrics never fails; problems are reported in the Error field.
func (e *Engine) Metrics() MetricsReport {
	if e.metrics == nil {
		return MetricsReport{LastUpdated: "N/A", ModelExists: e.modelExists(), Error: "metrics source not configured"}
	}

	entry, err := e.metrics.Get()
	if err != nil {
		e.logger.Warn("metrics unavailable", zap.Error(err))
		return MetricsReport{LastUpdated: "N/A", ModelExists: e.modelExists(), Error: err.Error()}
	}

	return MetricsReport{
		MSE:         entry.Value.MSE,
		RMSE:        entry.Value.RMSE,
		MAE:         entry.Value.MAE,
		LastUpdated: e.formatToken(entry.Token),
		ModelExists: e.modelExists(),
	}
}

func (e *Engine) modelExists() bool {
	if e.models.Peek() != nil {
		return true
	}
	path, err := e.models.Path()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

func (e *Engine) formatToken(t time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}
	return t.In(e.loc).Format(timestampLayout)
}

// Historical compares the forecast window with previous years.
func (e *Engine) Historical(start time.Time) history.Result {
	if e.archive == nil {
		return history.Result{Status: history.StatusEmpty, Reason: "no raw weather archive configured", Years: []history.YearSeries{}}
	}
	entry, err := e.archive.Get()
	if err != nil {
		e.logger.Warn("historical comparison failed", zap.Error(err))
		return history.Failed(err)
	}
	return entry.Value.Compare(start.In(e.loc), Horizon, e.historyYears)
}

// Current is the observation a report was built from.
type Current struct {
	Time        time.Time `json:"time"`
	Temperature float64   `json:"temperature"`
}

// Report is the full dashboard payload for one observation.
type Report struct {
	Current     Current        `json:"current"`
	Predictions []Step         `json:"predictions"`
	Attribution explain.Result `json:"attribution"`
	Metrics     MetricsReport  `json:"metrics"`
	Historical  history.Result `json:"historical"`
}

// Report forecasts, explains and compares in one call. The rollout and the
// attribution share one model snapshot and one lag lookup.
func (e *Engine) Report(ctx context.Context, t time.Time, temp float64) (r Report, err error) {
	defer func() { telemetry.ForecastRequests.WithLabelValues("report", telemetry.Result(err)).Inc() }()

	entry, err := e.models.Get()
	if err != nil {
		return Report{}, err
	}
	t = t.In(e.loc)
	lags, err := e.store.LookupLags(ctx, t, e.schema.NumLags())
	if err != nil {
		return Report{}, fmt.Errorf("lookup lags: %w", err)
	}

	steps := Rollout(entry.Value, e.schema, t, temp, lags, Horizon)
	attr := Attribute(entry.Value, e.schema.Build(t, temp, lags))

	e.logger.Debug("forecast report built",
		zap.Time("start", t),
		zap.Float64("temperature", temp),
		zap.Float64("first_prediction", steps[0].PredictedTemperature))

	return Report{
		Current:     Current{Time: t, Temperature: temp},
		Predictions: steps,
		Attribution: attr,
		Metrics:     e.Metrics(),
		Historical:  e.Historical(t),
	}, nil
}
