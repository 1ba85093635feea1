package forecast

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-forecast/internal/artifact"
	"github.com/i474232898/weather-forecast/internal/features"
	"github.com/i474232898/weather-forecast/internal/history"
	"github.com/i474232898/weather-forecast/internal/model"
	"github.com/i474232898/weather-forecast/internal/store"
)

// recordingModel predicts ft_temp + 1 and remembers every input.
type recordingModel struct {
	mu     sync.Mutex
	names  []string
	inputs [][]float64
}

func (m *recordingModel) Predict(x []float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, append([]float64(nil), x...))
	for i, n := range m.names {
		if n == features.ColTemp {
			return x[i] + 1
		}
	}
	return 0
}

func (m *recordingModel) Contributions(x []float64) ([]float64, float64) {
	phi := make([]float64, len(x))
	for i, v := range x {
		if !math.IsNaN(v) {
			phi[i] = v / 100
		}
	}
	return phi, 42
}

func (m *recordingModel) FeatureNames() []string { return m.names }

type staticSource[T any] struct {
	entry *artifact.Entry[T]
	err   error
}

func (s staticSource[T]) Get() (*artifact.Entry[T], error) { return s.entry, s.err }
func (s staticSource[T]) Peek() *artifact.Entry[T]         { return s.entry }
func (s staticSource[T]) Path() (string, error)            { return "/nonexistent/model.json", nil }

// swappingSource hands out a different entry on every Get, as a reload
// between two reads would.
type swappingSource[T any] struct {
	mu      sync.Mutex
	entries []*artifact.Entry[T]
	gets    int
}

func (s *swappingSource[T]) Get() (*artifact.Entry[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entries[s.gets%len(s.entries)]
	s.gets++
	return e, nil
}

func (s *swappingSource[T]) Peek() *artifact.Entry[T] { return s.entries[0] }
func (s *swappingSource[T]) Path() (string, error)    { return "/nonexistent/model.json", nil }

var columns = []string{
	features.ColMonth, features.ColDay, features.ColHour, "ft_days_since_2000", features.ColTemp,
	features.LagColumn(1), features.LagColumn(2), features.LagColumn(3),
}

const (
	tempIdx = 4
	lag1Idx = 5
)

func newEngine(t *testing.T, m model.Model, st *store.MemoryStore) *Engine {
	t.Helper()
	schema, err := features.NewSchema(columns, 3, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	mse, rmse := 4.0, 2.0
	e, err := NewEngine(Options{
		Models: staticSource[model.Model]{entry: &artifact.Entry[model.Model]{
			Value: m,
			Token: time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC),
		}},
		Metrics: staticSource[model.Metrics]{entry: &artifact.Entry[model.Metrics]{
			Value: model.Metrics{MSE: &mse, RMSE: &rmse},
			Token: time.Date(2024, 6, 1, 8, 31, 0, 0, time.UTC),
		}},
		Store:    st,
		Schema:   schema,
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return e
}

func TestForecast24hRollsLagsForward(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore(time.UTC)
	start := time.Date(2024, 7, 4, 13, 0, 0, 0, time.UTC)
	for i, v := range []float64{50.0, 49.0, 48.5} {
		_, err := st.Record(ctx, start.Add(-time.Duration(i+1)*time.Hour), v)
		require.NoError(t, err)
	}

	m := &recordingModel{names: columns}
	e := newEngine(t, m, st)

	steps, err := e.Forecast24h(ctx, start, 51.0)
	require.NoError(t, err)
	require.Len(t, steps, Horizon)

	for i, s := range steps {
		want := start.Add(time.Duration(i) * time.Hour)
		assert.True(t, s.Time.Equal(want))
		assert.Equal(t, want.Hour(), s.Hour)
	}

	require.Len(t, m.inputs, Horizon)
	assert.Equal(t, []float64{51.0, 50.0, 49.0, 48.5}, m.inputs[0][tempIdx:])
	assert.Equal(t, []float64{steps[0].PredictedTemperature, 51.0, 50.0, 49.0}, m.inputs[1][tempIdx:])
	assert.Equal(t, steps[0].PredictedTemperature, m.inputs[1][tempIdx])
	assert.Equal(t, []float64{steps[1].PredictedTemperature, steps[0].PredictedTemperature, 51.0, 50.0}, m.inputs[2][tempIdx:])

	// Synthetic predictions are never recorded.
	assert.Equal(t, 3, st.Len())
}

func TestForecast24hWithEmptyStore(t *testing.T) {
	m := &recordingModel{names: columns}
	e := newEngine(t, m, store.NewMemoryStore(time.UTC))

	steps, err := e.Forecast24h(context.Background(), time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC), 20)
	require.NoError(t, err)
	require.Len(t, steps, Horizon)
	assert.Equal(t, 0, steps[1].Hour)
	assert.True(t, math.IsNaN(m.inputs[0][lag1Idx]))
	assert.Equal(t, 20.0, m.inputs[1][lag1Idx])
	assert.True(t, math.IsNaN(m.inputs[1][lag1Idx+1]))
}

func TestForecastPropagatesArtifactError(t *testing.T) {
	schema, err := features.NewSchema(columns, 3, time.Time{})
	require.NoError(t, err)
	loadErr := &artifact.LoadError{Name: "trained_model", Err: artifact.ErrUnavailable}
	e, err := NewEngine(Options{
		Models: staticSource[model.Model]{err: loadErr},
		Store:  store.NewMemoryStore(time.UTC),
		Schema: schema,
	})
	require.NoError(t, err)

	_, err = e.Forecast24h(context.Background(), time.Now(), 1)
	assert.ErrorIs(t, err, artifact.ErrUnavailable)

	r := e.Metrics()
	assert.NotEmpty(t, r.Error)
	assert.False(t, r.ModelExists)
}

func TestPredict(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore(time.UTC)
	at := time.Date(2024, 7, 4, 13, 20, 0, 0, time.UTC)
	_, err := st.Record(ctx, at.Add(-time.Hour), 70)
	require.NoError(t, err)

	e := newEngine(t, &recordingModel{names: columns}, st)
	p, err := e.Predict(ctx, at, 72)
	require.NoError(t, err)

	assert.Equal(t, 73.0, p.Prediction)
	assert.Equal(t, "2024-06-01 08:30:00", p.ModelTimestamp)
	require.NotNil(t, p.InputFeatures[features.LagColumn(1)])
	assert.Equal(t, 70.0, *p.InputFeatures[features.LagColumn(1)])
	assert.Nil(t, p.InputFeatures[features.LagColumn(2)])
}

func TestPredictCalendarValidatesFirst(t *testing.T) {
	m := &recordingModel{names: columns}
	e := newEngine(t, m, store.NewMemoryStore(time.UTC))

	_, err := e.PredictCalendar(context.Background(), 13, 1, 0, 50)
	var ve *features.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "month", ve.Field)
	assert.Empty(t, m.inputs)

	p, err := e.PredictCalendar(context.Background(), 2, 29, 5, 50)
	require.NoError(t, err)
	assert.Equal(t, 51.0, p.Prediction)
	require.Len(t, m.inputs, 1)
	assert.Equal(t, []float64{2, 29, 5}, m.inputs[0][:3])
}

func TestExplainPercentages(t *testing.T) {
	e := newEngine(t, &recordingModel{names: columns}, store.NewMemoryStore(time.UTC))

	r, err := e.Explain(context.Background(), time.Date(2024, 7, 4, 13, 0, 0, 0, time.UTC), 60)
	require.NoError(t, err)
	assert.Equal(t, 42.0, r.BaseValue)

	sum := 0.0
	for i, c := range r.Contributions {
		sum += c.Percentage
		if i > 0 {
			assert.LessOrEqual(t, c.Percentage, r.Contributions[i-1].Percentage)
		}
	}
	assert.InDelta(t, 100.0, sum, 1e-6)
	assert.Equal(t, "Days Since 2000", r.Contributions[0].Feature)
}

func TestMetrics(t *testing.T) {
	e := newEngine(t, &recordingModel{names: columns}, store.NewMemoryStore(time.UTC))

	r := e.Metrics()
	assert.Empty(t, r.Error)
	assert.True(t, r.ModelExists)
	assert.Equal(t, 4.0, *r.MSE)
	assert.Nil(t, r.MAE)
	assert.Equal(t, "2024-06-01 08:31:00", r.LastUpdated)
}

func TestReport(t *testing.T) {
	archive, err := history.ReadArchive(strings.NewReader("valid,tmpf\n2023-07-04 13:54,80\n"))
	require.NoError(t, err)

	e := newEngine(t, &recordingModel{names: columns}, store.NewMemoryStore(time.UTC))
	e.archive = staticSource[*history.Archive]{entry: &artifact.Entry[*history.Archive]{Value: archive}}

	start := time.Date(2024, 7, 4, 13, 0, 0, 0, time.UTC)
	rep, err := e.Report(context.Background(), start, 60)
	require.NoError(t, err)

	assert.Len(t, rep.Predictions, Horizon)
	assert.Equal(t, 60.0, rep.Current.Temperature)
	assert.NotEmpty(t, rep.Attribution.Contributions)
	assert.Equal(t, history.StatusOK, rep.Historical.Status)
	require.Len(t, rep.Historical.Years, 1)
	assert.Equal(t, 80.0, *rep.Historical.Years[0].Temperatures[0])
}

func TestReportUsesOneModelSnapshot(t *testing.T) {
	first := &recordingModel{names: columns}
	second := &recordingModel{names: columns}
	src := &swappingSource[model.Model]{entries: []*artifact.Entry[model.Model]{
		{Value: first, Token: time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)},
		{Value: second, Token: time.Date(2024, 6, 2, 8, 30, 0, 0, time.UTC)},
	}}

	e := newEngine(t, first, store.NewMemoryStore(time.UTC))
	e.models = src

	rep, err := e.Report(context.Background(), time.Date(2024, 7, 4, 13, 0, 0, 0, time.UTC), 60)
	require.NoError(t, err)

	assert.Len(t, rep.Predictions, Horizon)
	assert.Equal(t, 1, src.gets)
	assert.Len(t, first.inputs, Horizon)
	assert.Empty(t, second.inputs)
}

func TestHistoricalFailureIsTyped(t *testing.T) {
	e := newEngine(t, &recordingModel{names: columns}, store.NewMemoryStore(time.UTC))

	r := e.Historical(time.Now())
	assert.Equal(t, history.StatusEmpty, r.Status)

	e.archive = staticSource[*history.Archive]{err: errors.New("archive corrupt")}
	r = e.Historical(time.Now())
	assert.Equal(t, history.StatusFailed, r.Status)
	assert.Equal(t, "archive corrupt", r.Reason)
}
