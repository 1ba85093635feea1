package features

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reference = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

func ptr(v float64) *float64 { return &v }

func lagSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := NewSchema([]string{
		ColMonth, ColDay, ColHour, "ft_days_since_2000", ColTemp,
		LagColumn(1), LagColumn(2), LagColumn(3),
	}, 3, reference)
	require.NoError(t, err)
	return s
}

func TestBuildOrdersBySchema(t *testing.T) {
	s := lagSchema(t)
	ts := time.Date(2024, 7, 4, 13, 0, 0, 0, time.UTC)

	v := s.Build(ts, 51, []*float64{ptr(50), ptr(49), ptr(48.5)})

	assert.Equal(t, s.Columns(), v.Names())
	values := v.Values()
	assert.Equal(t, 7.0, values[0])
	assert.Equal(t, 4.0, values[1])
	assert.Equal(t, 13.0, values[2])
	assert.Equal(t, 51.0, values[4])
	assert.Equal(t, []float64{50, 49, 48.5}, values[5:])
}

func TestBuildMissingLagsAreNaN(t *testing.T) {
	s := lagSchema(t)
	v := s.Build(time.Now(), 40, []*float64{ptr(39), nil})

	values := v.Values()
	assert.Equal(t, 39.0, values[5])
	assert.True(t, math.IsNaN(values[6]))
	assert.True(t, math.IsNaN(values[7]), "lag beyond supplied slice")

	m := v.Map()
	assert.Nil(t, m[LagColumn(2)])
	require.NotNil(t, m[LagColumn(1)])
	assert.Equal(t, 39.0, *m[LagColumn(1)])

	_, ok := v.Value(LagColumn(3))
	assert.False(t, ok)
}

func TestDaysSinceReferenceKeepsFraction(t *testing.T) {
	s := lagSchema(t)

	assert.Equal(t, 0.5, s.DaysSinceReference(time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)))
	assert.InDelta(t, 1.0+1.0/24/60, s.DaysSinceReference(time.Date(2000, 1, 2, 0, 1, 0, 0, time.UTC)), 1e-12)

	// Wall clock counts, not the instant.
	est := time.FixedZone("EST", -5*3600)
	assert.Equal(t, 0.5, s.DaysSinceReference(time.Date(2000, 1, 1, 12, 0, 0, 0, est)))
}

func TestCalendarUsesWallClock(t *testing.T) {
	s := lagSchema(t)
	est := time.FixedZone("EST", -5*3600)
	ts := time.Date(2024, 12, 31, 23, 0, 0, 0, est)

	v := s.Build(ts, 0, nil)
	month, _ := v.Value(ColMonth)
	hour, _ := v.Value(ColHour)
	assert.Equal(t, 12.0, month)
	assert.Equal(t, 23.0, hour)
}

func TestNewSchemaRejectsBadColumns(t *testing.T) {
	cases := map[string][]string{
		"unknown":      {ColMonth, "ft_humidity"},
		"lag too deep": {ColTemp, LagColumn(4)},
		"bad lag":      {"ft_temp_lag_xh"},
		"duplicate":    {ColHour, ColHour},
		"zero lag":     {LagColumn(0)},
	}
	for name, cols := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewSchema(cols, 3, reference)
			assert.Error(t, err)
		})
	}

	_, err := NewSchema(nil, 0, reference)
	assert.Error(t, err)
}

func TestLegacyFourFeatureSchema(t *testing.T) {
	s, err := NewSchema([]string{ColMonth, ColDay, ColHour, ColTemp}, 0, reference)
	require.NoError(t, err)

	v := s.Build(time.Date(2024, 2, 29, 6, 0, 0, 0, time.UTC), 30, nil)
	assert.Equal(t, []float64{2, 29, 6, 30}, v.Values())
}

func TestValidateCalendar(t *testing.T) {
	require.NoError(t, ValidateCalendar(2024, 2, 29, 23))

	cases := []struct {
		year, month, day, hour int
		field                  string
		value                  int
	}{
		{2024, 13, 1, 0, "month", 13},
		{2024, 0, 1, 0, "month", 0},
		{2023, 2, 29, 0, "day", 29},
		{2024, 4, 31, 0, "day", 31},
		{2024, 1, 1, 24, "hour", 24},
		{2024, 1, 1, -1, "hour", -1},
	}
	for _, tc := range cases {
		err := ValidateCalendar(tc.year, tc.month, tc.day, tc.hour)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, tc.field, ve.Field)
		assert.Equal(t, tc.value, ve.Value)
	}
}
