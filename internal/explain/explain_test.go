package explain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSumsToHundred(t *testing.T) {
	names := []string{"ft_month", "ft_hour", "ft_temp", "ft_temp_lag_1h"}
	r := Normalize(names, []float64{0.5, -2.0, 1.25, -0.25}, 55.1)

	sum := 0.0
	for _, c := range r.Contributions {
		assert.GreaterOrEqual(t, c.Percentage, 0.0)
		sum += c.Percentage
	}
	assert.InDelta(t, 100.0, sum, 1e-6)
	assert.Equal(t, 55.1, r.BaseValue)

	require.Len(t, r.Contributions, 4)
	assert.Equal(t, "Hour", r.Contributions[0].Feature)
	assert.Equal(t, -2.0, r.Contributions[0].Value)
	assert.InDelta(t, 50.0, r.Contributions[0].Percentage, 1e-9)
	assert.Equal(t, "Current Temp", r.Contributions[1].Feature)
	assert.Equal(t, "Temp Lag 1h", r.Contributions[3].Feature)
}

func TestNormalizeAllZero(t *testing.T) {
	r := Normalize([]string{"ft_month", "ft_day"}, []float64{0, 0}, 1)
	for _, c := range r.Contributions {
		assert.Zero(t, c.Percentage)
	}
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Days Since 2000", DisplayName("ft_days_since_2000"))
	assert.Equal(t, "Temp Lag 12h", DisplayName("ft_temp_lag_12h"))
	assert.Equal(t, "Day", DisplayName("ft_day"))
	assert.Equal(t, "ft_humidity", DisplayName("ft_humidity"))
}

func TestTop(t *testing.T) {
	r := Normalize([]string{"a", "b", "c"}, []float64{1, 3, 2}, 0)
	top := r.Top(2)
	require.Len(t, top, 2)
	assert.Equal(t, "b", top[0].Feature)
	assert.Equal(t, "c", top[1].Feature)
	assert.Len(t, r.Top(10), 3)
}
