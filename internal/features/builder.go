package features

import (
	"math"
	"time"
)

// Vector is an immutable, ordered feature vector. Missing values are NaN.
type Vector struct {
	names  []string
	values []float64
}

// Names returns the feature names in model order.
func (v Vector) Names() []string {
	return append([]string(nil), v.names...)
}

// Values returns a copy of the feature values in model order.
func (v Vector) Values() []float64 {
	return append([]float64(nil), v.values...)
}

// Len is the number of features.
func (v Vector) Len() int {
	return len(v.values)
}

// Value returns the named feature; ok is false when the name is not in the
// vector or its value is missing.
func (v Vector) Value(name string) (float64, bool) {
	for i, n := range v.names {
		if n == name {
			if math.IsNaN(v.values[i]) {
				return 0, false
			}
			return v.values[i], true
		}
	}
	return 0, false
}

// Map renders the vector with nil for missing values.
func (v Vector) Map() map[string]*float64 {
	out := make(map[string]*float64, len(v.names))
	for i, n := range v.names {
		if math.IsNaN(v.values[i]) {
			out[n] = nil
			continue
		}
		val := v.values[i]
		out[n] = &val
	}
	return out
}

// Build computes the vector for t. Calendar fields and the days-since
// feature use t's wall clock. lags[i] feeds the (i+1)-hour lag; nil or
// absent entries become NaN.
func (s *Schema) Build(t time.Time, current float64, lags []*float64) Vector {
	v := Vector{
		names:  s.names,
		values: make([]float64, len(s.columns)),
	}
	for i, c := range s.columns {
		switch c.kind {
		case kindMonth:
			v.values[i] = float64(t.Month())
		case kindDay:
			v.values[i] = float64(t.Day())
		case kindHour:
			v.values[i] = float64(t.Hour())
		case kindDaysSince:
			v.values[i] = s.DaysSinceReference(t)
		case kindTemp:
			v.values[i] = current
		case kindLag:
			v.values[i] = math.NaN()
			if c.lag <= len(lags) && lags[c.lag-1] != nil {
				v.values[i] = *lags[c.lag-1]
			}
		}
	}
	return v
}

// DaysSinceReference is the fractional number of days between the
// reference date and t's wall clock.
func (s *Schema) DaysSinceReference(t time.Time) float64 {
	return naiveUTC(t).Sub(s.reference).Hours() / 24
}
