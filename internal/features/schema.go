// Package features turns a timestamp, a temperature and its lags into the
// ordered vector the model was trained on.
package features

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Column names shared with the training pipeline.
const (
	ColMonth = "ft_month"
	ColDay   = "ft_day"
	ColHour  = "ft_hour"
	ColTemp  = "ft_temp"

	daysSincePrefix = "ft_days_since_"
	lagPrefix       = "ft_temp_lag_"
	lagSuffix       = "h"
)

// LagColumn returns the column name of the i-th hour lag.
func LagColumn(i int) string {
	return lagPrefix + strconv.Itoa(i) + lagSuffix
}

type kind int

const (
	kindMonth kind = iota
	kindDay
	kindHour
	kindDaysSince
	kindTemp
	kindLag
)

type column struct {
	name string
	kind kind
	lag  int
}

// Schema is the validated feature layout.
type Schema struct {
	columns   []column
	names     []string
	numLags   int
	reference time.Time
}

// NewSchema validates columns against the known feature kinds. Every lag
// column must be within numLags.
func NewSchema(columns []string, numLags int, reference time.Time) (*Schema, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("no feature columns configured")
	}
	if numLags < 0 {
		return nil, fmt.Errorf("num_lags must not be negative, got %d", numLags)
	}

	s := &Schema{
		numLags:   numLags,
		reference: naiveUTC(reference),
		names:     append([]string(nil), columns...),
	}
	seen := make(map[string]bool, len(columns))
	for _, name := range columns {
		if seen[name] {
			return nil, fmt.Errorf("duplicate feature column %q", name)
		}
		seen[name] = true

		c, err := parseColumn(name, numLags)
		if err != nil {
			return nil, err
		}
		s.columns = append(s.columns, c)
	}
	return s, nil
}

func parseColumn(name string, numLags int) (column, error) {
	switch {
	case name == ColMonth:
		return column{name: name, kind: kindMonth}, nil
	case name == ColDay:
		return column{name: name, kind: kindDay}, nil
	case name == ColHour:
		return column{name: name, kind: kindHour}, nil
	case name == ColTemp:
		return column{name: name, kind: kindTemp}, nil
	case strings.HasPrefix(name, daysSincePrefix):
		return column{name: name, kind: kindDaysSince}, nil
	case strings.HasPrefix(name, lagPrefix) && strings.HasSuffix(name, lagSuffix):
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, lagPrefix), lagSuffix))
		if err != nil || n < 1 {
			return column{}, fmt.Errorf("invalid lag column %q", name)
		}
		if n > numLags {
			return column{}, fmt.Errorf("lag column %q exceeds num_lags %d", name, numLags)
		}
		return column{name: name, kind: kindLag, lag: n}, nil
	default:
		return column{}, fmt.Errorf("unknown feature column %q", name)
	}
}

// Columns returns the feature names in model order.
func (s *Schema) Columns() []string {
	return append([]string(nil), s.names...)
}

// NumLags is how many hourly lags the builder consumes.
func (s *Schema) NumLags() int {
	return s.numLags
}

// Reference is the date days-since features count from.
func (s *Schema) Reference() time.Time {
	return s.reference
}

// naiveUTC keeps t's wall clock and drops its zone.
func naiveUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
