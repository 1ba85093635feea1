package history

import (
	"fmt"
	"time"

	"github.com/i474232898/weather-forecast/internal/weather"
)

// Status classifies a comparison outcome.
type Status string

const (
	StatusOK     Status = "ok"
	StatusEmpty  Status = "empty"
	StatusFailed Status = "failed"
)

// YearSeries holds one prior year's temperatures for each forecast hour.
// Hours absent from the archive are nil.
type YearSeries struct {
	Year         int        `json:"year"`
	Temperatures []*float64 `json:"temperatures"`
}

// Result is the typed comparison outcome. Reason explains empty and
// failed results.
type Result struct {
	Status Status       `json:"status"`
	Reason string       `json:"reason,omitempty"`
	Years  []YearSeries `json:"years"`
}

// Failed builds a failed result.
func Failed(err error) Result {
	return Result{Status: StatusFailed, Reason: err.Error(), Years: []YearSeries{}}
}

// Compare returns, for up to numYears archive years before start's year,
// the temperatures at the same month, day and hour as each of the hours
// start+0h ... start+(hours-1)h, using start's wall clock.
func (a *Archive) Compare(start time.Time, hours, numYears int) Result {
	var years []int
	for _, y := range a.years {
		if y < start.Year() {
			years = append(years, y)
		}
		if len(years) == numYears {
			break
		}
	}
	if len(years) == 0 {
		return Result{
			Status: StatusEmpty,
			Reason: fmt.Sprintf("no archive years before %d", start.Year()),
			Years:  []YearSeries{},
		}
	}

	out := make([]YearSeries, 0, len(years))
	for _, y := range years {
		series := YearSeries{Year: y, Temperatures: make([]*float64, hours)}
		for i := 0; i < hours; i++ {
			ts := start.Add(time.Duration(i) * time.Hour)
			k := weather.HourKey{Year: y, Month: ts.Month(), Day: ts.Day(), Hour: ts.Hour()}
			if v, ok := a.temps[k]; ok {
				series.Temperatures[i] = &v
			}
		}
		out = append(out, series)
	}
	return Result{Status: StatusOK, Years: out}
}
