package features

import (
	"fmt"
	"time"
)

// ValidationError reports an out-of-range calendar input.
type ValidationError struct {
	Field string
	Value int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %d", e.Field, e.Value)
}

// ValidateCalendar checks month 1-12, day within the month of year, and
// hour 0-23.
func ValidateCalendar(year, month, day, hour int) error {
	if month < 1 || month > 12 {
		return &ValidationError{Field: "month", Value: month}
	}
	if day < 1 || day > daysIn(year, time.Month(month)) {
		return &ValidationError{Field: "day", Value: day}
	}
	if hour < 0 || hour > 23 {
		return &ValidationError{Field: "hour", Value: hour}
	}
	return nil
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
