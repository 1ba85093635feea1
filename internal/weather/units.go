package weather

import (
	"errors"
	"fmt"

	"github.com/i474232898/weather-forecast/internal/common"
)

// ErrUnknownUnit is returned for temperature units that cannot be converted.
var ErrUnknownUnit = errors.New("unexpected temperature unit")

// ToFahrenheit converts value expressed in unit to Fahrenheit.
// Accepted spellings include "F", "C", "degC", "wmoUnit:degF" and "°C".
func ToFahrenheit(value float64, unit string) (float64, error) {
	u := common.UnitToken(unit)

	switch {
	case common.MatchesUnit(u, []string{"f"}, "degf", "fahrenheit"):
		return value, nil
	case common.MatchesUnit(u, []string{"c"}, "degc", "celsius"):
		return value*9/5 + 32, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, unit)
	}
}
