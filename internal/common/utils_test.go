package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnitToken(t *testing.T) {
	assert.Equal(t, "degc", UnitToken("wmoUnit:degC"))
	assert.Equal(t, "c", UnitToken(" °C "))
	assert.Equal(t, "degf", UnitToken("unit:DegF"))
	assert.Equal(t, "kelvin", UnitToken("Kelvin"))
}

func TestMatchesUnit(t *testing.T) {
	assert.True(t, MatchesUnit("f", []string{"f"}, "degf"))
	assert.True(t, MatchesUnit("degf", []string{"f"}, "degf", "fahrenheit"))
	assert.False(t, MatchesUnit("k", []string{"f", "c"}, "degf"))
}
