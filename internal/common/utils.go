package common

import "strings"

// unitPrefixes are the namespaces upstream APIs put in front of unit codes.
var unitPrefixes = []string{"wmounit:", "unit:", "°"}

// UnitToken lower-cases a unit code and strips namespaces and the degree
// sign, so "wmoUnit:degC", " °C" and "unit:DegC" all become "degc" or "c".
func UnitToken(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	for _, p := range unitPrefixes {
		u = strings.TrimPrefix(u, p)
	}
	return u
}

// MatchesUnit reports whether token is one of the short codes or contains
// one of the long spellings.
func MatchesUnit(token string, codes []string, spellings ...string) bool {
	for _, c := range codes {
		if token == c {
			return true
		}
	}
	for _, s := range spellings {
		if strings.Contains(token, s) {
			return true
		}
	}
	return false
}
