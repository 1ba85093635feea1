// Package explain turns raw per-feature model contributions into
// normalized, human-readable attributions.
package explain

import (
	"math"
	"sort"
	"strings"

	"github.com/i474232898/weather-forecast/internal/features"
)

// Contribution is one feature's share of a prediction.
type Contribution struct {
	Feature    string  `json:"feature"`
	Percentage float64 `json:"percentage"`
	Value      float64 `json:"shap_value"`
}

// Result is the attribution for one feature vector, sorted by descending
// percentage.
type Result struct {
	Contributions []Contribution `json:"contributions"`
	BaseValue     float64        `json:"base_value"`
}

var displayNames = map[string]string{
	features.ColMonth: "Month",
	features.ColDay:   "Day",
	features.ColHour:  "Hour",
	features.ColTemp:  "Current Temp",
}

// DisplayName maps a feature column to its dashboard label. Unknown names
// are returned unchanged.
func DisplayName(column string) string {
	if name, ok := displayNames[column]; ok {
		return name
	}
	if rest, ok := strings.CutPrefix(column, "ft_days_since_"); ok && rest != "" {
		return "Days Since " + rest
	}
	if rest, ok := strings.CutPrefix(column, "ft_temp_lag_"); ok && strings.HasSuffix(rest, "h") {
		return "Temp Lag " + rest
	}
	return column
}

// Normalize converts signed contributions into percentages of the total
// absolute contribution. When the total is zero every percentage is zero.
func Normalize(names []string, values []float64, base float64) Result {
	total := 0.0
	for _, v := range values {
		total += math.Abs(v)
	}

	out := make([]Contribution, len(values))
	for i, v := range values {
		name := ""
		if i < len(names) {
			name = names[i]
		}
		pct := 0.0
		if total > 0 {
			pct = math.Abs(v) / total * 100
		}
		out[i] = Contribution{
			Feature:    DisplayName(name),
			Percentage: pct,
			Value:      v,
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Percentage > out[j].Percentage
	})

	return Result{Contributions: out, BaseValue: base}
}

// Top returns at most n leading contributions.
func (r Result) Top(n int) []Contribution {
	if n >= len(r.Contributions) {
		return r.Contributions
	}
	return r.Contributions[:n]
}
