package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// Metrics are the held-out evaluation errors written next to the model.
// Absent values decode as nil.
type Metrics struct {
	MSE  *float64 `json:"mse"`
	RMSE *float64 `json:"rmse"`
	MAE  *float64 `json:"mae"`
}

// LoadMetrics reads the evaluation metrics JSON document.
func LoadMetrics(path string) (Metrics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metrics{}, fmt.Errorf("read metrics: %w", err)
	}
	var m Metrics
	if err := json.Unmarshal(data, &m); err != nil {
		return Metrics{}, fmt.Errorf("decode metrics %s: %w", path, err)
	}
	return m, nil
}
