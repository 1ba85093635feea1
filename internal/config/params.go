package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/i474232898/weather-forecast/internal/features"
)

// paramsEnvPrefix lets deployments override single parameters, e.g.
// WEATHER_PARAM_DATA_ENGINEERING__NUM_LAGS=3 -> data_engineering.num_lags.
const paramsEnvPrefix = "WEATHER_PARAM_"

var referenceLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// Parameters are the training pipeline parameters the serving side must
// agree with.
type Parameters struct {
	DataEngineering struct {
		NumLags       int    `koanf:"num_lags" validate:"gte=0,lte=168"`
		ReferenceDate string `koanf:"reference_date" validate:"required"`
	} `koanf:"data_engineering"`

	DataScience struct {
		FeatureColumns []string `koanf:"feature_columns" validate:"required,min=1,dive,required"`
		TargetColumn   string   `koanf:"target_column"`
	} `koanf:"data_science"`

	Dashboard struct {
		Latitude  *float64 `koanf:"latitude"`
		Longitude *float64 `koanf:"longitude"`
	} `koanf:"dashboard"`
}

// LoadParameters reads the parameters YAML (relative to projectPath unless
// absolute), applies WEATHER_PARAM_* overrides and validates the result.
func LoadParameters(projectPath, file string) (*Parameters, error) {
	if !filepath.IsAbs(file) {
		file = filepath.Join(projectPath, file)
	}
	content, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read parameters: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("parse parameters %s: %w", file, err)
	}

	if err := k.Load(env.Provider(paramsEnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, paramsEnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load parameter overrides: %w", err)
	}

	var p Parameters
	if err := k.Unmarshal("", &p); err != nil {
		return nil, fmt.Errorf("decode parameters %s: %w", file, err)
	}
	if err := validate.Struct(&p); err != nil {
		return nil, fmt.Errorf("invalid parameters %s: %w", file, err)
	}
	if _, err := p.Reference(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Reference parses data_engineering.reference_date.
func (p *Parameters) Reference() (time.Time, error) {
	s := strings.TrimSpace(p.DataEngineering.ReferenceDate)
	for _, layout := range referenceLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid data_engineering.reference_date %q", s)
}

// Schema builds the validated feature layout shared with training.
func (p *Parameters) Schema() (*features.Schema, error) {
	ref, err := p.Reference()
	if err != nil {
		return nil, err
	}
	return features.NewSchema(p.DataScience.FeatureColumns, p.DataEngineering.NumLags, ref)
}
