package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/weather-forecast/internal/weather"
)

var validate = validator.New()

type AppConfig struct {
	Host string
	Port string `validate:"required,numeric"`

	// ProjectPath is the training project root; parameters, catalog and
	// relative dataset paths resolve against it.
	ProjectPath    string `validate:"required"`
	ParametersFile string `validate:"required"`
	CatalogFile    string `validate:"required"`

	// FetchInterval controls how often current conditions are ingested.
	FetchInterval      time.Duration `validate:"gte=1s"`
	SchedulerEnabled   bool
	SchedulerGrace     time.Duration `validate:"gte=0"`
	SchedulerStateFile string

	HTTPTimeout       time.Duration `validate:"gt=0"`
	Providers         []string      `validate:"min=1,dive,oneof=nws openmeteo openweather"`
	NWSUserAgent      string        `validate:"required"`
	OpenWeatherAPIKey string
	GeocoderAPIKey    string

	// Location may be empty here; the parameters file and the geocoder
	// are consulted at bootstrap.
	Location weather.Location

	StoreBackend string `validate:"oneof=file postgres memory"`
	StorePath    string `validate:"required_if=StoreBackend file"`
	DatabaseURL  string `validate:"required_if=StoreBackend postgres"`

	// Timezone is the wall clock observations are keyed and features
	// computed on.
	Timezone *time.Location

	RetrainCommand string
	RetrainTimeout time.Duration

	HistoryYears int    `validate:"gte=1,lte=50"`
	LogLevel     string `validate:"oneof=debug info warn error"`

	// EnvFileLoaded reports whether a .env file was found.
	EnvFileLoaded bool
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}
	cfg.EnvFileLoaded = godotenv.Load() == nil

	var err error
	cfg.Host = getenvDefault("HOST", "0.0.0.0")
	cfg.Port = getenvDefault("PORT", "5000")

	cfg.ProjectPath = getenvDefault("PROJECT_PATH", ".")
	cfg.ParametersFile = getenvDefault("PARAMETERS_FILE", "conf/base/parameters.yml")
	cfg.CatalogFile = getenvDefault("CATALOG_FILE", "conf/base/catalog.yml")

	// Scheduler interval: default 60 minutes.
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", time.Hour); err != nil {
		return nil, err
	}
	cfg.SchedulerEnabled = getenvBool("SCHEDULER_ENABLED", true)
	if cfg.SchedulerGrace, err = getenvDuration("SCHEDULER_GRACE", 60*time.Second); err != nil {
		return nil, err
	}
	cfg.SchedulerStateFile = getenvDefault("SCHEDULER_STATE_FILE", "data/04_inference/scheduler.json")

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	cfg.Providers = splitList(getenvDefault("PROVIDERS", "nws"))
	cfg.NWSUserAgent = getenvDefault("NWS_USER_AGENT", "weather-forecast (ops@example.com)")
	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	if cfg.Location, err = loadLocation(); err != nil {
		return nil, err
	}

	cfg.StoreBackend = getenvDefault("STORE_BACKEND", "file")
	cfg.StorePath = getenvDefault("STORE_PATH", "data/04_inference/temperatures.jsonl")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	tzName := getenvDefault("TIMEZONE", "UTC")
	if cfg.Timezone, err = time.LoadLocation(tzName); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	cfg.RetrainCommand = os.Getenv("RETRAIN_COMMAND")
	if cfg.RetrainTimeout, err = getenvDuration("RETRAIN_TIMEOUT", 30*time.Minute); err != nil {
		return nil, err
	}

	cfg.HistoryYears = getenvInt("HISTORY_YEARS", 5)
	cfg.LogLevel = strings.ToLower(getenvDefault("LOG_LEVEL", "info"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints plus the rules that span fields.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	for _, p := range c.Providers {
		if p == "openweather" && c.OpenWeatherAPIKey == "" {
			return fmt.Errorf("invalid configuration: provider openweather needs OPENWEATHER_API_KEY")
		}
	}
	return nil
}

// Addr is the HTTP listen address.
func (c *AppConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// Resolve makes a path relative to the project root absolute.
func (c *AppConfig) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.ProjectPath, path)
}

func loadLocation() (weather.Location, error) {
	loc := weather.Location{
		City:    os.Getenv("WEATHER_LOCATION_CITY"),
		Country: os.Getenv("WEATHER_LOCATION_COUNTRY"),
	}

	lat, err := getenvFloat("WEATHER_LOCATION_LAT")
	if err != nil {
		return loc, err
	}
	lon, err := getenvFloat("WEATHER_LOCATION_LON")
	if err != nil {
		return loc, err
	}
	if (lat == nil) != (lon == nil) {
		return loc, fmt.Errorf("WEATHER_LOCATION_LAT and WEATHER_LOCATION_LON must be set together")
	}
	loc.Lat, loc.Lon = lat, lon
	return loc, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvFloat(key string) (*float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return &f, nil
}
