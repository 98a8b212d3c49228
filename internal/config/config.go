package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/weather-history/internal/weather"
)

var validate = validator.New()

type AppConfig struct {
	AppEnv   string     `validate:"oneof=dev prod"`
	LogLevel slog.Level `validate:"-"`

	// ArchiveURL is the historical weather endpoint.
	ArchiveURL string `validate:"required,url"`

	Latitude        float64 `validate:"gte=-90,lte=90"`
	Longitude       float64 `validate:"gte=-180,lte=180"`
	StartDate       string  `validate:"required,datetime=2006-01-02"`
	EndDate         string  `validate:"required,datetime=2006-01-02"`
	TemperatureUnit string  `validate:"oneof=fahrenheit celsius"`
	Timezone        string  `validate:"required,timezone"`

	// Optional geocoding of the location; coordinates above win when no API key is set.
	City           string
	Country        string
	GeocoderAPIKey string

	HTTPTimeout time.Duration `validate:"gt=0"`

	OutputDir    string `validate:"required"`
	PlotFile     string `validate:"required"`
	SnapshotFile string `validate:"required"`

	// ArchiveDBPath enables the sqlite archive when non-empty.
	ArchiveDBPath string

	// DebugPayload logs a preview of the decoded response.
	DebugPayload bool

	Port string `validate:"required,numeric"`

	// RefreshInterval re-runs the pipeline in serve mode (0 = never).
	RefreshInterval time.Duration `validate:"gte=0"`

	// StoreMaxHistory caps tables kept in memory per location (0 = unlimited).
	StoreMaxHistory int `validate:"gte=0"`
}

// Load reads configuration from environment with defaults matching the
// New York 2014-2024 history.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
	cfg := &AppConfig{}
	var err error

	cfg.AppEnv = getenvDefault("APP_ENV", "dev")
	cfg.LogLevel, err = ParseLogLevel(getenvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}

	cfg.ArchiveURL = getenvDefault("ARCHIVE_API_URL", "https://archive-api.open-meteo.com/v1/archive")

	if cfg.Latitude, err = getenvFloat("WEATHER_LATITUDE", weather.DefaultLatitude); err != nil {
		return nil, err
	}
	if cfg.Longitude, err = getenvFloat("WEATHER_LONGITUDE", weather.DefaultLongitude); err != nil {
		return nil, err
	}
	cfg.StartDate = getenvDefault("WEATHER_START_DATE", weather.DefaultStartDate)
	cfg.EndDate = getenvDefault("WEATHER_END_DATE", weather.DefaultEndDate)
	cfg.TemperatureUnit = getenvDefault("WEATHER_TEMPERATURE_UNIT", weather.DefaultTemperatureUnit)
	cfg.Timezone = getenvDefault("WEATHER_TIMEZONE", weather.DefaultTimezone)

	cfg.City = os.Getenv("WEATHER_LOCATION_CITY")
	cfg.Country = os.Getenv("WEATHER_LOCATION_COUNTRY")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "60s"); err != nil {
		return nil, err
	}

	cfg.OutputDir = getenvDefault("OUTPUT_DIR", ".")
	cfg.PlotFile = getenvDefault("PLOT_FILE", "weather_plots.png")
	cfg.SnapshotFile = getenvDefault("SNAPSHOT_FILE", "historical_weather_data.rds")
	cfg.ArchiveDBPath = os.Getenv("ARCHIVE_DB_PATH")
	cfg.DebugPayload = getenvBool("DEBUG_PAYLOAD", false)

	cfg.Port = getenvDefault("PORT", "8080")
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", "0s"); err != nil {
		return nil, err
	}
	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 2)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges and formats, and that the date range is ordered.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.EndDate < c.StartDate {
		return fmt.Errorf("invalid config: WEATHER_END_DATE %s is before WEATHER_START_DATE %s", c.EndDate, c.StartDate)
	}
	return nil
}

// Query builds the archive query from the configured location and range.
func (c *AppConfig) Query() weather.Query {
	q := weather.DefaultQuery()
	q.Location = weather.Location{
		City:      c.City,
		Country:   c.Country,
		Latitude:  c.Latitude,
		Longitude: c.Longitude,
	}
	q.StartDate = c.StartDate
	q.EndDate = c.EndDate
	q.TemperatureUnit = c.TemperatureUnit
	q.Timezone = c.Timezone
	return q
}

// Outputs resolves artifact paths against OutputDir.
func (c *AppConfig) Outputs() weather.Outputs {
	return weather.Outputs{
		PlotPath:     filepath.Join(c.OutputDir, c.PlotFile),
		SnapshotPath: filepath.Join(c.OutputDir, c.SnapshotFile),
	}
}

// ParseLogLevel maps a LOG_LEVEL value to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
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

func getenvFloat(key string, def float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
