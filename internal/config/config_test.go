package config

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-history/internal/weather"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 60*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, weather.DefaultQuery().Values(), cfg.Query().Values())

	out := cfg.Outputs()
	assert.Equal(t, "weather_plots.png", out.PlotPath)
	assert.Equal(t, "historical_weather_data.rds", out.SnapshotPath)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("WEATHER_LATITUDE", "51.5072")
	t.Setenv("WEATHER_LONGITUDE", "-0.1276")
	t.Setenv("WEATHER_TIMEZONE", "Europe/London")
	t.Setenv("OUTPUT_DIR", "/tmp/out")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("REFRESH_INTERVAL", "24h")

	cfg, err := Load()
	require.NoError(t, err)

	q := cfg.Query()
	assert.Equal(t, 51.5072, q.Location.Latitude)
	assert.Equal(t, "Europe/London", q.Timezone)
	assert.Equal(t, filepath.Join("/tmp/out", "weather_plots.png"), cfg.Outputs().PlotPath)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 24*time.Hour, cfg.RefreshInterval)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"latitude out of range", "WEATHER_LATITUDE", "91"},
		{"latitude not a number", "WEATHER_LATITUDE", "north"},
		{"bad start date", "WEATHER_START_DATE", "2014/01/02"},
		{"end before start", "WEATHER_END_DATE", "2010-01-01"},
		{"unknown unit", "WEATHER_TEMPERATURE_UNIT", "kelvin"},
		{"unknown timezone", "WEATHER_TIMEZONE", "Mars/Olympus"},
		{"bad timeout", "HTTP_TIMEOUT", "soon"},
		{"bad env", "APP_ENV", "staging"},
		{"bad log level", "LOG_LEVEL", "chatty"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
