package weather_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-history/internal/render"
	"github.com/i474232898/weather-history/internal/snapshot"
	"github.com/i474232898/weather-history/internal/store"
	"github.com/i474232898/weather-history/internal/weather"
	"github.com/i474232898/weather-history/internal/weather/providers"
)

const fixtureBody = `{
  "latitude": 40.710335,
  "longitude": -73.99307,
  "timezone": "America/New_York",
  "hourly_units": {"time": "iso8601", "temperature_2m": "°F"},
  "hourly": {
    "time": ["2014-01-02T00:00", "2014-01-02T01:00", "2014-01-02T02:00"],
    "temperature_2m": [29.8, 29.9, 29.9],
    "precipitation": [0, 0, 0],
    "relative_humidity_2m": [74, 74, 73],
    "dew_point_2m": [22.5, 22.7, 22.5]
  }
}`

type harness struct {
	svc    *weather.Service
	store  *store.MemoryStore
	out    weather.Outputs
	report *bytes.Buffer
}

func newHarness(t *testing.T, baseURL string, client *http.Client) harness {
	t.Helper()
	dir := t.TempDir()
	h := harness{
		store:  store.NewMemoryStore(1),
		report: &bytes.Buffer{},
		out: weather.Outputs{
			PlotPath:     filepath.Join(dir, "weather_plots.png"),
			SnapshotPath: filepath.Join(dir, "historical_weather_data.rds"),
		},
	}
	h.svc = weather.NewService(weather.Deps{
		Fetcher:   providers.NewOpenMeteoArchive(client, baseURL),
		Renderer:  render.NewPNG(),
		Persister: snapshot.NewArrow(),
		Store:     h.store,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Report:    h.report,
	}, weather.DefaultQuery(), h.out, true)
	return h
}

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func assertNoOutputs(t *testing.T, out weather.Outputs) {
	t.Helper()
	assert.NoFileExists(t, out.PlotPath)
	assert.NoFileExists(t, out.SnapshotPath)
}

func TestRunEndToEnd(t *testing.T) {
	srv := serve(t, http.StatusOK, fixtureBody)
	h := newHarness(t, srv.URL, srv.Client())

	res, err := h.svc.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	require.Equal(t, 3, res.Table.Len())
	assert.True(t, res.Completion.OK())
	assert.FileExists(t, h.out.PlotPath)
	assert.FileExists(t, h.out.SnapshotPath)
	assert.Equal(t, "All steps completed successfully!\n", h.report.String())

	loaded, err := snapshot.NewArrow().Load(h.out.SnapshotPath)
	require.NoError(t, err)
	assert.Equal(t, res.Table.Temperature, loaded.Temperature)
	assert.Equal(t, "America/New_York", loaded.Time[0].Location().String())

	latest, err := h.store.GetLatest(weather.DefaultQuery().Location)
	require.NoError(t, err)
	assert.Same(t, res.Table, latest)
}

func TestRunAcrossDaylightSaving(t *testing.T) {
	const hourly = `"hourly": {
    "time": ["2014-03-09T00:00", "2014-03-09T01:00", "2014-03-09T02:00", "2014-03-09T03:00", "2014-03-09T04:00"],
    "temperature_2m": [31.2, 30.9, 30.4, 30.1, 29.8],
    "precipitation": [0, 0, 0.1, 0, 0],
    "relative_humidity_2m": [61, 62, 64, 66, 67],
    "dew_point_2m": [19.4, 19.5, 19.9, 20.1, 20.0]
  }`
	bodies := map[string]string{
		"fixed offset": `{"timezone": "America/New_York", "utc_offset_seconds": -18000, ` + hourly + `}`,
		"civil times":  `{"timezone": "America/New_York", ` + hourly + `}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := serve(t, http.StatusOK, body)
			h := newHarness(t, srv.URL, srv.Client())

			res, err := h.svc.Run(context.Background())
			require.NoError(t, err)
			require.Equal(t, 5, res.Table.Len())
			for i := 1; i < res.Table.Len(); i++ {
				assert.True(t, res.Table.Time[i].After(res.Table.Time[i-1]), "row %d", i)
			}
			assert.True(t, res.Completion.OK())
			assert.FileExists(t, h.out.PlotPath)
			assert.FileExists(t, h.out.SnapshotPath)

			loaded, err := snapshot.NewArrow().Load(h.out.SnapshotPath)
			require.NoError(t, err)
			require.Equal(t, 5, loaded.Len())
			assert.Equal(t, "America/New_York", loaded.Location.String())
			for i := range loaded.Time {
				assert.True(t, loaded.Time[i].Equal(res.Table.Time[i]), "row %d", i)
			}
		})
	}
}

func TestRunStatusError(t *testing.T) {
	srv := serve(t, http.StatusNotFound, `{"error":true}`)
	h := newHarness(t, srv.URL, srv.Client())

	_, err := h.svc.Run(context.Background())
	var se *weather.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 404, se.Code)
	assert.Contains(t, err.Error(), "404")
	assertNoOutputs(t, h.out)
	assert.Empty(t, h.report.String())
}

func TestRunTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	h := newHarness(t, url, &http.Client{})

	_, err := h.svc.Run(context.Background())
	var te *weather.TransportError
	require.ErrorAs(t, err, &te)
	assertNoOutputs(t, h.out)
}

func TestRunSchemaError(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"latitude": 40.7, "daily": {}}`)
	h := newHarness(t, srv.URL, srv.Client())

	_, err := h.svc.Run(context.Background())
	var se *weather.SchemaError
	require.ErrorAs(t, err, &se)
	assert.True(t, errors.Is(err, weather.ErrUnexpectedFormat))
	assertNoOutputs(t, h.out)
}

func TestRunIntegrityError(t *testing.T) {
	body := `{"hourly": {
	  "time": ["2014-01-02T00:00", "2014-01-02T01:00"],
	  "temperature_2m": [29.8, 29.9],
	  "precipitation": [0],
	  "relative_humidity_2m": [74, 74],
	  "dew_point_2m": [22.5, 22.7]
	}}`
	srv := serve(t, http.StatusOK, body)
	h := newHarness(t, srv.URL, srv.Client())

	_, err := h.svc.Run(context.Background())
	var ie *weather.IntegrityError
	require.ErrorAs(t, err, &ie)
	assertNoOutputs(t, h.out)
}

type failingRenderer struct{}

func (failingRenderer) Render(*weather.Table, string) error { return errors.New("no canvas") }

func TestRunReportsMissingImage(t *testing.T) {
	srv := serve(t, http.StatusOK, fixtureBody)
	dir := t.TempDir()
	out := weather.Outputs{
		PlotPath:     filepath.Join(dir, "weather_plots.png"),
		SnapshotPath: filepath.Join(dir, "historical_weather_data.rds"),
	}
	var report bytes.Buffer
	svc := weather.NewService(weather.Deps{
		Fetcher:   providers.NewOpenMeteoArchive(srv.Client(), srv.URL),
		Renderer:  failingRenderer{},
		Persister: snapshot.NewArrow(),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Report:    &report,
	}, weather.DefaultQuery(), out, false)

	res, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Completion.OK())
	assert.Equal(t, []string{out.PlotPath}, res.Completion.Missing)
	assert.Equal(t, "The following files are missing:\n"+out.PlotPath+"\n", report.String())

	_, statErr := os.Stat(out.SnapshotPath)
	assert.NoError(t, statErr)
}
