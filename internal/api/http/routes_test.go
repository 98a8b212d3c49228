package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-history/internal/archive"
	"github.com/i474232898/weather-history/internal/store"
	"github.com/i474232898/weather-history/internal/weather"
)

var testStart = time.Date(2014, 1, 2, 5, 0, 0, 0, time.UTC)

func newTestApp(t *testing.T, withData bool, plotPath string) *fiber.App {
	t.Helper()
	app := fiber.New()
	memStore := store.NewMemoryStore(1)
	loc := weather.DefaultQuery().Location

	if withData {
		times := []time.Time{testStart, testStart.Add(time.Hour), testStart.Add(2 * time.Hour)}
		table, err := weather.NewTable(time.UTC, times,
			[]float64{29.8, 29.9, 29.9},
			[]float64{0, math.NaN(), 0},
			[]float64{74, 74, 73},
			[]float64{22.5, 22.7, 22.5},
		)
		if err != nil {
			t.Fatalf("NewTable: %v", err)
		}
		memStore.SaveTable(loc, table)
	}

	RegisterRoutes(app, memStore, Options{Location: loc, PlotPath: plotPath})
	return app
}

// TestHourlyValidation verifies the range query parameters are required and ordered.
func TestHourlyValidation(t *testing.T) {
	app := newTestApp(t, true, "")

	cases := []string{
		"/api/v1/weather/hourly",
		"/api/v1/weather/hourly?from=2014-01-02T00:00:00Z",
		"/api/v1/weather/hourly?from=yesterday&to=today",
		"/api/v1/weather/hourly?from=2014-01-03T00:00:00Z&to=2014-01-02T00:00:00Z",
	}
	for _, target := range cases {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected status %d, got %d", target, http.StatusBadRequest, resp.StatusCode)
		}
	}
}

func TestHourlyReturnsRowsInRange(t *testing.T) {
	app := newTestApp(t, true, "")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/weather/hourly?from=2014-01-02T06:00:00Z&to=1388649600", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var body struct {
		Rows []map[string]any `json:"rows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(body.Rows))
	}
	if body.Rows[0]["precipitation"] != nil {
		t.Fatalf("expected null precipitation for gap, got %v", body.Rows[0]["precipitation"])
	}
}

func TestHourlyNotFound(t *testing.T) {
	app := newTestApp(t, false, "")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/weather/hourly?from=2014-01-02T00:00:00Z&to=2014-01-03T00:00:00Z", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestSummary(t *testing.T) {
	app := newTestApp(t, true, "")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/weather/summary", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var s weather.Summary
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Rows != 3 {
		t.Fatalf("expected 3 rows, got %d", s.Rows)
	}
	if got := s.Columns[weather.ColPrecipitation].Count; got != 2 {
		t.Fatalf("expected 2 non-gap precipitation values, got %d", got)
	}
	if got := s.Columns[weather.ColRelativeHumidity].Min; got != 73 {
		t.Fatalf("expected humidity min 73, got %v", got)
	}
}

func TestPlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weather_plots.png")

	app := newTestApp(t, true, path)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/weather/plot", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d before render, got %d", http.StatusNotFound, resp.StatusCode)
	}

	if err := os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n"), 0o644); err != nil {
		t.Fatalf("write plot: %v", err)
	}
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/weather/plot", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	b, _ := io.ReadAll(resp.Body)
	if len(b) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(b))
	}
}

func newArchivedApp(t *testing.T) *fiber.App {
	t.Helper()
	loc := weather.DefaultQuery().Location

	db, err := archive.Open(":memory:")
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	repo := archive.NewRepository(db)

	older := testStart.Add(-24 * time.Hour)
	archived, err := weather.NewTable(time.UTC,
		[]time.Time{older, older.Add(time.Hour)},
		[]float64{25.1, 24.8},
		[]float64{0, 0},
		[]float64{80, 81},
		[]float64{20.2, 20.0},
	)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	if err := repo.SaveTable(context.Background(), loc, archived); err != nil {
		t.Fatalf("archive table: %v", err)
	}

	latest, err := weather.NewTable(time.UTC,
		[]time.Time{testStart, testStart.Add(time.Hour)},
		[]float64{29.8, 29.9},
		[]float64{0, 0},
		[]float64{74, 74},
		[]float64{22.5, 22.7},
	)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	memStore := store.NewMemoryStore(1)
	memStore.SaveTable(loc, latest)

	app := fiber.New()
	RegisterRoutes(app, memStore, Options{Location: loc, Archive: repo})
	return app
}

func TestHourlyFallsBackToArchive(t *testing.T) {
	app := newArchivedApp(t)

	cases := []struct {
		target string
		source string
		first  float64
	}{
		{"/api/v1/weather/hourly?from=2014-01-01T05:00:00Z&to=2014-01-01T07:00:00Z", "archive", 25.1},
		{"/api/v1/weather/hourly?from=2014-01-02T05:00:00Z&to=2014-01-02T07:00:00Z", "memory", 29.8},
	}
	for _, tc := range cases {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, tc.target, nil))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: expected status %d, got %d", tc.target, http.StatusOK, resp.StatusCode)
		}

		var body struct {
			Source string           `json:"source"`
			Rows   []map[string]any `json:"rows"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Source != tc.source {
			t.Fatalf("%s: expected source %q, got %q", tc.target, tc.source, body.Source)
		}
		if len(body.Rows) != 2 {
			t.Fatalf("%s: expected 2 rows, got %d", tc.target, len(body.Rows))
		}
		if got := body.Rows[0]["temperature"]; got != tc.first {
			t.Fatalf("%s: expected first temperature %v, got %v", tc.target, tc.first, got)
		}
	}
}

func TestSummaryReportsArchivedRows(t *testing.T) {
	app := newArchivedApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/weather/summary", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var body struct {
		Rows         int `json:"rows"`
		ArchivedRows int `json:"archived_rows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Rows != 2 || body.ArchivedRows != 2 {
		t.Fatalf("expected 2 loaded and 2 archived rows, got %d and %d", body.Rows, body.ArchivedRows)
	}
}
