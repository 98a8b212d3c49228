package httpapi

import (
	"context"
	"errors"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-history/internal/store"
	"github.com/i474232898/weather-history/internal/weather"
)

var validate = validator.New()

// Archive is the long-term row archive consulted for ranges the loaded table
// does not cover.
type Archive interface {
	Table(ctx context.Context, loc weather.Location, from, to time.Time) (*weather.Table, error)
	Count(ctx context.Context, loc weather.Location) (int, error)
}

// Options tells the routes which location and plot file they serve.
// Archive may be nil.
type Options struct {
	Location weather.Location
	PlotPath string
	Archive  Archive
}

const (
	sourceMemory  = "memory"
	sourceArchive = "archive"
)

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, st weather.Store, opts Options) {
	v1 := app.Group("/api/v1")

	v1.Get("/weather/hourly", func(c *fiber.Ctx) error {
		var req hourlyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		rows, source, err := hourlyRows(c.UserContext(), st, opts, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather history for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather history")
		}

		return c.JSON(fiber.Map{
			"location": opts.Location,
			"from":     req.From,
			"to":       req.To,
			"source":   source,
			"rows":     toRowResponses(rows),
		})
	})

	v1.Get("/weather/summary", func(c *fiber.Ctx) error {
		table, err := st.GetLatest(opts.Location)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather data loaded")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
		}
		resp := summaryResponse{Summary: weather.Summarize(opts.Location, table)}
		if opts.Archive != nil {
			n, err := opts.Archive.Count(c.UserContext(), opts.Location)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "failed to count archived rows")
			}
			resp.ArchivedRows = &n
		}
		return c.JSON(resp)
	})

	v1.Get("/weather/plot", func(c *fiber.Ctx) error {
		if _, err := os.Stat(opts.PlotPath); err != nil {
			return fiber.NewError(fiber.StatusNotFound, "plot has not been rendered")
		}
		c.Type("png")
		return c.SendFile(opts.PlotPath)
	})
}

// hourlyRows serves the range from the loaded table, or from the archive when
// the range starts before the table does.
func hourlyRows(ctx context.Context, st weather.Store, opts Options, from, to time.Time) ([]weather.Row, string, error) {
	if opts.Archive != nil {
		latest, err := st.GetLatest(opts.Location)
		if err != nil || latest.Len() == 0 || from.Before(latest.Time[0]) {
			table, err := opts.Archive.Table(ctx, opts.Location, from, to)
			if err != nil {
				return nil, sourceArchive, err
			}
			if rows := table.Rows(from, to); len(rows) > 0 {
				return rows, sourceArchive, nil
			}
		}
	}
	rows, err := st.GetRange(opts.Location, from, to)
	return rows, sourceMemory, err
}

type summaryResponse struct {
	weather.Summary
	ArchivedRows *int `json:"archived_rows,omitempty"`
}

// rowResponse is a table row with gaps encoded as null.
type rowResponse struct {
	Time             time.Time `json:"time"`
	Temperature      *float64  `json:"temperature"`
	Precipitation    *float64  `json:"precipitation"`
	RelativeHumidity *float64  `json:"relative_humidity"`
	DewPoint         *float64  `json:"dew_point"`
}

func toRowResponses(rows []weather.Row) []rowResponse {
	out := make([]rowResponse, len(rows))
	for i, r := range rows {
		out[i] = rowResponse{
			Time:             r.Time,
			Temperature:      present(r.Temperature),
			Precipitation:    present(r.Precipitation),
			RelativeHumidity: present(r.RelativeHumidity),
			DewPoint:         present(r.DewPoint),
		}
	}
	return out
}

func present(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

// hourlyQuery holds query parameters for the hourly endpoint.
type hourlyQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *hourlyQuery) bind(c *fiber.Ctx) error {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
