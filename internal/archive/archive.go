// Package archive keeps hourly rows in sqlite, keyed by location and hour.
package archive

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/i474232898/weather-history/internal/weather"
)

//go:embed sql/schema.sql
var schemaSQL string

//go:embed sql/upsert-hourly.sql
var upsertHourlySQL string

//go:embed sql/get-hourly.sql
var getHourlySQL string

//go:embed sql/count-hourly.sql
var countHourlySQL string

// Repository implements weather.Archiver on top of sqlite.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// SaveTable upserts every row of t in one transaction.
func (r *Repository) SaveTable(ctx context.Context, loc weather.Location, t *weather.Table) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, upsertHourlySQL)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			slog.Error("close upsert statement", "error", err)
		}
	}()

	key := loc.Key()
	for i := 0; i < t.Len(); i++ {
		row := t.Row(i)
		_, err := stmt.ExecContext(ctx,
			key,
			row.Time.Unix(),
			row.Time.Location().String(),
			nullable(row.Temperature),
			nullable(row.Precipitation),
			nullable(row.RelativeHumidity),
			nullable(row.DewPoint),
		)
		if err != nil {
			return fmt.Errorf("upsert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Count returns the number of archived rows for loc.
func (r *Repository) Count(ctx context.Context, loc weather.Location) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, countHourlySQL, loc.Key()).Scan(&n)
	return n, err
}

// Table reads the archived rows for loc in [from, to] back into a table.
func (r *Repository) Table(ctx context.Context, loc weather.Location, from, to time.Time) (*weather.Table, error) {
	rows, err := r.db.QueryContext(ctx, getHourlySQL, loc.Key(), from.Unix(), to.Unix())
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close hourly rows", "error", err)
		}
	}()

	var (
		times                 []time.Time
		temp, precip, rh, dew []float64
		zones                 = map[string]*time.Location{}
		tableZone             = from.Location()
	)
	for rows.Next() {
		var (
			ts   int64
			tz   string
			vals [4]sql.NullFloat64
		)
		if err := rows.Scan(&ts, &tz, &vals[0], &vals[1], &vals[2], &vals[3]); err != nil {
			return nil, err
		}
		zone, ok := zones[tz]
		if !ok {
			zone, err = time.LoadLocation(tz)
			if err != nil {
				return nil, fmt.Errorf("archived timezone %q: %w", tz, err)
			}
			zones[tz] = zone
			if len(zones) == 1 {
				tableZone = zone
			}
		}
		times = append(times, time.Unix(ts, 0).In(zone))
		temp = append(temp, fromNullable(vals[0]))
		precip = append(precip, fromNullable(vals[1]))
		rh = append(rh, fromNullable(vals[2]))
		dew = append(dew, fromNullable(vals[3]))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return weather.NewTable(tableZone, times, temp, precip, rh, dew)
}

// sqlite has no NaN; gaps are stored as NULL.
func nullable(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func fromNullable(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
