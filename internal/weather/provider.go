package weather

import (
	"context"
	"time"
)

// Fetcher retrieves the raw archive response for a query (e.g. Open-Meteo archive).
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, q Query) (RawResponse, error)
}

// Renderer draws the table into an image file.
type Renderer interface {
	Render(t *Table, path string) error
}

// Persister writes the table snapshot file.
type Persister interface {
	Save(t *Table, path string) error
}

// Archiver is an optional secondary sink for the hourly rows.
type Archiver interface {
	SaveTable(ctx context.Context, loc Location, t *Table) error
}

// Store is the contract the in-memory store serving the read API must satisfy.
type Store interface {
	SaveTable(loc Location, t *Table)
	GetLatest(loc Location) (*Table, error)
	GetRange(loc Location, from, to time.Time) ([]Row, error)
}
