package weather

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
)

// Outputs are the artifact paths written by a run.
type Outputs struct {
	PlotPath     string
	SnapshotPath string
}

// Deps bundles what a Service needs. Archiver and Store may be nil.
type Deps struct {
	Fetcher   Fetcher
	Renderer  Renderer
	Persister Persister
	Archiver  Archiver
	Store     Store
	Logger    *slog.Logger
	Report    io.Writer
}

// Result describes a completed run.
type Result struct {
	RunID      string
	Table      *Table
	Completion Completion
}

// Service runs the fetch, decode, tabulate, render, persist, check pipeline.
type Service struct {
	deps    Deps
	query   Query
	outputs Outputs
	debug   bool
}

// NewService creates a new Service.
func NewService(deps Deps, query Query, outputs Outputs, debug bool) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Report == nil {
		deps.Report = os.Stdout
	}
	return &Service{
		deps:    deps,
		query:   query,
		outputs: outputs,
		debug:   debug,
	}
}

// Query returns the query the service was built with.
func (s *Service) Query() Query {
	return s.query
}

// Outputs returns the artifact paths.
func (s *Service) Outputs() Outputs {
	return s.outputs
}

// Run executes the pipeline once. Fetch, decode and table errors abort the run
// before any artifact is written. Render and persist failures are logged and
// surface through the completion check.
func (s *Service) Run(ctx context.Context) (Result, error) {
	res := Result{RunID: uuid.NewString()}
	log := s.deps.Logger.With("run_id", res.RunID, "location", s.query.Location.Key())

	loc, err := time.LoadLocation(s.query.Timezone)
	if err != nil {
		return res, fmt.Errorf("load timezone %q: %w", s.query.Timezone, err)
	}

	log.Info("fetching hourly history",
		"provider", s.deps.Fetcher.Name(),
		"start", s.query.StartDate,
		"end", s.query.EndDate,
	)
	raw, err := s.deps.Fetcher.Fetch(ctx, s.query)
	if err != nil {
		return res, err
	}
	log.Debug("response received", "status", raw.StatusCode, "bytes", len(raw.Body))

	payload, err := Decode(raw, s.debug)
	if err != nil {
		return res, err
	}

	table, err := payload.Table(loc)
	if err != nil {
		return res, err
	}
	res.Table = table
	log.Info("table built", "rows", table.Len())

	if s.deps.Archiver != nil {
		if err := s.deps.Archiver.SaveTable(ctx, s.query.Location, table); err != nil {
			log.Error("archive rows", "error", err)
		}
	}

	if err := s.deps.Renderer.Render(table, s.outputs.PlotPath); err != nil {
		log.Error("render plots", "path", s.outputs.PlotPath, "error", err)
	} else {
		log.Info("plots written", "path", s.outputs.PlotPath)
	}

	if err := s.deps.Persister.Save(table, s.outputs.SnapshotPath); err != nil {
		log.Error("save snapshot", "path", s.outputs.SnapshotPath, "error", err)
	} else {
		log.Info("snapshot written", "path", s.outputs.SnapshotPath)
	}

	res.Completion = CheckOutputs(s.outputs.PlotPath, s.outputs.SnapshotPath)
	if err := res.Completion.Report(s.deps.Report); err != nil {
		log.Warn("write completion report", "error", err)
	}

	if s.deps.Store != nil {
		s.deps.Store.SaveTable(s.query.Location, table)
	}
	return res, nil
}
