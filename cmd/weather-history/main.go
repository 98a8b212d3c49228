package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/weather-history/internal/api/http"
	"github.com/i474232898/weather-history/internal/archive"
	"github.com/i474232898/weather-history/internal/config"
	"github.com/i474232898/weather-history/internal/logging"
	"github.com/i474232898/weather-history/internal/render"
	"github.com/i474232898/weather-history/internal/scheduler"
	"github.com/i474232898/weather-history/internal/snapshot"
	"github.com/i474232898/weather-history/internal/store"
	"github.com/i474232898/weather-history/internal/weather"
	"github.com/i474232898/weather-history/internal/weather/providers"
)

const appName = "weather-history"

// Set with -ldflags "-X main.version=...".
var version = "dev"

const (
	exitOK = iota
	exitError
	exitTransport
	exitStatus
	exitSchema
	exitIncomplete
)

const usage = `usage: weather-history [run|serve]

  run    fetch, plot and snapshot the configured history once (default)
  serve  run the read API over the latest snapshot, refreshing on REFRESH_INTERVAL
`

func main() {
	cmd := "run"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(exitError)
	}

	log := logging.New(os.Stderr, cfg, version, appName)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var code int
	switch cmd {
	case "run":
		code = runOnce(ctx, cfg, log)
	case "serve":
		code = serve(ctx, cfg, log)
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprint(os.Stderr, usage)
		code = exitError
	}

	stop()
	os.Exit(code)
}

// app holds the wired pipeline and the resources that must be closed with it.
type app struct {
	service *weather.Service
	db      *sql.DB
	archive *archive.Repository
}

func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			slog.Error("close archive", "error", err)
		}
	}
}

func build(cfg *config.AppConfig, log *slog.Logger, st weather.Store) (*app, error) {
	query := cfg.Query()
	if cfg.GeocoderAPIKey != "" && cfg.City != "" {
		loc, err := providers.Geocode(cfg.GeocoderAPIKey, cfg.City, cfg.Country)
		if err != nil {
			log.Warn("geocoding failed; using configured coordinates", "error", err)
		} else {
			log.Info("geocoded location", "city", loc.City, "lat", loc.Latitude, "lon", loc.Longitude)
			query.Location = loc
		}
	}

	// Shared HTTP client for the archive call.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	a := &app{}
	deps := weather.Deps{
		Fetcher:   providers.NewOpenMeteoArchive(httpClient, cfg.ArchiveURL),
		Renderer:  render.NewPNG(),
		Persister: snapshot.NewArrow(),
		Store:     st,
		Logger:    log,
		Report:    os.Stdout,
	}

	if cfg.ArchiveDBPath != "" {
		db, err := archive.Open(cfg.ArchiveDBPath)
		if err != nil {
			return nil, fmt.Errorf("open archive: %w", err)
		}
		a.db = db
		a.archive = archive.NewRepository(db)
		deps.Archiver = a.archive
	}

	a.service = weather.NewService(deps, query, cfg.Outputs(), cfg.DebugPayload)
	return a, nil
}

func runOnce(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) int {
	a, err := build(cfg, log, nil)
	if err != nil {
		log.Error("startup failed", "error", err)
		return exitError
	}
	defer a.Close()

	res, err := a.service.Run(ctx)
	if err != nil {
		log.Error("run failed", "run_id", res.RunID, "error", err)
		return exitCode(err)
	}
	if !res.Completion.OK() {
		return exitIncomplete
	}
	return exitOK
}

func exitCode(err error) int {
	var (
		te *weather.TransportError
		se *weather.StatusError
		fe *weather.SchemaError
		ie *weather.IntegrityError
	)
	switch {
	case errors.As(err, &te):
		return exitTransport
	case errors.As(err, &se):
		return exitStatus
	case errors.As(err, &fe), errors.As(err, &ie):
		return exitSchema
	default:
		return exitError
	}
}

func serve(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) int {
	memStore := store.NewMemoryStore(cfg.StoreMaxHistory)

	a, err := build(cfg, log, memStore)
	if err != nil {
		log.Error("startup failed", "error", err)
		return exitError
	}
	defer a.Close()

	seed(ctx, a.service, memStore, log)

	sched := scheduler.New(cfg.RefreshInterval, cfg.HTTPTimeout+time.Minute, a.service, log)
	if err := sched.Start(); err != nil {
		log.Error("failed to start scheduler", "error", err)
		return exitError
	}
	defer sched.Stop()

	// Basic app configuration
	server := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	server.Use(logger.New())
	server.Use(recover.New())

	server.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": appName,
		})
	})

	opts := httpapi.Options{
		Location: a.service.Query().Location,
		PlotPath: a.service.Outputs().PlotPath,
	}
	if a.archive != nil {
		opts.Archive = a.archive
		if n, err := a.archive.Count(ctx, opts.Location); err != nil {
			log.Warn("count archived rows", "error", err)
		} else {
			log.Info("archive attached", "path", cfg.ArchiveDBPath, "rows", n)
		}
	}
	httpapi.RegisterRoutes(server, memStore, opts)

	go func() {
		if err := server.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "error", err)
		}
	}()
	log.Info("listening", "port", cfg.Port)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
	return exitOK
}

// seed loads the existing snapshot into the store, or runs the pipeline once when there is none.
func seed(ctx context.Context, svc *weather.Service, st weather.Store, log *slog.Logger) {
	path := svc.Outputs().SnapshotPath
	table, err := snapshot.NewArrow().Load(path)
	if err == nil {
		st.SaveTable(svc.Query().Location, table)
		log.Info("snapshot loaded", "path", path, "rows", table.Len())
		return
	}
	if !errors.Is(err, fs.ErrNotExist) {
		log.Warn("snapshot unreadable; fetching fresh data", "path", path, "error", err)
	}

	if _, err := svc.Run(ctx); err != nil {
		log.Error("initial fetch failed; serving without data until the next refresh", "error", err)
	}
}
