package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/example/campsite-bookings/internal/archive"
	"github.com/example/campsite-bookings/internal/config"
	"github.com/example/campsite-bookings/internal/conflict"
	"github.com/example/campsite-bookings/internal/db"
	"github.com/example/campsite-bookings/internal/notify"
	"github.com/example/campsite-bookings/internal/observability"
	"github.com/example/campsite-bookings/internal/postgres"
	"github.com/example/campsite-bookings/internal/reconcile"
	"github.com/example/campsite-bookings/internal/store"
	"github.com/example/campsite-bookings/internal/workflow"
)

// app bundles the wired core for the commands.
type app struct {
	cfg config.Config
	log zerolog.Logger

	store     store.BookingStore
	locks     *workflow.KeyedMutex
	detector  *conflict.Detector
	gateway   *notify.Async
	workflow  *workflow.Engine
	reconcile *reconcile.Engine
	sweeper   *archive.Sweeper
}

// buildApp wires the engines against the configured store. The returned
// cleanup drains in-flight notifications and closes the database pool.
func buildApp(ctx context.Context, migrateUp bool) (*app, func(), error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, nil, err
	}
	log := observability.InitLogger("campsited")

	var (
		st      store.BookingStore
		closeDB = func() {}
	)
	switch cfg.Store {
	case "memory":
		st = store.NewMemory()
	default:
		d, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := d.Ping(ctx); err != nil {
			d.Close()
			return nil, nil, fmt.Errorf("db ping: %w", err)
		}
		if migrateUp {
			if err := postgres.Migrate(ctx, d); err != nil {
				d.Close()
				return nil, nil, err
			}
		}
		st = postgres.NewStore(d)
		closeDB = d.Close
	}

	mappings, err := reconcile.LoadMappings(cfg.FieldMappings)
	if err != nil {
		closeDB()
		return nil, nil, err
	}

	locks := workflow.NewKeyedMutex()
	detector := conflict.NewDetector(st)
	gateway := notify.NewAsync(notify.LogGateway{Log: log})

	a := &app{
		cfg:       cfg,
		log:       log,
		store:     st,
		locks:     locks,
		detector:  detector,
		gateway:   gateway,
		workflow:  workflow.NewEngine(st, detector, gateway, locks, cfg.Location, log),
		reconcile: reconcile.NewEngine(st, mappings, cfg.Location, log),
		sweeper:   archive.NewSweeper(st, locks, log),
	}
	cleanup := func() {
		gateway.Close()
		closeDB()
	}
	return a, cleanup, nil
}
