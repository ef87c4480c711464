package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/studyloop/studycore/internal/config"
	"github.com/studyloop/studycore/internal/domain/srs"
	"github.com/studyloop/studycore/internal/platform/bolt"
	"github.com/studyloop/studycore/internal/platform/pebbleblob"
	"github.com/studyloop/studycore/internal/platform/postgres"
	"github.com/studyloop/studycore/internal/service"
	"github.com/studyloop/studycore/internal/store"
	"github.com/studyloop/studycore/internal/task"
)

// application holds the wired dependencies for the server process.
type application struct {
	config   *config.Config
	logger   *slog.Logger
	registry *service.Registry
	queue    *task.WriteQueue
	closers  []func() error
}

// newApplication builds the storage tiers for the configured backend and
// wires the catalogue registry and the background write queue on top.
func newApplication(cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{config: cfg, logger: logger}

	var (
		index store.IndexStore
		blobs store.BlobStore
	)

	switch cfg.Storage.Backend {
	case "local":
		indexStore, err := bolt.Open(
			filepath.Join(cfg.Storage.DataDir, "index.db"),
			bolt.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("opening local index store: %w", err)
		}
		app.closers = append(app.closers, indexStore.Close)

		blobStore, err := pebbleblob.Open(
			filepath.Join(cfg.Storage.DataDir, "blobs"),
			pebbleblob.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("opening local blob store: %w", err)
		}
		app.closers = append(app.closers, blobStore.Close)

		index, blobs = indexStore, blobStore

	case "postgres":
		db, err := postgres.Open(cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		app.closers = append(app.closers, db.Close)

		if err := postgres.MigrateUp(db); err != nil {
			return nil, fmt.Errorf("migrating postgres schema: %w", err)
		}

		index = postgres.NewIndexStore(db, logger)
		blobs = postgres.NewBlobStore(db, logger)

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	app.queue = task.NewWriteQueue(blobs.PutBody, task.WriteQueueConfig{
		WorkerCount: cfg.Storage.WriteWorkers,
		QueueSize:   cfg.Storage.WriteQueueSize,
	}, logger)

	app.registry = service.NewRegistry(index, blobs, app.queue, srs.NewDefaultSchedule(), logger)
	return app, nil
}

// cleanup drains the write queue and closes the storage tiers, newest first.
func (app *application) cleanup() {
	if app.queue != nil {
		app.queue.Close()
	}
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			app.logger.Error("cleanup failed", "error", err)
		}
	}
}
