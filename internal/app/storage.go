package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/newrelic/go-agent/v3/newrelic"

	"carrental/internal/config"
	"carrental/internal/repository"
	"carrental/internal/repository/file"
	"carrental/internal/repository/mongodb"
	"carrental/internal/repository/postgres"
)

// Stores holds the repositories of the configured backend.
type Stores struct {
	Backend string
	Cars    repository.CarRepository
	Users   repository.UserRepository
	Rentals repository.RentalRepository

	closers []func(context.Context) error
}

// NewStores opens the storage backend selected by cfg.Storage.Backend. This
// is the only place that knows which backend is in use.
func NewStores(ctx context.Context, cfg *config.Config, nrApp *newrelic.Application) (*Stores, error) {
	switch cfg.Storage.Backend {
	case config.StorageFile:
		return &Stores{
			Backend: config.StorageFile,
			Cars:    file.NewCarRepository(cfg.Storage.DataDir),
			Users:   file.NewUserRepository(cfg.Storage.DataDir),
			Rentals: file.NewRentalRepository(cfg.Storage.DataDir),
		}, nil

	case config.StorageMongo:
		client, err := NewMongoClient(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.Mongo.Database)

		rentals := mongodb.NewRentalRepository(db)
		if err := rentals.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("create rental indexes: %w", err)
		}

		return &Stores{
			Backend: config.StorageMongo,
			Cars:    mongodb.NewCarRepository(db),
			Users:   mongodb.NewUserRepository(db),
			Rentals: rentals,
			closers: []func(context.Context) error{client.Disconnect},
		}, nil

	case config.StoragePostgres:
		db, err := NewDatabase(ctx, cfg.Database, nrApp)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}

		return &Stores{
			Backend: config.StoragePostgres,
			Cars:    postgres.NewCarRepository(db),
			Users:   postgres.NewUserRepository(db),
			Rentals: postgres.NewRentalRepository(db),
			closers: []func(context.Context) error{func(context.Context) error { return db.Close() }},
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// Close releases the backend's connections.
func (s *Stores) Close(ctx context.Context) error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c(ctx))
	}
	return errors.Join(errs...)
}
