package application

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/concept-analytics/domain/concept"
	"github.com/felixgeelhaar/concept-analytics/domain/config"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/storage/badger"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/storage/memory"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/storage/postgres"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/storage/sqlite"
)

// OpenStore opens the concept store selected by cfg.Driver.
func OpenStore(ctx context.Context, cfg config.StorageConfig) (concept.Store, error) {
	switch cfg.Driver {
	case "", config.DriverMemory:
		return memory.NewConceptStore(), nil

	case config.DriverSQLite:
		opts := []sqlite.Option{sqlite.WithAutoMigrate()}
		if cfg.DSN != "" {
			opts = append(opts, sqlite.WithDSN(cfg.DSN))
		}
		return sqlite.NewConceptStore(sqlite.DefaultConfig(), opts...)

	case config.DriverBadger:
		var opts []badger.Option
		if cfg.Dir == "" {
			opts = append(opts, badger.WithInMemory())
		} else {
			opts = append(opts, badger.WithDir(cfg.Dir))
		}
		return badger.NewConceptStore(badger.DefaultConfig(), opts...)

	case config.DriverPostgres:
		var opts []postgres.ConfigOption
		if cfg.DSN != "" {
			opts = append(opts, postgres.WithDSN(cfg.DSN))
		}
		return postgres.Open(ctx, postgres.DefaultConfig(), opts...)
	}
	return nil, fmt.Errorf("%w: unknown storage driver %q", config.ErrValidationFailed, cfg.Driver)
}
