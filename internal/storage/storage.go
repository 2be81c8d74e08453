// Package storage opens the record store selected by configuration.
package storage

import (
	"context"
	"fmt"

	"github.com/felix-dieterle/mycontracts/internal/config"
	"github.com/felix-dieterle/mycontracts/internal/records"
	"github.com/felix-dieterle/mycontracts/internal/records/postgres"
	"github.com/felix-dieterle/mycontracts/internal/records/sqlite"
)

// Open returns the configured backend. The SQLite database lives under the
// state directory; Postgres uses store.postgres_url.
func Open(ctx context.Context, cfg *config.Config) (records.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite, "":
		store, err := sqlite.Open(ctx, cfg.DatabasePath())
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverPostgres:
		store, err := postgres.Open(ctx, cfg.Store.PostgresURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("store driver %q is not supported", cfg.Store.Driver)
	}
}
