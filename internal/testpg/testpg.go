// Package testpg starts a disposable Postgres with the schema applied, for
// repository integration tests.
package testpg

import (
	"context"
	"fmt"
	"os"

	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"tienda-b2b/internal/db"
	"tienda-b2b/internal/migrate"
)

const image = "postgres:17.6-alpine3.22"

// Database is a running, migrated database.
type Database struct {
	DSN       string
	container *postgres.PostgresContainer
}

// Start returns TEST_DB_DSN when set, otherwise a fresh container.
func Start(ctx context.Context) (*Database, error) {
	dsn := os.Getenv("TEST_DB_DSN")
	var container *postgres.PostgresContainer
	if dsn == "" {
		c, err := postgres.Run(ctx, image,
			postgres.WithDatabase("tienda_test"),
			postgres.WithUsername("tienda"),
			postgres.WithPassword("tienda"),
			postgres.BasicWaitStrategies(),
		)
		if err != nil {
			return nil, fmt.Errorf("postgres.Run: %w", err)
		}
		container = c
		dsn, err = c.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			_ = c.Terminate(ctx)
			return nil, fmt.Errorf("pc.ConnectionString: %w", err)
		}
	}

	sqlDB, err := db.OpenSQL(ctx, dsn)
	if err != nil {
		return nil, err
	}
	defer sqlDB.Close()

	if _, err := migrate.Apply(ctx, sqlDB, migrate.Up); err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return &Database{DSN: dsn, container: container}, nil
}

func (d *Database) Close(ctx context.Context) error {
	if d == nil || d.container == nil {
		return nil
	}
	return d.container.Terminate(ctx)
}
