package main

import (
	"context"
	"os"

	"tienda-b2b/internal/config"
	"tienda-b2b/internal/db"
	"tienda-b2b/internal/logging"
	"tienda-b2b/internal/migrate"
)

func main() {
	cfg := config.FromEnv()
	logger := logging.Component(logging.New(cfg.LogLevel, cfg.LogFormat), "migrate")

	dir := migrate.Up
	if len(os.Args) > 1 {
		dir = migrate.Direction(os.Args[1])
	}

	ctx := context.Background()
	sqlDB, err := db.OpenSQL(ctx, cfg.DBConnString)
	if err != nil {
		logger.WithError(err).Fatal("connect db")
	}
	defer sqlDB.Close()

	version, err := migrate.Apply(ctx, sqlDB, dir)
	if err != nil {
		logger.WithError(err).Fatal("apply migrations")
	}

	logger.WithField("direction", dir).WithField("version", version).Info("migrations applied")
}
