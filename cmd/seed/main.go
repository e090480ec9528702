package main

import (
	"context"

	"golang.org/x/text/currency"

	"tienda-b2b/internal/config"
	"tienda-b2b/internal/db"
	"tienda-b2b/internal/logging"
	"tienda-b2b/internal/repository/variant"
	"tienda-b2b/internal/seed"
)

func main() {
	cfg := config.FromEnv()
	base := logging.New(cfg.LogLevel, cfg.LogFormat)
	logger := logging.Component(base, "seed")

	cur, err := currency.ParseISO(cfg.Currency)
	if err != nil {
		logger.WithError(err).Fatal("parse currency")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.WithError(err).Fatal("connect db")
	}
	defer pool.Close()

	res, err := seed.Apply(ctx, variant.NewPostgres(pool, logging.Component(base, "variants")), cur)
	if err != nil {
		logger.WithError(err).Fatal("seed apply")
	}

	logger.WithField("products", res.Products).WithField("variants", res.Variants).Info("seed applied")
}
