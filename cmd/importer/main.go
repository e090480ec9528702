package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"golang.org/x/text/currency"

	"tienda-b2b/internal/config"
	"tienda-b2b/internal/db"
	"tienda-b2b/internal/importer"
	"tienda-b2b/internal/logging"
	"tienda-b2b/internal/repository/variant"
)

func main() {
	cfg := config.FromEnv()

	var filePath string
	flag.StringVar(&filePath, "file", cfg.CatalogCSV, "Path to the catalog CSV (defaults to CATALOG_CSV)")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	base := logging.New(cfg.LogLevel, cfg.LogFormat)
	logger := logging.Component(base, "importer")

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

	f, err := os.Open(filePath)
	if err != nil {
		logger.WithError(err).Fatal("open file")
	}
	defer f.Close()

	imp := importer.NewCSVImporter(f, variant.NewPostgres(pool, logging.Component(base, "variants")), cur, logger)

	start := time.Now()
	res, err := imp.Run(ctx)
	if err != nil {
		logger.WithError(err).Fatal("import failed")
	}

	fmt.Printf("Imported %d products and %d variants in %s\n", res.Products, res.Variants, time.Since(start).Truncate(time.Millisecond))
}
