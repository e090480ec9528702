package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/text/currency"

	"tienda-b2b/internal/catalog"
	"tienda-b2b/internal/config"
	"tienda-b2b/internal/db"
	"tienda-b2b/internal/events"
	"tienda-b2b/internal/httpserver"
	"tienda-b2b/internal/logging"
	"tienda-b2b/internal/metrics"
	"tienda-b2b/internal/remote"
	cartrepo "tienda-b2b/internal/repository/cart"
	orderrepo "tienda-b2b/internal/repository/order"
	variantrepo "tienda-b2b/internal/repository/variant"
	cartsvc "tienda-b2b/internal/service/cart"
	ordersvc "tienda-b2b/internal/service/order"
)

func main() {
	cfg := config.FromEnv()
	base := logging.New(cfg.LogLevel, cfg.LogFormat)
	logger := logging.Component(base, "api")

	cur, err := currency.ParseISO(cfg.Currency)
	if err != nil {
		logger.WithError(err).Fatal("parse currency")
	}

	ctx := context.Background()
	m := metrics.New()

	var (
		pinger    httpserver.Pinger
		lookup    catalog.Lookup
		cartStore cartrepo.Repository
		mirror    orderrepo.Repository
	)
	if cfg.CartStore == "memory" {
		logger.Warn("running without a database: demo catalog, in-memory carts and orders")
		lookup = catalog.NewDemoMemory(cur)
		cartStore = cartrepo.NewMemory(cur)
		mirror = orderrepo.NewMemory()
	} else {
		dbpool, err := db.Connect(ctx, cfg.DBConnString)
		if err != nil {
			logger.WithError(err).Fatal("connect to db")
		}
		defer dbpool.Close()
		sqlDB, err := db.OpenSQL(ctx, cfg.DBConnString)
		if err != nil {
			logger.WithError(err).Fatal("open order mirror db")
		}
		defer sqlDB.Close()

		pinger = dbpool
		lookup = variantrepo.NewPostgres(dbpool, logging.Component(base, "variants"))
		mirror = orderrepo.NewSQL(sqlDB, logging.Component(base, "order-mirror"))
		switch cfg.CartStore {
		case "file":
			cartStore, err = cartrepo.NewFile(cfg.CartFileDir, cur)
			if err != nil {
				logger.WithError(err).Fatal("open cart directory")
			}
		default:
			cartStore = cartrepo.NewPostgres(dbpool, cur)
		}
	}

	var publisher events.Publisher = events.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaOrderTopic, logging.Component(base, "events"))
		if err != nil {
			logger.WithError(err).Fatal("create event producer")
		}
		defer producer.Close()
		publisher = producer
	}

	client, err := remote.New(cfg.RemoteBaseURL, nil, cfg.RemoteTimeout, logging.Component(base, "remote"))
	if err != nil {
		logger.WithError(err).Fatal("create remote client")
	}

	mapper := ordersvc.NewMapper(cur, logging.Component(base, "order-mapper"))
	orderOpts := []ordersvc.Option{
		ordersvc.WithCatalog(lookup),
		ordersvc.WithMirror(mirror),
		ordersvc.WithPublisher(publisher),
		ordersvc.WithMetrics(m),
	}
	submitter := ordersvc.NewSubmitter(client, mapper, append(orderOpts, ordersvc.WithLogger(logging.Component(base, "order-submitter")))...)
	lifecycle := ordersvc.NewLifecycle(client, mapper, append(orderOpts, ordersvc.WithLogger(logging.Component(base, "order-lifecycle")))...)
	sessions := cartsvc.NewSessions(cartStore, lookup, cur,
		cartsvc.WithLogger(logging.Component(base, "cart")),
		cartsvc.WithMetrics(m),
	)

	srv, err := httpserver.New(cfg.HTTPAddr, logging.Component(base, "http"), pinger, httpserver.Deps{
		Sessions:       sessions,
		Submitter:      submitter,
		Lifecycle:      lifecycle,
		Metrics:        promhttp.Handler(),
		AllowedOrigins: cfg.AllowedOrigins,
	})
	if err != nil {
		logger.WithError(err).Fatal("init server")
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.WithField("signal", sig.String()).Info("shutting down")
	case err := <-serverErr:
		logger.WithError(err).Error("server error")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	} else {
		logger.Info("server stopped")
	}
}
