package main

import (
	"context"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"

	"github.com/ticketmesh/orderflow/internal/order/application"
	orderHTTP "github.com/ticketmesh/orderflow/internal/order/infrastructure/http"
	orderDB "github.com/ticketmesh/orderflow/internal/order/infrastructure/postgres"
	"github.com/ticketmesh/orderflow/pkg/config"
	"github.com/ticketmesh/orderflow/pkg/httpx"
	"github.com/ticketmesh/orderflow/pkg/logging"
	"github.com/ticketmesh/orderflow/pkg/metrics"
	"github.com/ticketmesh/orderflow/pkg/outbox"
	"github.com/ticketmesh/orderflow/pkg/shutdown"
	"github.com/ticketmesh/orderflow/pkg/tracing"
)

func main() {
	log := logging.New("order-service")
	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", "err", err)
		os.Exit(1)
	}

	tp, err := tracing.Init(ctx, cfg.Tracing.ServiceName+"-order", cfg.Tracing.JaegerURL, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(ctx) }()

	pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Registers the shared metric series so /metrics has a consistent
	// schema across services even though this one doesn't increment
	// hold- or consumer-specific counters.
	_ = metrics.New(prometheus.DefaultRegisterer)

	repo := orderDB.NewRepository(log, pool)
	processor := application.StubPaymentProcessor{}
	svc := application.NewService(log, repo, processor)

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
	}
	defer writer.Close()

	dispatch := outbox.NewDispatcher(log, writer, cfg.Kafka.EventsTopic)
	store := outbox.NewPostgresStore(pool)
	relay := outbox.NewRelay(log, store, dispatch, "order-service-relay", cfg.Outbox.BatchSize, cfg.Outbox.PollInterval, cfg.Outbox.Lease)
	go func() {
		if err := relay.Run(ctx); err != nil {
			log.Error("outbox relay stopped", "err", err)
		}
	}()

	handler := orderHTTP.NewHandler(log, svc)
	router := httpx.NewRouter(log, cfg.HTTP.AllowedOrigins)
	router.Mount("/", handler.Routes())
	router.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		log.Info("http listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("order-service shutdown complete")
}
