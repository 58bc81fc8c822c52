package main

import (
	"context"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/ticketmesh/orderflow/internal/orchestrator/application"
	orchestratorHTTP "github.com/ticketmesh/orderflow/internal/orchestrator/infrastructure/http"
	orchestratorKafka "github.com/ticketmesh/orderflow/internal/orchestrator/infrastructure/kafka"
	orchestratorDB "github.com/ticketmesh/orderflow/internal/orchestrator/infrastructure/postgres"
	"github.com/ticketmesh/orderflow/pkg/config"
	"github.com/ticketmesh/orderflow/pkg/consumer"
	"github.com/ticketmesh/orderflow/pkg/httpx"
	"github.com/ticketmesh/orderflow/pkg/idempotency"
	"github.com/ticketmesh/orderflow/pkg/inventoryhttp"
	"github.com/ticketmesh/orderflow/pkg/logging"
	"github.com/ticketmesh/orderflow/pkg/metrics"
	"github.com/ticketmesh/orderflow/pkg/orderhttp"
	"github.com/ticketmesh/orderflow/pkg/outbox"
	"github.com/ticketmesh/orderflow/pkg/shutdown"
	"github.com/ticketmesh/orderflow/pkg/tracing"
)

const consumerGroup = "orchestrator"

func main() {
	log := logging.New("orchestrator")
	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", "err", err)
		os.Exit(1)
	}

	tp, err := tracing.Init(ctx, cfg.Tracing.ServiceName+"-orchestrator", cfg.Tracing.JaegerURL, log)
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

	stats := metrics.New(prometheus.DefaultRegisterer)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	defer rdb.Close()
	lock := idempotency.NewLock(rdb, uuid.NewString())

	repo := orchestratorDB.NewRepository(log, pool)
	invClient := &inventoryClientAdapter{client: inventoryhttp.NewClient(cfg.Inventory.BaseURL, cfg.Inventory.CallTimeout)}
	ordersClient := orderhttp.NewClient(cfg.Orchestrator.OrderServiceBaseURL)

	svc := application.NewService(log, repo, invClient, ordersClient, cfg.Inventory.DefaultHoldTTL, stats)

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
	}
	defer writer.Close()

	dispatch := outbox.NewDispatcher(log, writer, cfg.Kafka.EventsTopic)
	store := outbox.NewPostgresStore(pool)
	relay := outbox.NewRelay(log, store, dispatch, "orchestrator-relay", cfg.Outbox.BatchSize, cfg.Outbox.PollInterval, cfg.Outbox.Lease)
	go func() {
		if err := relay.Run(ctx); err != nil {
			log.Error("outbox relay stopped", "err", err)
		}
	}()

	dedup := consumer.NewPostgresDedup(pool)
	runner := consumer.NewRunner(log, consumer.Config{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    cfg.Kafka.EventsTopic,
		Group:    consumerGroup,
		DLQTopic: cfg.Kafka.DLQTopic,
		RetryCap: cfg.Consumer.RetryCap,
		Prefetch: cfg.Consumer.Prefetch,
	}, writer, dedup).WithMetrics(stats)
	runner = orchestratorKafka.NewRunner(runner, svc)

	go func() {
		if err := runner.Run(ctx); err != nil {
			log.Error("consumer runner stopped", "err", err)
			cancel()
		}
	}()

	expiryLoop := application.NewExpiryLoop(log, repo, lock, cfg.Expiry.Interval, cfg.Expiry.BatchSize)
	go func() {
		if err := expiryLoop.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("expiry loop stopped", "err", err)
		}
	}()

	handler := orchestratorHTTP.NewHandler(log, svc)
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
	log.Info("orchestrator shutdown complete")
}

// inventoryClientAdapter narrows pkg/inventoryhttp.Client's HTTP-shaped
// methods to the application.InventoryClient port so the application
// layer never imports an HTTP client type directly.
type inventoryClientAdapter struct {
	client *inventoryhttp.Client
}

func (a *inventoryClientAdapter) Hold(ctx context.Context, req application.HoldRequest) (application.HoldResult, error) {
	resp, err := a.client.Hold(ctx, inventoryhttp.HoldRequest{
		HoldID:       req.HoldID,
		SessionID:    req.SessionID,
		TicketTypeID: req.TicketTypeID,
		Quantity:     req.Quantity,
		ExpiresAt:    req.ExpiresAt,
	})
	if err != nil {
		return application.HoldResult{}, err
	}
	return application.HoldResult{Success: resp.Success, AvailableQuantity: resp.AvailableQuantity}, nil
}
