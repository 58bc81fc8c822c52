// Package integration spins up real Postgres and Kafka containers for
// tests that exercise a repository's actual SQL rather than a stub.
package integration

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/ticketmesh/orderflow/pkg/migrate"
)

type Env struct {
	PG     *postgres.PostgresContainer
	Kafka  *kafka.KafkaContainer
	PGURL  string
	KAddr  []string
	cancel context.CancelFunc
}

func Setup(ctx context.Context, withKafka bool) (*Env, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)

	pgC, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("orderflow"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
	)
	if err != nil {
		cancel()
		return nil, err
	}

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		cancel()
		return nil, err
	}

	env := &Env{PG: pgC, PGURL: pgURL, cancel: cancel}
	if !withKafka {
		return env, nil
	}

	kafkaC, err := kafka.Run(ctx,
		"confluentinc/confluent-local:7.5.0",
		kafka.WithClusterID("test-cluster"),
	)
	if err != nil {
		cancel()
		return nil, err
	}

	kafkaAddress, err := kafkaC.Brokers(ctx)
	if err != nil {
		cancel()
		return nil, err
	}
	env.Kafka = kafkaC
	env.KAddr = kafkaAddress
	return env, nil
}

// OpenAndMigrate opens a database/sql handle against the container and
// applies dir's goose migrations, for tests that need the schema in
// place before wiring a pgxpool.
func (e *Env) OpenAndMigrate(ctx context.Context, dir string) (*sql.DB, error) {
	db, err := sql.Open("pgx", e.PGURL)
	if err != nil {
		return nil, err
	}
	if err := migrate.Run(ctx, db, dir, "up"); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (e *Env) Teardown(ctx context.Context) {
	e.cancel()
	if e.Kafka != nil {
		_ = e.Kafka.Terminate(ctx)
	}
	_ = e.PG.Terminate(ctx)
}
