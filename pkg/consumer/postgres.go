package consumer

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDedup backs Dedup with a consumed_events table holding a
// unique (consumer_group, event_id) index.
type PostgresDedup struct {
	pool *pgxpool.Pool
}

func NewPostgresDedup(pool *pgxpool.Pool) *PostgresDedup {
	return &PostgresDedup{pool: pool}
}

func (d *PostgresDedup) AlreadyApplied(ctx context.Context, group, eventID string) (bool, error) {
	var exists bool
	err := d.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM consumed_events WHERE consumer_group=$1 AND event_id=$2)`,
		group, eventID,
	).Scan(&exists)
	return exists, err
}

func (d *PostgresDedup) MarkApplied(ctx context.Context, group, eventID, eventType string) error {
	_, err := d.pool.Exec(ctx,
		`INSERT INTO consumed_events (consumer_group, event_id, event_type, consumed_at) VALUES ($1, $2, $3, now())
		 ON CONFLICT (consumer_group, event_id) DO NOTHING`,
		group, eventID, eventType,
	)
	return err
}

func (d *PostgresDedup) IncrementRetry(ctx context.Context, group, eventID string) (int, error) {
	var attempts int
	err := d.pool.QueryRow(ctx, `
		INSERT INTO consumed_event_retries (consumer_group, event_id, attempts)
		VALUES ($1, $2, 1)
		ON CONFLICT (consumer_group, event_id)
		DO UPDATE SET attempts = consumed_event_retries.attempts + 1
		RETURNING attempts
	`, group, eventID).Scan(&attempts)
	return attempts, err
}

// MarkAppliedTx records that group has applied eventID inside tx, for
// a handler that wants the dedup row to commit atomically with its
// own business write instead of relying on the runtime's
// post-handler MarkApplied call.
func MarkAppliedTx(ctx context.Context, tx pgx.Tx, group, eventID, eventType string) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO consumed_events (consumer_group, event_id, event_type, consumed_at) VALUES ($1, $2, $3, now())
		 ON CONFLICT (consumer_group, event_id) DO NOTHING`,
		group, eventID, eventType,
	)
	return err
}
