package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store against a service's own "outbox"
// table. Every service owns its own table with the same schema, so
// one implementation serves all three rather than duplicating the
// same SELECT ... FOR UPDATE SKIP LOCKED polling logic per service.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]Event, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT id, event_id, event_type, aggregate_type, aggregate_id, coalesce(idempotency_key, ''),
		       payload, headers, coalesce(traceparent, ''), occurred_at, created_at
		FROM outbox
		WHERE status IN ('pending', 'in_progress') AND (lease_until IS NULL OR lease_until < now())
		ORDER BY id
		FOR UPDATE SKIP LOCKED
		LIMIT $1
	`, batchSize)
	if err != nil {
		return nil, err
	}

	var events []Event
	for rows.Next() {
		var e Event
		var headers map[string]string
		if err := rows.Scan(&e.ID, &e.EventID, &e.EventType, &e.AggregateType, &e.AggregateID, &e.IdempotencyKey,
			&e.Payload, &headers, &e.Traceparent, &e.OccurredAt, &e.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		e.Headers = headers
		events = append(events, e)
	}
	rows.Close()

	if len(events) == 0 {
		return nil, tx.Commit(ctx)
	}

	ids := make([]int64, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE outbox SET status='in_progress', relay_id=$1, lease_until=now() + $2::interval WHERE id = ANY($3)
	`, relayID, lease.String(), ids); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *PostgresStore) MarkSent(ctx context.Context, ids []int64) error {
	ct, err := s.pool.Exec(ctx, `UPDATE outbox SET status='sent' WHERE id = ANY($1)`, ids)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errors.New("no rows updated")
	}
	return nil
}

// MarkFailed leaves the row eligible for the next poll rather than
// terminally failing it: outbox publish retries indefinitely, and a
// row is only ever removed from rotation by MarkSent.
func (s *PostgresStore) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	_, err := s.pool.Exec(ctx, `UPDATE outbox SET status='pending', last_error=$2, retry_count=retry_count+1, lease_until=NULL WHERE id=$1`, id, errMsg)
	return err
}

func (s *PostgresStore) ExtendLease(ctx context.Context, relayID string, ids []int64, lease time.Duration) error {
	_, err := s.pool.Exec(ctx, `UPDATE outbox SET lease_until=now() + $1::interval WHERE id = ANY($2) AND relay_id=$3`, lease.String(), ids, relayID)
	return err
}
