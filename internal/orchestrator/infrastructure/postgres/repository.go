package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ticketmesh/orderflow/internal/orchestrator/domain"
	domainerrors "github.com/ticketmesh/orderflow/pkg/errors"
	"github.com/ticketmesh/orderflow/pkg/vo"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Insert(ctx context.Context, mirror domain.HoldMirror) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO hold_mirrors (hold_id, session_id, ticket_type_id, quantity, customer_email, status, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		ON CONFLICT (hold_id) DO NOTHING
	`, mirror.HoldID, mirror.SessionID, mirror.TicketTypeID, mirror.Quantity, mirror.CustomerEmail, mirror.Status, mirror.ExpiresAt)
	if err != nil {
		return domainerrors.Internal(err, "insert hold mirror")
	}
	return nil
}

// MarkCommitted is invoked by the order.confirmed consumer. A missing
// mirror or one already COMMITTED/EXPIRED is a silent no-op: the
// consumer's own dedup already prevents duplicate delivery, and a
// mirror that expired before confirmation landed does not retroactively
// become committed.
func (r *Repository) MarkCommitted(ctx context.Context, holdID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE hold_mirrors SET status=$1, updated_at=now() WHERE hold_id=$2 AND status=$3
	`, domain.StatusCommitted, holdID, domain.StatusActive)
	if err != nil {
		return domainerrors.Internal(err, "mark hold mirror committed")
	}
	if tag.RowsAffected() == 0 {
		r.log.Debug("mark committed no-op", "hold_id", holdID)
	}
	return nil
}

// SweepExpired transitions ACTIVE mirrors past their expiry to
// EXPIRED and writes one hold.expired outbox row per hold in the same
// transaction, so a crash between the two can never happen.
func (r *Repository) SweepExpired(ctx context.Context, now time.Time, batchSize int) (int, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, domainerrors.Internal(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT hold_id, session_id, ticket_type_id, quantity, customer_email
		FROM hold_mirrors
		WHERE status=$1 AND expires_at < $2
		ORDER BY expires_at
		LIMIT $3
		FOR UPDATE SKIP LOCKED
	`, domain.StatusActive, now, batchSize)
	if err != nil {
		return 0, domainerrors.Internal(err, "select overdue holds")
	}

	type overdue struct {
		holdID, sessionID, ticketTypeID, customerEmail string
		quantity                                       int
	}
	var batch []overdue
	for rows.Next() {
		var o overdue
		if err := rows.Scan(&o.holdID, &o.sessionID, &o.ticketTypeID, &o.quantity, &o.customerEmail); err != nil {
			rows.Close()
			return 0, domainerrors.Internal(err, "scan overdue hold")
		}
		batch = append(batch, o)
	}
	rows.Close()

	for _, o := range batch {
		if _, err := tx.Exec(ctx, `UPDATE hold_mirrors SET status=$1, updated_at=now() WHERE hold_id=$2`, domain.StatusExpired, o.holdID); err != nil {
			return 0, domainerrors.Internal(err, "expire hold mirror")
		}

		payload, err := json.Marshal(map[string]any{
			"hold_id":        o.holdID,
			"session_id":     o.sessionID,
			"ticket_type_id": o.ticketTypeID,
			"quantity":       o.quantity,
		})
		if err != nil {
			return 0, domainerrors.Internal(err, "marshal hold.expired payload")
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO outbox (event_id, event_type, aggregate_type, aggregate_id, payload, occurred_at, status)
			VALUES ($1, $2, $3, $4, $5, now(), 'pending')
		`, vo.NewEventID(), "hold.expired", "hold", o.holdID, payload); err != nil {
			return 0, domainerrors.Internal(err, "insert hold.expired outbox row")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, domainerrors.Internal(err, "commit expiry sweep")
	}
	return len(batch), nil
}

func (r *Repository) Get(ctx context.Context, holdID string) (domain.HoldMirror, error) {
	var m domain.HoldMirror
	err := r.pool.QueryRow(ctx, `
		SELECT hold_id, session_id, ticket_type_id, quantity, customer_email, status, expires_at, created_at, updated_at
		FROM hold_mirrors WHERE hold_id=$1
	`, holdID).Scan(&m.HoldID, &m.SessionID, &m.TicketTypeID, &m.Quantity, &m.CustomerEmail, &m.Status, &m.ExpiresAt, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.HoldMirror{}, domainerrors.New(domainerrors.KindHoldNotFound, "hold not found")
	}
	if err != nil {
		return domain.HoldMirror{}, domainerrors.Internal(err, "get hold mirror")
	}
	return m, nil
}
