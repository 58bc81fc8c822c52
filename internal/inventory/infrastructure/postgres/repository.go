package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ticketmesh/orderflow/internal/inventory/application"
	"github.com/ticketmesh/orderflow/internal/inventory/domain"
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

// Hold implements the hold algorithm's critical section: lock the
// inventory row, check for a prior hold under the same id, then
// either replay idempotently or decrement and insert.
func (r *Repository) Hold(ctx context.Context, sessionID, ticketTypeID, holdID string, quantity int, expiresAt time.Time) (application.HoldResult, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return application.HoldResult{}, domainerrors.Internal(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	item, err := lockInventoryItem(ctx, tx, sessionID, ticketTypeID)
	if err != nil {
		return application.HoldResult{}, err
	}

	existing, found, err := lockHold(ctx, tx, holdID)
	if err != nil {
		return application.HoldResult{}, err
	}

	if found {
		switch {
		case existing.MatchesForReplay(quantity):
			return application.HoldResult{Item: item, Accepted: true, Duplicate: true}, tx.Commit(ctx)
		case existing.IsReleased() || existing.IsCommitted():
			return application.HoldResult{Item: item, Accepted: true, Duplicate: true}, tx.Commit(ctx)
		}
	}

	if !item.HasCapacityFor(quantity) {
		return application.HoldResult{}, domainerrors.New(domainerrors.KindInsufficientInventory, "insufficient_inventory")
	}

	item.Decrement(quantity)
	if _, err := tx.Exec(ctx, `UPDATE inventory_items SET available_quantity=$1, updated_at=now() WHERE id=$2`,
		item.AvailableQuantity, item.ID); err != nil {
		return application.HoldResult{}, domainerrors.Internal(err, "update inventory item")
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO holds (hold_id, inventory_item_id, quantity, status, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, 'HELD', $4, now(), now())
	`, holdID, item.ID, quantity, expiresAt); err != nil {
		return application.HoldResult{}, domainerrors.Internal(err, "insert hold")
	}

	if err := insertOutboxEvent(ctx, tx, "inventory", item.ID, "hold.created", holdCreatedPayload{
		HoldID:       holdID,
		SessionID:    sessionID,
		TicketTypeID: ticketTypeID,
		Quantity:     quantity,
		ExpiresAt:    expiresAt,
	}); err != nil {
		return application.HoldResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return application.HoldResult{}, domainerrors.Internal(err, "commit hold")
	}
	return application.HoldResult{Item: item, Accepted: true}, nil
}

func (r *Repository) Release(ctx context.Context, holdID string) (domain.InventoryItem, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.InventoryItem{}, domainerrors.Internal(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	hold, found, err := lockHoldByID(ctx, tx, holdID)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	if !found {
		return domain.InventoryItem{}, domainerrors.New(domainerrors.KindHoldNotFound, "hold not found")
	}

	item, err := lockInventoryItemByID(ctx, tx, hold.InventoryItemID)
	if err != nil {
		return domain.InventoryItem{}, err
	}

	switch {
	case hold.IsReleased():
		return item, tx.Commit(ctx)
	case hold.IsCommitted():
		return domain.InventoryItem{}, domainerrors.New(domainerrors.KindInvalidStateTransition, "committed hold cannot be released")
	}

	item.Increment(hold.Quantity)
	if _, err := tx.Exec(ctx, `UPDATE inventory_items SET available_quantity=$1, updated_at=now() WHERE id=$2`,
		item.AvailableQuantity, item.ID); err != nil {
		return domain.InventoryItem{}, domainerrors.Internal(err, "update inventory item")
	}
	if _, err := tx.Exec(ctx, `UPDATE holds SET status='RELEASED', updated_at=now() WHERE hold_id=$1`, holdID); err != nil {
		return domain.InventoryItem{}, domainerrors.Internal(err, "update hold")
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.InventoryItem{}, domainerrors.Internal(err, "commit release")
	}
	return item, nil
}

func (r *Repository) Commit(ctx context.Context, holdID string) (domain.InventoryItem, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.InventoryItem{}, domainerrors.Internal(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	hold, found, err := lockHoldByID(ctx, tx, holdID)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	if !found {
		return domain.InventoryItem{}, domainerrors.New(domainerrors.KindHoldNotFound, "hold not found")
	}

	item, err := lockInventoryItemByID(ctx, tx, hold.InventoryItemID)
	if err != nil {
		return domain.InventoryItem{}, err
	}

	switch {
	case hold.IsCommitted():
		return item, tx.Commit(ctx)
	case hold.IsReleased():
		return domain.InventoryItem{}, domainerrors.New(domainerrors.KindInvalidStateTransition, "released hold cannot be committed")
	}

	if _, err := tx.Exec(ctx, `UPDATE holds SET status='COMMITTED', updated_at=now() WHERE hold_id=$1`, holdID); err != nil {
		return domain.InventoryItem{}, domainerrors.Internal(err, "update hold")
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.InventoryItem{}, domainerrors.Internal(err, "commit commit")
	}
	return item, nil
}

func (r *Repository) Availability(ctx context.Context, sessionID, ticketTypeID string) (domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := r.pool.QueryRow(ctx, `
		SELECT id, session_id, ticket_type_id, total_quantity, available_quantity, created_at, updated_at
		FROM inventory_items WHERE session_id=$1 AND ticket_type_id=$2
	`, sessionID, ticketTypeID).Scan(
		&item.ID, &item.SessionID, &item.TicketTypeID, &item.TotalQuantity, &item.AvailableQuantity, &item.CreatedAt, &item.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.InventoryItem{}, domainerrors.New(domainerrors.KindHoldNotFound, "inventory item not found")
	}
	if err != nil {
		return domain.InventoryItem{}, domainerrors.Internal(err, "query availability")
	}
	return item, nil
}

func lockInventoryItem(ctx context.Context, tx pgx.Tx, sessionID, ticketTypeID string) (domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := tx.QueryRow(ctx, `
		SELECT id, session_id, ticket_type_id, total_quantity, available_quantity, created_at, updated_at
		FROM inventory_items WHERE session_id=$1 AND ticket_type_id=$2
		FOR UPDATE
	`, sessionID, ticketTypeID).Scan(
		&item.ID, &item.SessionID, &item.TicketTypeID, &item.TotalQuantity, &item.AvailableQuantity, &item.CreatedAt, &item.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.InventoryItem{}, domainerrors.New(domainerrors.KindHoldNotFound, "inventory item not found")
	}
	if err != nil {
		return domain.InventoryItem{}, domainerrors.Internal(err, "lock inventory item")
	}
	return item, nil
}

func lockInventoryItemByID(ctx context.Context, tx pgx.Tx, id string) (domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := tx.QueryRow(ctx, `
		SELECT id, session_id, ticket_type_id, total_quantity, available_quantity, created_at, updated_at
		FROM inventory_items WHERE id=$1
		FOR UPDATE
	`, id).Scan(
		&item.ID, &item.SessionID, &item.TicketTypeID, &item.TotalQuantity, &item.AvailableQuantity, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return domain.InventoryItem{}, domainerrors.Internal(err, "lock inventory item by id")
	}
	return item, nil
}

func lockHold(ctx context.Context, tx pgx.Tx, holdID string) (domain.Hold, bool, error) {
	return lockHoldByID(ctx, tx, holdID)
}

func lockHoldByID(ctx context.Context, tx pgx.Tx, holdID string) (domain.Hold, bool, error) {
	var h domain.Hold
	err := tx.QueryRow(ctx, `
		SELECT hold_id, inventory_item_id, quantity, status, expires_at, created_at, updated_at
		FROM holds WHERE hold_id=$1
		FOR UPDATE
	`, holdID).Scan(&h.HoldID, &h.InventoryItemID, &h.Quantity, &h.Status, &h.ExpiresAt, &h.CreatedAt, &h.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Hold{}, false, nil
	}
	if err != nil {
		return domain.Hold{}, false, domainerrors.Internal(err, "lock hold")
	}
	return h, true, nil
}

type holdCreatedPayload struct {
	HoldID       string    `json:"hold_id"`
	SessionID    string    `json:"session_id"`
	TicketTypeID string    `json:"ticket_type_id"`
	Quantity     int       `json:"quantity"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func insertOutboxEvent(ctx context.Context, tx pgx.Tx, aggregateType, aggregateID, eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return domainerrors.Internal(err, "marshal outbox payload")
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO outbox (event_id, event_type, aggregate_type, aggregate_id, payload, occurred_at, status)
		VALUES ($1, $2, $3, $4, $5, now(), 'pending')
	`, vo.NewEventID(), eventType, aggregateType, aggregateID, body)
	if err != nil {
		return domainerrors.Internal(err, "insert outbox event")
	}
	return nil
}
