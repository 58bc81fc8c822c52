package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ticketmesh/orderflow/internal/order/application"
	"github.com/ticketmesh/orderflow/internal/order/domain"
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

func (r *Repository) Create(ctx context.Context, order domain.Order, payment domain.Payment) (application.CreateResult, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return application.CreateResult{}, domainerrors.Internal(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if existing, found, err := findByIdempotencyKey(ctx, tx, order.IdempotencyKey); err != nil {
		return application.CreateResult{}, err
	} else if found {
		return application.CreateResult{Order: existing, Existed: true}, tx.Commit(ctx)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO orders (id, customer_email, status, total_amount, idempotency_key, hold_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
	`, order.ID.String(), order.CustomerEmail.String(), order.Status, order.TotalAmount.Decimal(), order.IdempotencyKey.String(), order.HoldID.String()); err != nil {
		return application.CreateResult{}, domainerrors.Internal(err, "insert order")
	}

	batch := &pgx.Batch{}
	for _, item := range order.Items {
		batch.Queue(`
			INSERT INTO order_items (order_id, session_id, ticket_type_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5)
		`, order.ID.String(), item.SessionID, item.TicketTypeID, item.Quantity, item.UnitPrice.Decimal())
	}
	br := tx.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return application.CreateResult{}, domainerrors.Internal(err, "insert order items")
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO payments (order_id, status, amount, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
	`, payment.OrderID.String(), payment.Status, payment.Amount.Decimal()); err != nil {
		return application.CreateResult{}, domainerrors.Internal(err, "insert payment")
	}

	if err := insertOutboxEvent(ctx, tx, "order", order.ID.String(), order.IdempotencyKey.String(), "order.created", orderPayload(order)); err != nil {
		return application.CreateResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return application.CreateResult{}, domainerrors.Internal(err, "commit create")
	}
	return application.CreateResult{Order: order}, nil
}

func (r *Repository) Confirm(ctx context.Context, orderID vo.OrderID, processor application.PaymentProcessor) (domain.Order, domain.Payment, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Order{}, domain.Payment{}, domainerrors.Internal(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	order, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return domain.Order{}, domain.Payment{}, err
	}
	payment, err := lockPayment(ctx, tx, orderID)
	if err != nil {
		return domain.Order{}, domain.Payment{}, err
	}

	if order.IsCancelled() {
		return domain.Order{}, domain.Payment{}, domainerrors.New(domainerrors.KindInvalidStateTransition, "order is cancelled")
	}
	if order.IsConfirmed() {
		return order, payment, tx.Commit(ctx)
	}

	authorized, err := processor.Authorize(ctx, orderID, order.TotalAmount)
	if err != nil {
		return domain.Order{}, domain.Payment{}, domainerrors.Internal(err, "authorize payment")
	}

	if !authorized {
		payment.Status = domain.PaymentFailed
		if _, err := tx.Exec(ctx, `UPDATE payments SET status=$1, updated_at=now() WHERE order_id=$2`, payment.Status, orderID.String()); err != nil {
			return domain.Order{}, domain.Payment{}, domainerrors.Internal(err, "update payment")
		}
		if err := tx.Commit(ctx); err != nil {
			return domain.Order{}, domain.Payment{}, domainerrors.Internal(err, "commit payment failure")
		}
		return domain.Order{}, domain.Payment{}, domainerrors.New(domainerrors.KindPaymentFailed, "payment authorization failed")
	}

	payment.Status = domain.PaymentSucceeded
	order.Confirm()

	if _, err := tx.Exec(ctx, `UPDATE payments SET status=$1, updated_at=now() WHERE order_id=$2`, payment.Status, orderID.String()); err != nil {
		return domain.Order{}, domain.Payment{}, domainerrors.Internal(err, "update payment")
	}
	if _, err := tx.Exec(ctx, `UPDATE orders SET status=$1, updated_at=now() WHERE id=$2`, order.Status, orderID.String()); err != nil {
		return domain.Order{}, domain.Payment{}, domainerrors.Internal(err, "update order")
	}

	if err := insertOutboxEvent(ctx, tx, "order", order.ID.String(), "", "order.confirmed", orderConfirmedPayload{
		OrderID: order.ID.String(),
		HoldID:  order.HoldID.String(),
	}); err != nil {
		return domain.Order{}, domain.Payment{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, domain.Payment{}, domainerrors.Internal(err, "commit confirm")
	}
	return order, payment, nil
}

func (r *Repository) Cancel(ctx context.Context, orderID vo.OrderID) (domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Order{}, domainerrors.Internal(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	order, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return domain.Order{}, err
	}

	if order.IsConfirmed() {
		return domain.Order{}, domainerrors.New(domainerrors.KindInvalidStateTransition, "confirmed order cannot be cancelled")
	}
	if order.IsCancelled() {
		return order, tx.Commit(ctx)
	}

	order.Cancel()
	if _, err := tx.Exec(ctx, `UPDATE orders SET status=$1, updated_at=now() WHERE id=$2`, order.Status, orderID.String()); err != nil {
		return domain.Order{}, domainerrors.Internal(err, "update order")
	}

	if err := insertOutboxEvent(ctx, tx, "order", order.ID.String(), "", "order.cancelled", orderConfirmedPayload{
		OrderID: order.ID.String(),
		HoldID:  order.HoldID.String(),
	}); err != nil {
		return domain.Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, domainerrors.Internal(err, "commit cancel")
	}
	return order, nil
}

func (r *Repository) Get(ctx context.Context, orderID vo.OrderID) (domain.Order, error) {
	order, err := scanOrder(ctx, r.pool, `
		SELECT id, customer_email, status, total_amount, idempotency_key, hold_id, created_at, updated_at
		FROM orders WHERE id=$1
	`, orderID.String())
	if err != nil {
		return domain.Order{}, err
	}

	rows, err := r.pool.Query(ctx, `SELECT session_id, ticket_type_id, quantity, unit_price FROM order_items WHERE order_id=$1`, orderID.String())
	if err != nil {
		return domain.Order{}, domainerrors.Internal(err, "query order items")
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.Item
		var price decimal.Decimal
		if err := rows.Scan(&item.SessionID, &item.TicketTypeID, &item.Quantity, &price); err != nil {
			return domain.Order{}, domainerrors.Internal(err, "scan order item")
		}
		money, err := vo.NewMoney(price)
		if err != nil {
			return domain.Order{}, domainerrors.Internal(err, "parse unit price")
		}
		item.UnitPrice = money
		order.Items = append(order.Items, item)
	}
	return order, nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func findByIdempotencyKey(ctx context.Context, tx pgx.Tx, key vo.IdempotencyKey) (domain.Order, bool, error) {
	order, err := scanOrder(ctx, tx, `
		SELECT id, customer_email, status, total_amount, idempotency_key, hold_id, created_at, updated_at
		FROM orders WHERE idempotency_key=$1
	`, key.String())
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, false, nil
	}
	if err != nil {
		return domain.Order{}, false, err
	}
	return order, true, nil
}

func lockOrder(ctx context.Context, tx pgx.Tx, orderID vo.OrderID) (domain.Order, error) {
	order, err := scanOrder(ctx, tx, `
		SELECT id, customer_email, status, total_amount, idempotency_key, hold_id, created_at, updated_at
		FROM orders WHERE id=$1 FOR UPDATE
	`, orderID.String())
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domainerrors.New(domainerrors.KindOrderNotFound, "order not found")
	}
	return order, err
}

func lockPayment(ctx context.Context, tx pgx.Tx, orderID vo.OrderID) (domain.Payment, error) {
	var p domain.Payment
	var amount decimal.Decimal
	var orderIDStr string
	err := tx.QueryRow(ctx, `SELECT order_id, status, amount FROM payments WHERE order_id=$1 FOR UPDATE`, orderID.String()).
		Scan(&orderIDStr, &p.Status, &amount)
	if err != nil {
		return domain.Payment{}, domainerrors.Internal(err, "lock payment")
	}
	oid, err := vo.NewOrderID(orderIDStr)
	if err != nil {
		return domain.Payment{}, domainerrors.Internal(err, "parse order id")
	}
	money, err := vo.NewMoney(amount)
	if err != nil {
		return domain.Payment{}, domainerrors.Internal(err, "parse payment amount")
	}
	p.OrderID = oid
	p.Amount = money
	return p, nil
}

func scanOrder(ctx context.Context, q queryRower, query string, args ...any) (domain.Order, error) {
	var o domain.Order
	var idStr, emailStr, keyStr, holdStr string
	var total decimal.Decimal

	err := q.QueryRow(ctx, query, args...).Scan(&idStr, &emailStr, &o.Status, &total, &keyStr, &holdStr, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return domain.Order{}, err
	}

	id, err := vo.NewOrderID(idStr)
	if err != nil {
		return domain.Order{}, domainerrors.Internal(err, "parse order id")
	}
	email, err := vo.NewEmailAddress(emailStr)
	if err != nil {
		return domain.Order{}, domainerrors.Internal(err, "parse customer email")
	}
	key, err := vo.NewIdempotencyKey(keyStr)
	if err != nil {
		return domain.Order{}, domainerrors.Internal(err, "parse idempotency key")
	}
	hold, err := vo.NewHoldID(holdStr)
	if err != nil {
		return domain.Order{}, domainerrors.Internal(err, "parse hold id")
	}
	money, err := vo.NewMoney(total)
	if err != nil {
		return domain.Order{}, domainerrors.Internal(err, "parse total amount")
	}

	o.ID = id
	o.CustomerEmail = email
	o.IdempotencyKey = key
	o.HoldID = hold
	o.TotalAmount = money
	return o, nil
}

func insertOutboxEvent(ctx context.Context, tx pgx.Tx, aggregateType, aggregateID, idempotencyKey, eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return domainerrors.Internal(err, "marshal outbox payload")
	}
	var idemArg any
	if idempotencyKey != "" {
		idemArg = idempotencyKey
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO outbox (event_id, event_type, aggregate_type, aggregate_id, idempotency_key, payload, occurred_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, now(), 'pending')
	`, vo.NewEventID(), eventType, aggregateType, aggregateID, idemArg, body)
	if err != nil {
		return domainerrors.Internal(err, "insert outbox event")
	}
	return nil
}

type orderConfirmedPayload struct {
	OrderID string `json:"order_id"`
	HoldID  string `json:"hold_id"`
}

func orderPayload(o domain.Order) map[string]any {
	return map[string]any{
		"order_id":     o.ID.String(),
		"hold_id":      o.HoldID.String(),
		"total_amount": o.TotalAmount.String(),
	}
}
