package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const orderColumns = `id, user_id, idempotency_key, status, payment_provider, payment_status, currency,
	items, subtotal, tax, shipping, grand_total, cancel_reason, created_at, updated_at`

// PostgresOrderRepository implements OrderRepository and OutboxRepository.
// Every order write and its outbox event share one transaction.
type PostgresOrderRepository struct {
	db *sql.DB
}

func NewPostgresOrderRepository(db *sql.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db}
}

func (r *PostgresOrderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		query := `INSERT INTO orders (` + orderColumns + `)
		          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

		_, err := tx.ExecContext(ctx, query,
			order.ID,
			order.UserID,
			nullableKey(order.IdempotencyKey),
			order.Status,
			order.Payment.Provider,
			order.Payment.Status,
			order.Currency,
			itemsJSON,
			order.Totals.Subtotal,
			order.Totals.Tax,
			order.Totals.Shipping,
			order.Totals.GrandTotal,
			order.CancelReason,
			order.CreatedAt,
			order.UpdatedAt,
		)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return ErrDuplicateOrder
			}
			return fmt.Errorf("insert order: %w", err)
		}
		return insertOutboxEvent(ctx, tx, domain.EventOrderCreated, order)
	})
}

func (r *PostgresOrderRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

func (r *PostgresOrderRepository) GetOrderByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 AND idempotency_key = $2`, userID, key)
	return scanOrder(row)
}

func (r *PostgresOrderRepository) ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error) {
	return r.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *PostgresOrderRepository) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	return r.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
}

func (r *PostgresOrderRepository) queryOrders(ctx context.Context, query string, args ...any) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]*domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return orders, nil
}

func (r *PostgresOrderRepository) UpdateOrderStatus(ctx context.Context, order *domain.Order, from domain.OrderStatus) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE orders SET status = $1, payment_status = $2, cancel_reason = $3, updated_at = $4
			 WHERE id = $5 AND status = $6`,
			order.Status, order.Payment.Status, order.CancelReason, order.UpdatedAt, order.ID, from)
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		if n == 0 {
			var exists bool
			if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, order.ID).Scan(&exists); err != nil {
				return fmt.Errorf("check order: %w", err)
			}
			if !exists {
				return ErrOrderNotFound
			}
			return ErrStatusConflict
		}
		return insertOutboxEvent(ctx, tx, domain.EventOrderStatusChanged, order)
	})
}

func (r *PostgresOrderRepository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, aggregate_id, event_type, payload, created_at
		 FROM outbox_events WHERE processed_at IS NULL ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	events := make([]*OutboxEvent, 0, limit)
	for rows.Next() {
		var ev OutboxEvent
		if err := rows.Scan(&ev.ID, &ev.AggregateID, &ev.EventType, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *PostgresOrderRepository) MarkEventAsProcessed(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE outbox_events SET processed_at = NOW() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("mark outbox event %d: %w", id, err)
	}
	return nil
}

func (r *PostgresOrderRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *PostgresOrderRepository) Close() error {
	return r.db.Close()
}

func (r *PostgresOrderRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func insertOutboxEvent(ctx context.Context, tx *sql.Tx, eventType string, order *domain.Order) error {
	payload, err := json.Marshal(domain.NewOrderEvent(eventType, order))
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO outbox_events (aggregate_id, event_type, payload) VALUES ($1, $2, $3)`,
		order.ID.String(), eventType, payload)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order     domain.Order
		key       sql.NullString
		itemsJSON []byte
	)
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&key,
		&order.Status,
		&order.Payment.Provider,
		&order.Payment.Status,
		&order.Currency,
		&itemsJSON,
		&order.Totals.Subtotal,
		&order.Totals.Tax,
		&order.Totals.Shipping,
		&order.Totals.GrandTotal,
		&order.CancelReason,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}
	order.IdempotencyKey = key.String

	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	return &order, nil
}

func nullableKey(key string) sql.NullString {
	return sql.NullString{String: key, Valid: key != ""}
}
