// README: Delivery store backed by PostgreSQL; advance is a two-row CAS transaction.
package delivery

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mealdrop/internal/modules/order"
	"mealdrop/internal/types"
)

type PostgresStore struct {
	db     *pgxpool.Pool
	orders *order.PostgresStore
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db, orders: order.NewPostgresStore(db)}
}

const deliveryColumns = `
	id, order_id, driver_id, status,
	delivery_fee, driver_earnings,
	pickup_time, delivery_time,
	customer_rating, customer_feedback, created_at`

func (s *PostgresStore) Get(ctx context.Context, id types.ID) (*Delivery, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+deliveryColumns+`
		FROM deliveries
		WHERE id = $1`, string(id),
	)
	return scanDelivery(row)
}

func (s *PostgresStore) GetByOrder(ctx context.Context, orderID types.ID) (*Delivery, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+deliveryColumns+`
		FROM deliveries
		WHERE order_id = $1`, string(orderID),
	)
	return scanDelivery(row)
}

func (s *PostgresStore) ListByDriver(ctx context.Context, driverID types.ID) ([]*Delivery, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+deliveryColumns+`
		FROM deliveries
		WHERE driver_id = $1
		ORDER BY created_at DESC`, string(driverID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetOrder(ctx context.Context, id types.ID) (*order.Order, error) {
	return s.orders.Get(ctx, id)
}

// Advance updates the delivery and the parent order in one transaction.
// Each UPDATE carries its own CAS predicate; if either misses, the whole
// transaction rolls back and the caller sees a conflict.
func (s *PostgresStore) Advance(ctx context.Context, p AdvanceParams) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE deliveries
		SET status = $1,
		    pickup_time = CASE WHEN $1 = 'picked_up' THEN NOW() ELSE pickup_time END,
		    delivery_time = CASE WHEN $1 = 'delivered' THEN NOW() ELSE delivery_time END
		WHERE id = $2 AND status = $3`,
		string(p.ToDelivery), string(p.DeliveryID), string(p.FromDelivery),
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}

	tag, err = tx.Exec(ctx, `
		UPDATE orders
		SET status = $1,
		    status_version = status_version + 1,
		    actual_delivery_time = CASE WHEN $1 = 'delivered' THEN NOW() ELSE actual_delivery_time END,
		    cancelled_at = CASE WHEN $1 = 'cancelled' THEN NOW() ELSE cancelled_at END,
		    cancel_reason = COALESCE($2, cancel_reason)
		WHERE id = $3 AND status = $4 AND status_version = $5`,
		string(p.ToOrder), p.CancelReason, string(p.OrderID), string(p.FromOrder), p.OrderVersion,
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *PostgresStore) SetRating(ctx context.Context, id types.ID, rating int, feedback string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE deliveries
		SET customer_rating = $1, customer_feedback = $2
		WHERE id = $3`,
		rating, feedback, string(id),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDelivery(row rowScanner) (*Delivery, error) {
	var d Delivery
	err := row.Scan(
		&d.ID, &d.OrderID, &d.DriverID, &d.Status,
		&d.DeliveryFee.Amount, &d.DriverEarnings.Amount,
		&d.PickupTime, &d.DeliveryTime,
		&d.CustomerRating, &d.CustomerFeedback, &d.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.DeliveryFee.Currency = "USD"
	d.DriverEarnings.Currency = "USD"
	return &d, nil
}
