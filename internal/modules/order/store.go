// README: Order store backed by PostgreSQL with optimistic status CAS.
package order

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mealdrop/internal/types"
)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, o *Order) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (
			id, order_number, customer_id, restaurant_id,
			subtotal, delivery_fee, tax, tip, total,
			status, status_version, payment_status,
			estimated_delivery_time, created_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9,
			$10, $11, $12,
			$13, $14
		)`,
		string(o.ID), o.Number, string(o.CustomerID), string(o.RestaurantID),
		o.Subtotal.Amount, o.DeliveryFee.Amount, o.Tax.Amount, o.Tip.Amount, o.Total.Amount,
		string(o.Status), o.StatusVersion, string(o.PaymentStatus),
		o.EstimatedDeliveryTime, o.CreatedAt,
	)
	if err != nil {
		return err
	}

	for _, it := range o.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (
				order_id, menu_item_id, name, quantity, unit_price, special_instructions
			) VALUES ($1, $2, $3, $4, $5, $6)`,
			string(o.ID), string(it.MenuItemID), it.Name, it.Quantity,
			it.UnitPrice.Amount, it.SpecialInstructions,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) Get(ctx context.Context, id types.ID) (*Order, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, order_number, customer_id, restaurant_id,
		       subtotal, delivery_fee, tax, tip, total,
		       status, status_version, payment_status, driver_id,
		       estimated_delivery_time, actual_delivery_time,
		       created_at, cancelled_at, cancel_reason
		FROM orders
		WHERE id = $1`, string(id),
	)

	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT menu_item_id, name, quantity, unit_price, special_instructions
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`, string(id),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.MenuItemID, &it.Name, &it.Quantity, &it.UnitPrice.Amount, &it.SpecialInstructions); err != nil {
			return nil, err
		}
		it.UnitPrice.Currency = "USD"
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return o, nil
}

// UpdateStatus applies a CAS on (status, status_version) and stamps the
// per-status timestamps in the same statement.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, cancelReason *string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET status = $1,
		    status_version = status_version + 1,
		    actual_delivery_time = CASE WHEN $1 = 'delivered' THEN NOW() ELSE actual_delivery_time END,
		    cancelled_at = CASE WHEN $1 = 'cancelled' THEN NOW() ELSE cancelled_at END,
		    cancel_reason = COALESCE($2, cancel_reason)
		WHERE id = $3 AND status = $4 AND status_version = $5`,
		string(to), cancelReason, string(id), string(from), version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) SetPaymentStatus(ctx context.Context, id types.ID, ps PaymentStatus) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders SET payment_status = $1 WHERE id = $2`,
		string(ps), string(id),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

// ListUnassigned returns driver-less orders still worth dispatching, oldest
// first, for the background sweep.
func (s *PostgresStore) ListUnassigned(ctx context.Context, limit int) ([]*Order, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, order_number, customer_id, restaurant_id,
		       subtotal, delivery_fee, tax, tip, total,
		       status, status_version, payment_status, driver_id,
		       estimated_delivery_time, actual_delivery_time,
		       created_at, cancelled_at, cancel_reason
		FROM orders
		WHERE driver_id IS NULL
		  AND status IN ('pending', 'confirmed', 'preparing')
		ORDER BY created_at
		LIMIT $1`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var o Order
	var driverID, cancelReason *string
	var actualDelivery, cancelledAt *time.Time

	err := row.Scan(
		&o.ID, &o.Number, &o.CustomerID, &o.RestaurantID,
		&o.Subtotal.Amount, &o.DeliveryFee.Amount, &o.Tax.Amount, &o.Tip.Amount, &o.Total.Amount,
		&o.Status, &o.StatusVersion, &o.PaymentStatus, &driverID,
		&o.EstimatedDeliveryTime, &actualDelivery,
		&o.CreatedAt, &cancelledAt, &cancelReason,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	for _, m := range []*types.Money{&o.Subtotal, &o.DeliveryFee, &o.Tax, &o.Tip, &o.Total} {
		m.Currency = "USD"
	}
	if driverID != nil {
		d := types.ID(*driverID)
		o.DriverID = &d
	}
	o.ActualDeliveryTime = actualDelivery
	o.CancelledAt = cancelledAt
	o.CancelReason = cancelReason
	return &o, nil
}
