// README: Dispatch store backed by PostgreSQL; the exclusive commit is one transaction.
package dispatch

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"mealdrop/internal/modules/delivery"
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

func (s *PostgresStore) GetOrder(ctx context.Context, id types.ID) (*order.Order, error) {
	return s.orders.Get(ctx, id)
}

func (s *PostgresStore) ListUnassigned(ctx context.Context, limit int) ([]*order.Order, error) {
	return s.orders.ListUnassigned(ctx, limit)
}

// CommitAssignment binds the order to the driver and creates the delivery
// row in one transaction. The order-side UPDATE carries the "no driver yet"
// predicate; the deliveries table's partial unique index on active
// (driver_id) rejects a driver who already carries a live delivery. Either
// miss rolls the whole commit back and reports false.
func (s *PostgresStore) CommitAssignment(ctx context.Context, orderID, driverID types.ID, d *delivery.Delivery) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET driver_id = $1
		WHERE id = $2
		  AND driver_id IS NULL
		  AND status IN ('pending', 'confirmed', 'preparing')`,
		string(driverID), string(orderID),
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO deliveries (
			id, order_id, driver_id, status,
			delivery_fee, driver_earnings, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(d.ID), string(d.OrderID), string(d.DriverID), string(d.Status),
		d.DeliveryFee.Amount, d.DriverEarnings.Amount, d.CreatedAt,
	)
	if err != nil {
		// Unique violations mean the driver is busy or the order already
		// has a delivery: an assignment conflict, not an infrastructure
		// failure.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, nil
		}
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}
