// README: Customer order-history projection, capped at the most recent entries.
package profile

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"mealdrop/internal/types"
)

// historyLimit caps the projection; the trim lives here, in the owning
// store, not at the call sites that append.
const historyLimit = 50

type HistoryEntry struct {
	RestaurantID types.ID
	MenuItemIDs  []types.ID
	OrderedAt    time.Time
}

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// AppendOrderHistory records one checkout and drops entries beyond the cap.
func (s *Store) AppendOrderHistory(ctx context.Context, customerID types.ID, e HistoryEntry) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	items := make([]string, len(e.MenuItemIDs))
	for i, id := range e.MenuItemIDs {
		items[i] = string(id)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO customer_order_history (customer_id, restaurant_id, menu_item_ids, ordered_at)
		VALUES ($1, $2, $3, $4)`,
		string(customerID), string(e.RestaurantID), items, e.OrderedAt,
	)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		DELETE FROM customer_order_history
		WHERE customer_id = $1
		  AND id NOT IN (
			SELECT id FROM customer_order_history
			WHERE customer_id = $1
			ORDER BY ordered_at DESC, id DESC
			LIMIT $2
		  )`,
		string(customerID), historyLimit,
	)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// RecentOrders returns the projection, newest first.
func (s *Store) RecentOrders(ctx context.Context, customerID types.ID) ([]HistoryEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT restaurant_id, menu_item_ids, ordered_at
		FROM customer_order_history
		WHERE customer_id = $1
		ORDER BY ordered_at DESC, id DESC`,
		string(customerID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var items []string
		if err := rows.Scan(&e.RestaurantID, &items, &e.OrderedAt); err != nil {
			return nil, err
		}
		e.MenuItemIDs = make([]types.ID, len(items))
		for i, id := range items {
			e.MenuItemIDs[i] = types.ID(id)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
