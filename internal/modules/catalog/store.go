// README: Catalog store backed by PostgreSQL (read-only lookups).
package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mealdrop/internal/types"
)

var ErrNotFound = errors.New("catalog entry not found")

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) GetRestaurant(ctx context.Context, id types.ID) (*Restaurant, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, owner_id, name, lat, lng, delivery_fee, prep_time_minutes
		FROM restaurants
		WHERE id = $1`, string(id),
	)

	var r Restaurant
	err := row.Scan(&r.ID, &r.OwnerID, &r.Name, &r.Location.Lat, &r.Location.Lng,
		&r.DeliveryFee.Amount, &r.PrepTimeMinutes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.DeliveryFee.Currency = "USD"
	return &r, nil
}

func (s *Store) GetMenuItem(ctx context.Context, id types.ID) (*MenuItem, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, restaurant_id, name, price, is_available
		FROM menu_items
		WHERE id = $1`, string(id),
	)

	var m MenuItem
	err := row.Scan(&m.ID, &m.RestaurantID, &m.Name, &m.Price.Amount, &m.IsAvailable)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	m.Price.Currency = "USD"
	return &m, nil
}
