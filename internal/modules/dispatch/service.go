// README: Assignment engine: ranked candidate selection with an exclusive commit and bounded retry.
package dispatch

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"mealdrop/internal/config"
	"mealdrop/internal/geo"
	"mealdrop/internal/modules/catalog"
	"mealdrop/internal/modules/delivery"
	"mealdrop/internal/modules/notify"
	"mealdrop/internal/modules/order"
	"mealdrop/internal/types"
)

var (
	// ErrUnassigned is a legitimate outcome, not a failure: no driver could
	// be claimed and the order stays driver-less for a later retry.
	ErrUnassigned = errors.New("no driver assigned")
	// ErrConflict means another assignment raced ahead on the manual path.
	ErrConflict          = errors.New("assignment conflict")
	ErrAlreadyAssigned   = errors.New("order already has a driver")
	ErrNotDispatchable   = errors.New("order is not awaiting dispatch")
	ErrDriverUnavailable = errors.New("driver is not available")
)

// driverSharePct is the fixed earnings split of the delivery fee. Policy
// constant, not negotiated per order.
const driverSharePct = 80

// CandidateIndex answers ranked radius queries over available drivers.
type CandidateIndex interface {
	FindCandidates(origin types.Point, radiusKm float64) []geo.Candidate
	IsAvailable(id types.ID) bool
}

// Store is the persistence contract. CommitAssignment is the single
// serialization point: it atomically checks that the order has no driver and
// the driver has no active delivery, then binds both.
type Store interface {
	GetOrder(ctx context.Context, id types.ID) (*order.Order, error)
	ListUnassigned(ctx context.Context, limit int) ([]*order.Order, error)
	CommitAssignment(ctx context.Context, orderID, driverID types.ID, d *delivery.Delivery) (bool, error)
}

type Catalog interface {
	GetRestaurant(ctx context.Context, id types.ID) (*catalog.Restaurant, error)
}

type Service struct {
	store   Store
	index   CandidateIndex
	catalog Catalog
	events  *notify.Router
	cfg     config.DispatchConfig
}

func NewService(store Store, index CandidateIndex, cat Catalog, events *notify.Router, cfg config.DispatchConfig) *Service {
	return &Service{store: store, index: index, catalog: cat, events: events, cfg: cfg}
}

type Assignment struct {
	OrderID        types.ID
	DriverID       types.ID
	DeliveryID     types.ID
	DriverEarnings types.Money
}

// Assign finds the best eligible driver near the order's restaurant and
// commits the assignment. On contention it retries with the losing candidate
// excluded, up to the configured attempt bound, then reports ErrUnassigned.
func (s *Service) Assign(ctx context.Context, orderID types.ID) (*Assignment, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.DriverID != nil {
		return nil, ErrAlreadyAssigned
	}
	if order.IsTerminal(o.Status) || o.Status == order.StatusOutForDelivery || o.Status == order.StatusReady {
		return nil, ErrNotDispatchable
	}

	rest, err := s.catalog.GetRestaurant(ctx, o.RestaurantID)
	if err != nil {
		return nil, err
	}

	excluded := make(map[types.ID]bool)
	for attempt := 0; attempt < s.cfg.MaxAttempts; attempt++ {
		head, ok := s.pickCandidate(rest.Location, excluded)
		if !ok {
			return nil, ErrUnassigned
		}
		asn, committed, err := s.commit(ctx, o, head)
		if err != nil {
			return nil, err
		}
		if committed {
			return asn, nil
		}
		// Lost the race for this driver; try the next one.
		excluded[head] = true
	}
	return nil, ErrUnassigned
}

// Accept is the driver-initiated claim of an unassigned order. It goes
// through the same exclusive commit as system dispatch, so both paths race
// identically.
func (s *Service) Accept(ctx context.Context, orderID, driverID types.ID) (*Assignment, error) {
	if !s.index.IsAvailable(driverID) {
		return nil, ErrDriverUnavailable
	}
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.DriverID != nil {
		return nil, ErrAlreadyAssigned
	}
	if order.IsTerminal(o.Status) || o.Status == order.StatusOutForDelivery || o.Status == order.StatusReady {
		return nil, ErrNotDispatchable
	}

	asn, committed, err := s.commit(ctx, o, driverID)
	if err != nil {
		return nil, err
	}
	if !committed {
		return nil, ErrConflict
	}
	return asn, nil
}

// NearbyOrder is an unassigned order within reach of a driver.
type NearbyOrder struct {
	Order      *order.Order
	DistanceKm float64
}

// NearbyUnassigned lists driver-less orders whose restaurant lies within
// radiusKm of the driver, using the same great-circle distance as the
// candidate index.
func (s *Service) NearbyUnassigned(ctx context.Context, at types.Point, radiusKm float64) ([]NearbyOrder, error) {
	orders, err := s.store.ListUnassigned(ctx, 100)
	if err != nil {
		return nil, err
	}
	var out []NearbyOrder
	for _, o := range orders {
		rest, err := s.catalog.GetRestaurant(ctx, o.RestaurantID)
		if err != nil {
			log.Printf("dispatch: nearby lookup restaurant %s: %v", o.RestaurantID, err)
			continue
		}
		d := geo.DistanceKm(at.Lat, at.Lng, rest.Location.Lat, rest.Location.Lng)
		if d <= radiusKm {
			out = append(out, NearbyOrder{Order: o, DistanceKm: d})
		}
	}
	return out, nil
}

// RunSweeper periodically retries assignment for orders still waiting on a
// driver. ErrUnassigned is expected between pings; anything else is logged.
func (s *Service) RunSweeper(ctx context.Context) {
	tick := time.Duration(s.cfg.SweepSeconds) * time.Second
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Service) sweep(ctx context.Context) {
	orders, err := s.store.ListUnassigned(ctx, 50)
	if err != nil {
		log.Printf("dispatch: sweep list: %v", err)
		return
	}
	for _, o := range orders {
		if _, err := s.Assign(ctx, o.ID); err != nil {
			if errors.Is(err, ErrUnassigned) || errors.Is(err, ErrAlreadyAssigned) {
				continue
			}
			log.Printf("dispatch: sweep assign %s: %v", o.ID, err)
		}
	}
}

func (s *Service) pickCandidate(origin types.Point, excluded map[types.ID]bool) (types.ID, bool) {
	for _, c := range s.index.FindCandidates(origin, s.cfg.RadiusKm) {
		if !excluded[c.DriverID] {
			return c.DriverID, true
		}
	}
	return "", false
}

func (s *Service) commit(ctx context.Context, o *order.Order, driverID types.ID) (*Assignment, bool, error) {
	earnings, _ := o.DeliveryFee.Split(driverSharePct)
	d := &delivery.Delivery{
		ID:             types.ID(uuid.NewString()),
		OrderID:        o.ID,
		DriverID:       driverID,
		Status:         delivery.StatusAssigned,
		DeliveryFee:    o.DeliveryFee,
		DriverEarnings: earnings,
		CreatedAt:      time.Now(),
	}
	committed, err := s.store.CommitAssignment(ctx, o.ID, driverID, d)
	if err != nil {
		return nil, false, err
	}
	if !committed {
		return nil, false, nil
	}

	s.events.Route(ctx, notify.DeliveryAssigned{
		OrderID:     o.ID,
		OrderNumber: o.Number,
		CustomerID:  o.CustomerID,
		DriverID:    driverID,
		At:          time.Now(),
	})
	return &Assignment{
		OrderID:        o.ID,
		DriverID:       driverID,
		DeliveryID:     d.ID,
		DriverEarnings: earnings,
	}, true, nil
}
