// README: Delivery tracker: driver-authorized status advances kept atomic with the order.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"mealdrop/internal/modules/catalog"
	"mealdrop/internal/modules/notify"
	"mealdrop/internal/modules/order"
	"mealdrop/internal/types"
)

var (
	ErrNotFound     = errors.New("delivery not found")
	ErrUnauthorized = errors.New("actor is not the assigned driver")
	ErrConflict     = errors.New("delivery state conflict")
	ErrBadRequest   = errors.New("bad request")
	ErrNotDelivered = errors.New("delivery is not completed")
)

// Store persists deliveries; Advance mutates the delivery and its parent
// order in one transaction or not at all.
type Store interface {
	Get(ctx context.Context, id types.ID) (*Delivery, error)
	GetByOrder(ctx context.Context, orderID types.ID) (*Delivery, error)
	ListByDriver(ctx context.Context, driverID types.ID) ([]*Delivery, error)
	GetOrder(ctx context.Context, id types.ID) (*order.Order, error)
	Advance(ctx context.Context, p AdvanceParams) (bool, error)
	SetRating(ctx context.Context, id types.ID, rating int, feedback string) error
}

// AdvanceParams carries both sides of the atomic update, each guarded by its
// own compare-and-swap.
type AdvanceParams struct {
	DeliveryID   types.ID
	FromDelivery Status
	ToDelivery   Status

	OrderID      types.ID
	FromOrder    order.Status
	ToOrder      order.Status
	OrderVersion int
	CancelReason *string
}

// Catalog resolves the restaurant owner for fan-out.
type Catalog interface {
	GetRestaurant(ctx context.Context, id types.ID) (*catalog.Restaurant, error)
}

// Ratings receives completed-delivery rating samples (feeds driver ranking).
type Ratings interface {
	AddRatingSample(id types.ID, rating int)
}

type Service struct {
	store   Store
	catalog Catalog
	ratings Ratings
	events  *notify.Router
}

func NewService(store Store, cat Catalog, ratings Ratings, events *notify.Router) *Service {
	return &Service{store: store, catalog: cat, ratings: ratings, events: events}
}

type AdvanceCommand struct {
	DeliveryID types.ID
	To         Status
	ActorID    types.ID
}

// Advance moves the delivery to the requested status on behalf of its
// driver. The implied order transition is validated first and both records
// change together; a rejected order-side transition leaves the delivery
// untouched. Re-applying the current status is a no-op.
func (s *Service) Advance(ctx context.Context, cmd AdvanceCommand) (*order.Order, *Delivery, error) {
	d, err := s.store.Get(ctx, cmd.DeliveryID)
	if err != nil {
		return nil, nil, err
	}
	if d.DriverID != cmd.ActorID {
		return nil, nil, ErrUnauthorized
	}

	o, err := s.store.GetOrder(ctx, d.OrderID)
	if err != nil {
		return nil, nil, err
	}

	// Idempotent re-apply: no timestamps restamped, no second fan-out.
	if d.Status == cmd.To {
		return o, d, nil
	}
	if !CanAdvance(d.Status, cmd.To) {
		return nil, nil, fmt.Errorf("%w: delivery %s -> %s", ErrConflict, d.Status, cmd.To)
	}

	target, ok := orderStatusFor[cmd.To]
	if !ok {
		return nil, nil, ErrBadRequest
	}
	if !order.CanTransition(o.Status, target) {
		return nil, nil, fmt.Errorf("%w: %s -> %s", order.ErrInvalidTransition, o.Status, target)
	}

	p := AdvanceParams{
		DeliveryID:   d.ID,
		FromDelivery: d.Status,
		ToDelivery:   cmd.To,
		OrderID:      o.ID,
		FromOrder:    o.Status,
		ToOrder:      target,
		OrderVersion: o.StatusVersion,
	}
	if cmd.To == StatusFailed {
		reason := "delivery failed"
		p.CancelReason = &reason
	}

	committed, err := s.store.Advance(ctx, p)
	if err != nil {
		return nil, nil, err
	}
	if !committed {
		return nil, nil, ErrConflict
	}

	updatedOrder, err := s.store.GetOrder(ctx, o.ID)
	if err != nil {
		return nil, nil, err
	}
	updatedDelivery, err := s.store.Get(ctx, d.ID)
	if err != nil {
		return nil, nil, err
	}

	s.routeStatusUpdate(ctx, updatedOrder)
	return updatedOrder, updatedDelivery, nil
}

type RateCommand struct {
	DeliveryID types.ID
	Rating     int
	Feedback   string
}

// Rate records the customer's rating on a completed delivery and feeds the
// driver's ranking score.
func (s *Service) Rate(ctx context.Context, cmd RateCommand) error {
	if cmd.Rating < 1 || cmd.Rating > 5 {
		return ErrBadRequest
	}
	d, err := s.store.Get(ctx, cmd.DeliveryID)
	if err != nil {
		return err
	}
	if d.Status != StatusDelivered {
		return ErrNotDelivered
	}
	if err := s.store.SetRating(ctx, d.ID, cmd.Rating, cmd.Feedback); err != nil {
		return err
	}
	s.ratings.AddRatingSample(d.DriverID, cmd.Rating)
	return nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Delivery, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) GetByOrder(ctx context.Context, orderID types.ID) (*Delivery, error) {
	return s.store.GetByOrder(ctx, orderID)
}

func (s *Service) ListByDriver(ctx context.Context, driverID types.ID) ([]*Delivery, error) {
	return s.store.ListByDriver(ctx, driverID)
}

func (s *Service) routeStatusUpdate(ctx context.Context, o *order.Order) {
	rest, err := s.catalog.GetRestaurant(ctx, o.RestaurantID)
	if err != nil {
		log.Printf("delivery: status fan-out for %s: %v", o.ID, err)
		return
	}
	ev := notify.OrderStatusUpdate{
		OrderID:      o.ID,
		OrderNumber:  o.Number,
		Status:       string(o.Status),
		CustomerID:   o.CustomerID,
		RestaurantID: o.RestaurantID,
		OwnerID:      rest.OwnerID,
		At:           time.Now(),
	}
	if o.DriverID != nil {
		ev.DriverID = *o.DriverID
	}
	s.events.Route(ctx, ev)
}
