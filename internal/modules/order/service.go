// README: Order service: checkout totals, restaurant status advances, cancellation policy.
package order

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"mealdrop/internal/modules/catalog"
	"mealdrop/internal/modules/notify"
	"mealdrop/internal/modules/profile"
	"mealdrop/internal/types"
)

var (
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrNotFound          = errors.New("order not found")
	ErrConflict          = errors.New("order state conflict")
	ErrUnauthorized      = errors.New("actor not allowed to perform this operation")
	ErrBadRequest        = errors.New("bad request")
	ErrItemUnavailable   = errors.New("menu item unavailable")
)

// taxRatePct is the flat sales tax applied to the item subtotal.
const taxRatePct = 8.0

// Catalog is the read-only lookup collaborator used at checkout.
type Catalog interface {
	GetRestaurant(ctx context.Context, id types.ID) (*catalog.Restaurant, error)
	GetMenuItem(ctx context.Context, id types.ID) (*catalog.MenuItem, error)
}

// Payments is the external payment collaborator; the service requests
// captures and refunds but only reacts to outcomes reported back through
// RecordPaymentResult.
type Payments interface {
	Capture(ctx context.Context, orderID types.ID, amount types.Money) error
	Refund(ctx context.Context, orderID types.ID, amount types.Money) error
}

// History receives one entry per checkout; trimming is the store's concern.
type History interface {
	AppendOrderHistory(ctx context.Context, customerID types.ID, e profile.HistoryEntry) error
}

// Store is the persistence contract. UpdateStatus is an optimistic
// compare-and-swap keyed on (current status, status version).
type Store interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id types.ID) (*Order, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, cancelReason *string) (bool, error)
	SetPaymentStatus(ctx context.Context, id types.ID, ps PaymentStatus) error
}

type Service struct {
	store    Store
	catalog  Catalog
	payments Payments
	history  History
	events   *notify.Router
}

func NewService(store Store, cat Catalog, payments Payments, history History, events *notify.Router) *Service {
	return &Service{store: store, catalog: cat, payments: payments, history: history, events: events}
}

type CheckoutItem struct {
	MenuItemID          types.ID
	Quantity            int
	SpecialInstructions string
}

type CheckoutCommand struct {
	CustomerID   types.ID
	RestaurantID types.ID
	Items        []CheckoutItem
	TipCents     int64
}

// Checkout validates the cart against the menu, computes totals, and creates
// the order in pending state. Prices come from the catalog, never the request.
func (s *Service) Checkout(ctx context.Context, cmd CheckoutCommand) (*Order, error) {
	if cmd.CustomerID == "" || cmd.RestaurantID == "" || len(cmd.Items) == 0 {
		return nil, ErrBadRequest
	}
	if cmd.TipCents < 0 {
		return nil, ErrBadRequest
	}

	rest, err := s.catalog.GetRestaurant(ctx, cmd.RestaurantID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, fmt.Errorf("%w: restaurant %s", ErrBadRequest, cmd.RestaurantID)
		}
		return nil, err
	}

	subtotal := types.USD(0)
	items := make([]Item, 0, len(cmd.Items))
	for _, ci := range cmd.Items {
		if ci.Quantity < 1 {
			return nil, ErrBadRequest
		}
		mi, err := s.catalog.GetMenuItem(ctx, ci.MenuItemID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return nil, fmt.Errorf("%w: menu item %s", ErrBadRequest, ci.MenuItemID)
			}
			return nil, err
		}
		if mi.RestaurantID != cmd.RestaurantID {
			return nil, fmt.Errorf("%w: menu item %s belongs to another restaurant", ErrBadRequest, ci.MenuItemID)
		}
		if !mi.IsAvailable {
			return nil, fmt.Errorf("%w: %s", ErrItemUnavailable, mi.Name)
		}
		items = append(items, Item{
			MenuItemID:          mi.ID,
			Name:                mi.Name,
			Quantity:            ci.Quantity,
			UnitPrice:           mi.Price,
			SpecialInstructions: ci.SpecialInstructions,
		})
		subtotal = subtotal.Add(types.USD(mi.Price.Amount * int64(ci.Quantity)))
	}

	tax := subtotal.Percent(taxRatePct)
	tip := types.USD(cmd.TipCents)
	total := subtotal.Add(rest.DeliveryFee).Add(tax).Add(tip)

	now := time.Now()
	o := &Order{
		ID:                    types.ID(uuid.NewString()),
		Number:                newOrderNumber(now),
		CustomerID:            cmd.CustomerID,
		RestaurantID:          cmd.RestaurantID,
		Items:                 items,
		Subtotal:              subtotal,
		DeliveryFee:           rest.DeliveryFee,
		Tax:                   tax,
		Tip:                   tip,
		Total:                 total,
		Status:                StatusPending,
		PaymentStatus:         PaymentPending,
		EstimatedDeliveryTime: now.Add(time.Duration(rest.PrepTimeMinutes) * time.Minute),
		CreatedAt:             now,
	}
	if err := s.store.Create(ctx, o); err != nil {
		return nil, err
	}

	if err := s.payments.Capture(ctx, o.ID, o.Total); err != nil {
		// The gateway reports the final outcome through its callback; a
		// failed request here just leaves the order awaiting payment.
		log.Printf("order: capture request for %s: %v", o.ID, err)
	}

	menuItemIDs := make([]types.ID, len(items))
	for i, it := range items {
		menuItemIDs[i] = it.MenuItemID
	}
	if err := s.history.AppendOrderHistory(ctx, cmd.CustomerID, profile.HistoryEntry{
		RestaurantID: cmd.RestaurantID,
		MenuItemIDs:  menuItemIDs,
		OrderedAt:    now,
	}); err != nil {
		// The projection is advisory; a failed append never voids a checkout.
		log.Printf("order: history append for %s: %v", o.ID, err)
	}

	s.events.Route(ctx, notify.NewOrder{
		OrderID:      o.ID,
		OrderNumber:  o.Number,
		CustomerID:   o.CustomerID,
		RestaurantID: o.RestaurantID,
		OwnerID:      rest.OwnerID,
		Total:        o.Total,
		At:           now,
	})
	return o, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Order, error) {
	return s.store.Get(ctx, id)
}

type AdvanceCommand struct {
	OrderID types.ID
	To      Status
}

// Advance moves the order one step along the happy path (a restaurant or
// admin action). The kitchen stops at preparing: ready and the stages beyond
// are stamped by the delivery lifecycle. Cancellation has its own path with
// its own policy.
func (s *Service) Advance(ctx context.Context, cmd AdvanceCommand) (*Order, error) {
	if cmd.To == StatusCancelled {
		return nil, ErrBadRequest
	}
	if r, ok := happyPathRank[cmd.To]; !ok || r > happyPathRank[StatusPreparing] {
		return nil, fmt.Errorf("%w: %s is not a kitchen status", ErrBadRequest, cmd.To)
	}
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, cmd.To) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, cmd.To)
	}
	ok, err := s.store.UpdateStatus(ctx, o.ID, o.Status, cmd.To, o.StatusVersion, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}

	updated, err := s.store.Get(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	s.routeStatusUpdate(ctx, updated)
	return updated, nil
}

type CancelActor string

const (
	ActorCustomer CancelActor = "customer"
	ActorDriver   CancelActor = "driver"
	ActorAdmin    CancelActor = "admin"
)

type CancelCommand struct {
	OrderID types.ID
	Actor   CancelActor
	Reason  string
}

// Cancel applies the cancellation policy: customers may cancel only while
// pending or confirmed; later stages are driver/admin only, and any other
// actor is rejected outright. Paid orders get a refund request to the
// payment collaborator.
func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*Order, error) {
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if IsTerminal(o.Status) {
		return nil, fmt.Errorf("%w: cannot cancel a %s order", ErrInvalidTransition, o.Status)
	}
	switch cmd.Actor {
	case ActorCustomer:
		if o.Status != StatusPending && o.Status != StatusConfirmed {
			return nil, fmt.Errorf("%w: a %s order can no longer be cancelled by the customer", ErrUnauthorized, o.Status)
		}
	case ActorDriver, ActorAdmin:
	default:
		return nil, fmt.Errorf("%w: %q may not cancel orders", ErrUnauthorized, cmd.Actor)
	}

	reason := cmd.Reason
	ok, err := s.store.UpdateStatus(ctx, o.ID, o.Status, StatusCancelled, o.StatusVersion, &reason)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}

	if o.PaymentStatus == PaymentPaid {
		if err := s.payments.Refund(ctx, o.ID, o.Total); err != nil {
			// The refund is retried out of band; the cancellation stands.
			log.Printf("order: refund request for %s: %v", o.ID, err)
		} else if err := s.store.SetPaymentStatus(ctx, o.ID, PaymentRefunded); err != nil {
			log.Printf("order: mark refunded %s: %v", o.ID, err)
		}
	}

	updated, err := s.store.Get(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	s.routeCancelled(ctx, updated, reason)
	return updated, nil
}

// RecordPaymentResult reacts to an outcome reported by the payment
// collaborator; no payment logic lives here.
func (s *Service) RecordPaymentResult(ctx context.Context, orderID types.ID, ps PaymentStatus) error {
	switch ps {
	case PaymentPaid, PaymentFailed, PaymentRefunded:
	default:
		return ErrBadRequest
	}
	if _, err := s.store.Get(ctx, orderID); err != nil {
		return err
	}
	return s.store.SetPaymentStatus(ctx, orderID, ps)
}

func (s *Service) routeStatusUpdate(ctx context.Context, o *Order) {
	rest, err := s.catalog.GetRestaurant(ctx, o.RestaurantID)
	if err != nil {
		log.Printf("order: status fan-out for %s: %v", o.ID, err)
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

func (s *Service) routeCancelled(ctx context.Context, o *Order, reason string) {
	rest, err := s.catalog.GetRestaurant(ctx, o.RestaurantID)
	if err != nil {
		log.Printf("order: cancel fan-out for %s: %v", o.ID, err)
		return
	}
	ev := notify.OrderCancelled{
		OrderID:      o.ID,
		OrderNumber:  o.Number,
		Reason:       reason,
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

func newOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), uuid.NewString()[:4])
}
