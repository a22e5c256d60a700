// README: Notification event variants, one per fan-out type.
package notify

import (
	"time"

	"mealdrop/internal/types"
)

type EventType string

const (
	TypeOrderStatusUpdate EventType = "order-status-update"
	TypeNewOrder          EventType = "new-order"
	TypeDeliveryAssigned  EventType = "delivery-assigned"
	TypeOrderCancelled    EventType = "order-cancelled"
)

// Event is the closed set of fan-out payloads. Each variant carries exactly
// the fields its recipients need; the router derives the recipient set from
// the variant, never from optional field probing.
type Event interface {
	EventType() EventType
}

// OrderStatusUpdate fans out to customer, restaurant owner, assigned driver
// (when present) and the restaurant's management channel.
type OrderStatusUpdate struct {
	OrderID      types.ID
	OrderNumber  string
	Status       string
	CustomerID   types.ID
	RestaurantID types.ID
	OwnerID      types.ID
	DriverID     types.ID // empty while unassigned
	At           time.Time
}

func (OrderStatusUpdate) EventType() EventType { return TypeOrderStatusUpdate }

// NewOrder notifies the restaurant owner and the management channel.
type NewOrder struct {
	OrderID      types.ID
	OrderNumber  string
	CustomerID   types.ID
	RestaurantID types.ID
	OwnerID      types.ID
	Total        types.Money
	At           time.Time
}

func (NewOrder) EventType() EventType { return TypeNewOrder }

// DeliveryAssigned notifies the customer and the newly assigned driver.
type DeliveryAssigned struct {
	OrderID     types.ID
	OrderNumber string
	CustomerID  types.ID
	DriverID    types.ID
	At          time.Time
}

func (DeliveryAssigned) EventType() EventType { return TypeDeliveryAssigned }

// OrderCancelled notifies customer, restaurant owner and assigned driver
// (when present).
type OrderCancelled struct {
	OrderID      types.ID
	OrderNumber  string
	Reason       string
	CustomerID   types.ID
	RestaurantID types.ID
	OwnerID      types.ID
	DriverID     types.ID // empty when cancellation precedes assignment
	At           time.Time
}

func (OrderCancelled) EventType() EventType { return TypeOrderCancelled }
