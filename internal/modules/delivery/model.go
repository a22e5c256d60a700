// README: Delivery record and its status lifecycle, mapped one-way onto the order.
package delivery

import (
	"time"

	"mealdrop/internal/modules/order"
	"mealdrop/internal/types"
)

type Status string

const (
	StatusAssigned  Status = "assigned"
	StatusPickedUp  Status = "picked_up"
	StatusInTransit Status = "in_transit"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

var statusRank = map[Status]int{
	StatusAssigned:  0,
	StatusPickedUp:  1,
	StatusInTransit: 2,
	StatusDelivered: 3,
}

func IsTerminal(s Status) bool {
	return s == StatusDelivered || s == StatusFailed
}

// CanAdvance mirrors the order state machine's shape: one step forward, or
// failure from any non-terminal state. A failed delivery is terminal; the
// driver is never reassigned.
func CanAdvance(from, to Status) bool {
	if to == StatusFailed {
		return !IsTerminal(from)
	}
	fr, ok := statusRank[from]
	tr, ok2 := statusRank[to]
	return ok && ok2 && tr == fr+1
}

// orderStatusFor is the fixed delivery→order mapping. It is one-directional:
// the delivery drives the order, never the reverse.
var orderStatusFor = map[Status]order.Status{
	StatusPickedUp:  order.StatusReady,
	StatusInTransit: order.StatusOutForDelivery,
	StatusDelivered: order.StatusDelivered,
	StatusFailed:    order.StatusCancelled,
}

// Delivery binds one order to one driver. The driver is immutable once set;
// exactly one non-terminal delivery may exist per order.
type Delivery struct {
	ID       types.ID
	OrderID  types.ID
	DriverID types.ID
	Status   Status

	DeliveryFee    types.Money
	DriverEarnings types.Money

	PickupTime   *time.Time
	DeliveryTime *time.Time

	CustomerRating   int // 0 until rated
	CustomerFeedback string

	CreatedAt time.Time
}
