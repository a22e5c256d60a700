// README: Order aggregate, status lifecycle, and payment status definitions.
package order

import (
	"time"

	"mealdrop/internal/types"
)

type Status string

const (
	StatusPending        Status = "pending"
	StatusConfirmed      Status = "confirmed"
	StatusPreparing      Status = "preparing"
	StatusReady          Status = "ready"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

// happyPathRank orders the non-cancelled lifecycle. A forward transition is
// legal only between adjacent ranks; skipping or moving backward is not.
var happyPathRank = map[Status]int{
	StatusPending:        0,
	StatusConfirmed:      1,
	StatusPreparing:      2,
	StatusReady:          3,
	StatusOutForDelivery: 4,
	StatusDelivered:      5,
}

func IsTerminal(s Status) bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition reports whether from→to is legal: exactly one step along the
// happy path, or a cancellation from any non-terminal state.
func CanTransition(from, to Status) bool {
	if to == StatusCancelled {
		return !IsTerminal(from)
	}
	fr, ok := happyPathRank[from]
	tr, ok2 := happyPathRank[to]
	return ok && ok2 && tr == fr+1
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type Item struct {
	MenuItemID          types.ID
	Name                string
	Quantity            int
	UnitPrice           types.Money
	SpecialInstructions string
}

type Order struct {
	ID           types.ID
	Number       string
	CustomerID   types.ID
	RestaurantID types.ID
	Items        []Item

	// Totals are derived at checkout and never rewritten afterwards;
	// refunds and cancellations do not touch them.
	Subtotal    types.Money
	DeliveryFee types.Money
	Tax         types.Money
	Tip         types.Money
	Total       types.Money

	Status        Status
	StatusVersion int
	PaymentStatus PaymentStatus

	// DriverID is set at most once, by a successful assignment commit.
	DriverID *types.ID

	EstimatedDeliveryTime time.Time
	ActualDeliveryTime    *time.Time
	CreatedAt             time.Time
	CancelledAt           *time.Time
	CancelReason          *string
}
