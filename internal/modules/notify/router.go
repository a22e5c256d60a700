// README: Notification router; derives recipients per event and publishes best-effort.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"mealdrop/internal/types"
)

// Transport is the publish primitive the router fans out through. Recipients
// are addressed by stable channel identifiers.
type Transport interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

func UserChannel(id types.ID) string       { return "user-" + string(id) }
func RestaurantChannel(id types.ID) string { return "restaurant-" + string(id) }

const publishTimeout = 2 * time.Second

type Router struct {
	transport Transport
}

func NewRouter(t Transport) *Router {
	return &Router{transport: t}
}

// recipient is one (channel, role, message) fan-out target.
type recipient struct {
	channel string
	role    string
	message string
}

// envelope is the wire payload every recipient receives.
type envelope struct {
	Type        EventType `json:"type"`
	OrderID     types.ID  `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Status      string    `json:"status,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Role        string    `json:"role"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
}

// Route fans the event out to its derived recipients and returns how many
// were delivered. Delivery is best-effort: a failed publish is logged and
// dropped, never surfaced to the state mutation that produced the event.
func (r *Router) Route(ctx context.Context, ev Event) int {
	// The originating request context may already be cancelled by the time
	// we publish; notifications ride on their own deadline.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	delivered := 0
	for _, rc := range recipients(ev) {
		payload, err := json.Marshal(buildEnvelope(ev, rc))
		if err != nil {
			log.Printf("notify: drop %s for %s: marshal: %v", ev.EventType(), rc.channel, err)
			continue
		}
		if err := r.transport.Publish(ctx, rc.channel, payload); err != nil {
			log.Printf("notify: drop %s for %s: transport: %v", ev.EventType(), rc.channel, err)
			continue
		}
		delivered++
	}
	return delivered
}

func recipients(ev Event) []recipient {
	switch e := ev.(type) {
	case OrderStatusUpdate:
		out := []recipient{
			{UserChannel(e.CustomerID), RoleCustomer, statusMessage(e.Status, RoleCustomer)},
			{UserChannel(e.OwnerID), RoleRestaurant, statusMessage(e.Status, RoleRestaurant)},
		}
		if e.DriverID != "" {
			out = append(out, recipient{UserChannel(e.DriverID), RoleDriver, statusMessage(e.Status, RoleDriver)})
		}
		out = append(out, recipient{RestaurantChannel(e.RestaurantID), RoleRestaurant, statusMessage(e.Status, RoleRestaurant)})
		return out

	case NewOrder:
		msg := fmt.Sprintf("New order #%s (%s)", e.OrderNumber, e.Total)
		return []recipient{
			{UserChannel(e.OwnerID), RoleRestaurant, msg},
			{RestaurantChannel(e.RestaurantID), RoleRestaurant, msg},
		}

	case DeliveryAssigned:
		return []recipient{
			{UserChannel(e.CustomerID), RoleCustomer, fmt.Sprintf("A driver has been assigned to your order #%s", e.OrderNumber)},
			{UserChannel(e.DriverID), RoleDriver, fmt.Sprintf("You have been assigned order #%s", e.OrderNumber)},
		}

	case OrderCancelled:
		out := []recipient{
			{UserChannel(e.CustomerID), RoleCustomer, cancelMessage(e, RoleCustomer)},
			{UserChannel(e.OwnerID), RoleRestaurant, cancelMessage(e, RoleRestaurant)},
		}
		if e.DriverID != "" {
			out = append(out, recipient{UserChannel(e.DriverID), RoleDriver, cancelMessage(e, RoleDriver)})
		}
		return out
	}
	return nil
}

func buildEnvelope(ev Event, rc recipient) envelope {
	env := envelope{Type: ev.EventType(), Role: rc.role, Message: rc.message}
	switch e := ev.(type) {
	case OrderStatusUpdate:
		env.OrderID, env.OrderNumber, env.Status, env.Timestamp = e.OrderID, e.OrderNumber, e.Status, e.At
	case NewOrder:
		env.OrderID, env.OrderNumber, env.Timestamp = e.OrderID, e.OrderNumber, e.At
	case DeliveryAssigned:
		env.OrderID, env.OrderNumber, env.Timestamp = e.OrderID, e.OrderNumber, e.At
	case OrderCancelled:
		env.OrderID, env.OrderNumber, env.Reason, env.Timestamp = e.OrderID, e.OrderNumber, e.Reason, e.At
	}
	return env
}
