// README: Role-specific human-readable message text per order status.
package notify

import "fmt"

const (
	RoleCustomer   = "customer"
	RoleRestaurant = "restaurant"
	RoleDriver     = "driver"
)

var statusMessages = map[string]map[string]string{
	RoleCustomer: {
		"pending":          "Your order has been received and is being processed",
		"confirmed":        "Your order has been confirmed by the restaurant",
		"preparing":        "Your order is being prepared",
		"ready":            "Your order is ready for pickup",
		"out_for_delivery": "Your order is out for delivery",
		"delivered":        "Your order has been delivered",
		"cancelled":        "Your order has been cancelled",
	},
	RoleRestaurant: {
		"pending":          "New order received",
		"confirmed":        "Order confirmed",
		"preparing":        "Order is being prepared",
		"ready":            "Order is ready for pickup",
		"out_for_delivery": "Order is out for delivery",
		"delivered":        "Order has been delivered",
		"cancelled":        "Order has been cancelled",
	},
	RoleDriver: {
		"pending":          "New delivery assignment",
		"confirmed":        "Order confirmed for delivery",
		"preparing":        "Order is being prepared",
		"ready":            "Order is ready for pickup",
		"out_for_delivery": "Order is out for delivery",
		"delivered":        "Order has been delivered",
		"cancelled":        "Order has been cancelled",
	},
}

func statusMessage(status, role string) string {
	if m, ok := statusMessages[role][status]; ok {
		return m
	}
	return "Order status updated"
}

func cancelMessage(ev OrderCancelled, role string) string {
	switch role {
	case RoleCustomer:
		return fmt.Sprintf("Your order #%s has been cancelled. Reason: %s", ev.OrderNumber, ev.Reason)
	case RoleRestaurant:
		return fmt.Sprintf("Order #%s from customer %s has been cancelled", ev.OrderNumber, ev.CustomerID)
	default:
		return fmt.Sprintf("Delivery for order #%s has been cancelled", ev.OrderNumber)
	}
}
