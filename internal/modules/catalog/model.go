// README: Catalog read models consumed at checkout and assignment time.
package catalog

import "mealdrop/internal/types"

type Restaurant struct {
	ID              types.ID
	OwnerID         types.ID
	Name            string
	Location        types.Point
	DeliveryFee     types.Money
	PrepTimeMinutes int
}

type MenuItem struct {
	ID           types.ID
	RestaurantID types.ID
	Name         string
	Price        types.Money
	IsAvailable  bool
}
