// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mealdrop/internal/geo"
	"mealdrop/internal/http/handlers"
	"mealdrop/internal/http/middleware"
	"mealdrop/internal/modules/delivery"
	"mealdrop/internal/modules/dispatch"
	"mealdrop/internal/modules/order"
	"mealdrop/internal/modules/profile"
)

type RouterDeps struct {
	Order    *order.Service
	Delivery *delivery.Service
	Dispatch *dispatch.Service
	Profile  *profile.Store
	Index    *geo.Index
	Catalog  handlers.Catalog
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logging())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api", middleware.Identity())

	orderHandler := handlers.NewOrderHandler(deps.Order, deps.Dispatch, deps.Catalog)
	api.POST("/orders", orderHandler.Checkout)
	api.GET("/orders/:id", orderHandler.Get)
	api.POST("/orders/:id/status", orderHandler.AdvanceStatus)
	api.POST("/orders/:id/cancel", orderHandler.Cancel)
	api.POST("/payments/result", orderHandler.PaymentResult)

	driverHandler := handlers.NewDriverHandler(deps.Index, deps.Dispatch)
	api.PUT("/drivers/:id/location", driverHandler.UpdateLocation)
	api.PUT("/drivers/:id/availability", driverHandler.SetAvailability)
	api.GET("/drivers/:id/orders/nearby", driverHandler.NearbyOrders)
	api.POST("/orders/:id/accept", driverHandler.Accept)

	deliveryHandler := handlers.NewDeliveryHandler(deps.Delivery)
	api.POST("/deliveries/:id/status", deliveryHandler.AdvanceStatus)
	api.POST("/deliveries/:id/rating", deliveryHandler.Rate)
	api.GET("/orders/:id/delivery", deliveryHandler.GetByOrder)
	api.GET("/drivers/:id/deliveries", deliveryHandler.ListByDriver)

	profileHandler := handlers.NewProfileHandler(deps.Profile)
	api.GET("/customers/:id/orders/recent", profileHandler.RecentOrders)

	return r
}
