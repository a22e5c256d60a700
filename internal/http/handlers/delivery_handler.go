// README: Delivery handlers: status advances, lookups, customer rating.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mealdrop/internal/http/middleware"
	"mealdrop/internal/modules/delivery"
	"mealdrop/internal/types"
)

type DeliveryHandler struct {
	delivery *delivery.Service
}

func NewDeliveryHandler(svc *delivery.Service) *DeliveryHandler {
	return &DeliveryHandler{delivery: svc}
}

type deliveryStatusReq struct {
	Status string `json:"status" validate:"required,oneof=picked_up in_transit delivered failed"`
}

func (h *DeliveryHandler) AdvanceStatus(c *gin.Context) {
	var req deliveryStatusReq
	if err := bindAndValidate(c, &req); err != nil {
		return
	}
	o, d, err := h.delivery.Advance(c.Request.Context(), delivery.AdvanceCommand{
		DeliveryID: types.ID(c.Param("id")),
		To:         delivery.Status(req.Status),
		ActorID:    types.ID(middleware.CallerUID(c)),
	})
	if err != nil {
		writeDeliveryError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"delivery":     deliveryView(d),
		"order_status": o.Status,
	})
}

func (h *DeliveryHandler) GetByOrder(c *gin.Context) {
	d, err := h.delivery.GetByOrder(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeDeliveryError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, deliveryView(d))
}

func (h *DeliveryHandler) ListByDriver(c *gin.Context) {
	if middleware.CallerUID(c) != c.Param("id") {
		writeError(c, http.StatusForbidden, "id does not match authenticated user")
		return
	}
	ds, err := h.delivery.ListByDriver(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeDeliveryError(c, err)
		return
	}
	out := make([]deliveryResp, 0, len(ds))
	for _, d := range ds {
		out = append(out, deliveryView(d))
	}
	writeJSON(c, http.StatusOK, gin.H{"deliveries": out})
}

type rateReq struct {
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	Feedback string `json:"feedback"`
}

func (h *DeliveryHandler) Rate(c *gin.Context) {
	var req rateReq
	if err := bindAndValidate(c, &req); err != nil {
		return
	}
	err := h.delivery.Rate(c.Request.Context(), delivery.RateCommand{
		DeliveryID: types.ID(c.Param("id")),
		Rating:     req.Rating,
		Feedback:   req.Feedback,
	})
	if err != nil {
		writeDeliveryError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
}

type deliveryResp struct {
	DeliveryID          string     `json:"delivery_id"`
	OrderID             string     `json:"order_id"`
	DriverID            string     `json:"driver_id"`
	Status              string     `json:"status"`
	DriverEarningsCents int64      `json:"driver_earnings_cents"`
	PickupTime          *time.Time `json:"pickup_time,omitempty"`
	DeliveryTime        *time.Time `json:"delivery_time,omitempty"`
	CustomerRating      int        `json:"customer_rating,omitempty"`
}

func deliveryView(d *delivery.Delivery) deliveryResp {
	return deliveryResp{
		DeliveryID:          string(d.ID),
		OrderID:             string(d.OrderID),
		DriverID:            string(d.DriverID),
		Status:              string(d.Status),
		DriverEarningsCents: d.DriverEarnings.Amount,
		PickupTime:          d.PickupTime,
		DeliveryTime:        d.DeliveryTime,
		CustomerRating:      d.CustomerRating,
	}
}
