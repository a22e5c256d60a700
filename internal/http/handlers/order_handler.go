// README: Order handlers: checkout, lookup, status advance, cancel, payment results.
package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"mealdrop/internal/http/middleware"
	"mealdrop/internal/modules/catalog"
	"mealdrop/internal/modules/dispatch"
	"mealdrop/internal/modules/order"
	"mealdrop/internal/types"
)

// Dispatcher runs the immediate assignment attempt after checkout.
type Dispatcher interface {
	Assign(ctx context.Context, orderID types.ID) (*dispatch.Assignment, error)
}

// Catalog resolves restaurant ownership when authorizing requests.
type Catalog interface {
	GetRestaurant(ctx context.Context, id types.ID) (*catalog.Restaurant, error)
}

type OrderHandler struct {
	order    *order.Service
	dispatch Dispatcher
	catalog  Catalog
}

func NewOrderHandler(svc *order.Service, d Dispatcher, cat Catalog) *OrderHandler {
	return &OrderHandler{order: svc, dispatch: d, catalog: cat}
}

// canAccess reports whether the caller may read or act on the order: the
// customer who placed it, the assigned driver, the restaurant's owner, or
// an admin.
func (h *OrderHandler) canAccess(c *gin.Context, o *order.Order) bool {
	uid := types.ID(middleware.CallerUID(c))
	switch middleware.CallerRole(c) {
	case "admin":
		return true
	case "driver":
		return o.DriverID != nil && *o.DriverID == uid
	case "restaurant":
		rest, err := h.catalog.GetRestaurant(c.Request.Context(), o.RestaurantID)
		return err == nil && rest.OwnerID == uid
	default:
		return o.CustomerID == uid
	}
}

type checkoutItemReq struct {
	MenuItemID          string `json:"menu_item_id" validate:"required"`
	Quantity            int    `json:"quantity" validate:"required,min=1"`
	SpecialInstructions string `json:"special_instructions"`
}

type checkoutReq struct {
	RestaurantID string            `json:"restaurant_id" validate:"required"`
	Items        []checkoutItemReq `json:"items" validate:"required,min=1,dive"`
	TipCents     int64             `json:"tip_cents" validate:"min=0"`
}

func (h *OrderHandler) Checkout(c *gin.Context) {
	var req checkoutReq
	if err := bindAndValidate(c, &req); err != nil {
		return
	}

	items := make([]order.CheckoutItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.CheckoutItem{
			MenuItemID:          types.ID(it.MenuItemID),
			Quantity:            it.Quantity,
			SpecialInstructions: it.SpecialInstructions,
		}
	}

	o, err := h.order.Checkout(c.Request.Context(), order.CheckoutCommand{
		CustomerID:   types.ID(middleware.CallerUID(c)),
		RestaurantID: types.ID(req.RestaurantID),
		Items:        items,
		TipCents:     req.TipCents,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}

	// Kick off assignment right away; no driver in range is a normal
	// outcome and the sweeper retries later.
	if _, err := h.dispatch.Assign(c.Request.Context(), o.ID); err != nil && !errors.Is(err, dispatch.ErrUnassigned) {
		log.Printf("http: assignment attempt for %s: %v", o.ID, err)
	}

	writeJSON(c, http.StatusCreated, orderView(o))
}

func (h *OrderHandler) Get(c *gin.Context) {
	o, err := h.order.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	if !h.canAccess(c, o) {
		writeError(c, http.StatusForbidden, "not your order")
		return
	}
	writeJSON(c, http.StatusOK, orderView(o))
}

type advanceStatusReq struct {
	Status string `json:"status" validate:"required"`
}

func (h *OrderHandler) AdvanceStatus(c *gin.Context) {
	var req advanceStatusReq
	if err := bindAndValidate(c, &req); err != nil {
		return
	}
	o, err := h.order.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	// Only the kitchen side moves an order forward.
	if role := middleware.CallerRole(c); role != "restaurant" && role != "admin" {
		writeError(c, http.StatusForbidden, "not your order")
		return
	}
	if !h.canAccess(c, o) {
		writeError(c, http.StatusForbidden, "not your order")
		return
	}
	o, err = h.order.Advance(c.Request.Context(), order.AdvanceCommand{
		OrderID: o.ID,
		To:      order.Status(req.Status),
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, orderView(o))
}

type cancelReq struct {
	Reason string `json:"reason"`
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	var req cancelReq
	if c.Request.ContentLength > 0 {
		if err := bindAndValidate(c, &req); err != nil {
			return
		}
	}
	o, err := h.order.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	if !h.canAccess(c, o) {
		writeError(c, http.StatusForbidden, "not your order")
		return
	}
	reason := req.Reason
	if reason == "" {
		reason = "cancelled by " + middleware.CallerRole(c)
	}
	o, err = h.order.Cancel(c.Request.Context(), order.CancelCommand{
		OrderID: o.ID,
		Actor:   order.CancelActor(middleware.CallerRole(c)),
		Reason:  reason,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, orderView(o))
}

type paymentResultReq struct {
	OrderID string `json:"order_id" validate:"required"`
	Status  string `json:"status" validate:"required,oneof=paid failed refunded"`
}

// PaymentResult is the callback endpoint the payment gateway reports into.
func (h *OrderHandler) PaymentResult(c *gin.Context) {
	var req paymentResultReq
	if err := bindAndValidate(c, &req); err != nil {
		return
	}
	err := h.order.RecordPaymentResult(c.Request.Context(),
		types.ID(req.OrderID), order.PaymentStatus(req.Status))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
}

type orderItemResp struct {
	MenuItemID          string `json:"menu_item_id"`
	Name                string `json:"name"`
	Quantity            int    `json:"quantity"`
	UnitPriceCents      int64  `json:"unit_price_cents"`
	SpecialInstructions string `json:"special_instructions,omitempty"`
}

type orderResp struct {
	OrderID       string          `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	RestaurantID  string          `json:"restaurant_id"`
	Items         []orderItemResp `json:"items"`
	SubtotalCents int64           `json:"subtotal_cents"`
	DeliveryCents int64           `json:"delivery_fee_cents"`
	TaxCents      int64           `json:"tax_cents"`
	TipCents      int64           `json:"tip_cents"`
	TotalCents    int64           `json:"total_cents"`
	Total         string          `json:"total"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"payment_status"`
	DriverID      string          `json:"driver_id,omitempty"`
	CancelReason  string          `json:"cancel_reason,omitempty"`
}

func orderView(o *order.Order) orderResp {
	resp := orderResp{
		OrderID:       string(o.ID),
		OrderNumber:   o.Number,
		RestaurantID:  string(o.RestaurantID),
		SubtotalCents: o.Subtotal.Amount,
		DeliveryCents: o.DeliveryFee.Amount,
		TaxCents:      o.Tax.Amount,
		TipCents:      o.Tip.Amount,
		TotalCents:    o.Total.Amount,
		Total:         o.Total.String(),
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, orderItemResp{
			MenuItemID:          string(it.MenuItemID),
			Name:                it.Name,
			Quantity:            it.Quantity,
			UnitPriceCents:      it.UnitPrice.Amount,
			SpecialInstructions: it.SpecialInstructions,
		})
	}
	if o.DriverID != nil {
		resp.DriverID = string(*o.DriverID)
	}
	if o.CancelReason != nil {
		resp.CancelReason = *o.CancelReason
	}
	return resp
}
