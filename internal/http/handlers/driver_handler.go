// README: Driver handlers: location pings, availability, nearby orders, accept.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mealdrop/internal/geo"
	"mealdrop/internal/http/middleware"
	"mealdrop/internal/modules/dispatch"
	"mealdrop/internal/types"
)

type DriverHandler struct {
	index    *geo.Index
	dispatch *dispatch.Service
}

func NewDriverHandler(index *geo.Index, dispatchSvc *dispatch.Service) *DriverHandler {
	return &DriverHandler{index: index, dispatch: dispatchSvc}
}

// requireDriver checks the caller is the driver named in the path.
func requireDriver(c *gin.Context) (types.ID, bool) {
	id := c.Param("id")
	if middleware.CallerRole(c) != "driver" {
		writeError(c, http.StatusForbidden, "driver role required")
		return "", false
	}
	if middleware.CallerUID(c) != id {
		writeError(c, http.StatusForbidden, "id does not match authenticated user")
		return "", false
	}
	return types.ID(id), true
}

type locationReq struct {
	Lat float64 `json:"lat" validate:"min=-90,max=90"`
	Lng float64 `json:"lng" validate:"min=-180,max=180"`
}

func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	id, ok := requireDriver(c)
	if !ok {
		return
	}
	var req locationReq
	if err := bindAndValidate(c, &req); err != nil {
		return
	}
	h.index.UpdateLocation(id, req.Lat, req.Lng)
	writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
}

type availabilityReq struct {
	Available *bool `json:"available" validate:"required"`
}

func (h *DriverHandler) SetAvailability(c *gin.Context) {
	id, ok := requireDriver(c)
	if !ok {
		return
	}
	var req availabilityReq
	if err := bindAndValidate(c, &req); err != nil {
		return
	}
	h.index.SetAvailable(id, *req.Available)
	writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
}

func (h *DriverHandler) NearbyOrders(c *gin.Context) {
	if _, ok := requireDriver(c); !ok {
		return
	}
	lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
	lng, err2 := strconv.ParseFloat(c.Query("lng"), 64)
	if err1 != nil || err2 != nil {
		writeError(c, http.StatusBadRequest, "lat and lng query parameters required")
		return
	}
	radiusKm := 10.0
	if raw := c.Query("radius_km"); raw != "" {
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil || r <= 0 {
			writeError(c, http.StatusBadRequest, "invalid radius_km")
			return
		}
		radiusKm = r
	}

	nearby, err := h.dispatch.NearbyUnassigned(c.Request.Context(), types.Point{Lat: lat, Lng: lng}, radiusKm)
	if err != nil {
		writeDispatchError(c, err)
		return
	}

	type nearbyResp struct {
		OrderID      string  `json:"order_id"`
		OrderNumber  string  `json:"order_number"`
		RestaurantID string  `json:"restaurant_id"`
		DistanceKm   float64 `json:"distance_km"`
	}
	out := make([]nearbyResp, 0, len(nearby))
	for _, n := range nearby {
		out = append(out, nearbyResp{
			OrderID:      string(n.Order.ID),
			OrderNumber:  n.Order.Number,
			RestaurantID: string(n.Order.RestaurantID),
			DistanceKm:   n.DistanceKm,
		})
	}
	writeJSON(c, http.StatusOK, gin.H{"orders": out})
}

func (h *DriverHandler) Accept(c *gin.Context) {
	orderID := c.Param("id")
	if middleware.CallerRole(c) != "driver" {
		writeError(c, http.StatusForbidden, "driver role required")
		return
	}
	driverID := types.ID(middleware.CallerUID(c))

	asn, err := h.dispatch.Accept(c.Request.Context(), types.ID(orderID), driverID)
	if err != nil {
		writeDispatchError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"order_id":              asn.OrderID,
		"delivery_id":           asn.DeliveryID,
		"driver_earnings_cents": asn.DriverEarnings.Amount,
	})
}
