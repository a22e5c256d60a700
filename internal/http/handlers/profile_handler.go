// README: Customer profile handlers (recent order history).
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mealdrop/internal/http/middleware"
	"mealdrop/internal/modules/profile"
	"mealdrop/internal/types"
)

type ProfileHandler struct {
	profile *profile.Store
}

func NewProfileHandler(store *profile.Store) *ProfileHandler {
	return &ProfileHandler{profile: store}
}

func (h *ProfileHandler) RecentOrders(c *gin.Context) {
	id := c.Param("id")
	if middleware.CallerUID(c) != id {
		writeError(c, http.StatusForbidden, "id does not match authenticated user")
		return
	}
	entries, err := h.profile.RecentOrders(c.Request.Context(), types.ID(id))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}

	type entryResp struct {
		RestaurantID string    `json:"restaurant_id"`
		MenuItemIDs  []string  `json:"menu_item_ids"`
		OrderedAt    time.Time `json:"ordered_at"`
	}
	out := make([]entryResp, 0, len(entries))
	for _, e := range entries {
		ids := make([]string, len(e.MenuItemIDs))
		for i, mid := range e.MenuItemIDs {
			ids[i] = string(mid)
		}
		out = append(out, entryResp{
			RestaurantID: string(e.RestaurantID),
			MenuItemIDs:  ids,
			OrderedAt:    e.OrderedAt,
		})
	}
	writeJSON(c, http.StatusOK, gin.H{"orders": out})
}
