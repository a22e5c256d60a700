// README: Caller identity middleware; trusts the gateway-provided identity headers.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	ctxKeyUID  = "caller_uid"
	ctxKeyRole = "caller_role"
)

// Identity extracts the caller from the X-User-ID and X-User-Role headers
// set by the edge gateway. Requests without an identity are rejected.
// [TODO] Replace with JWT verification once the gateway issues tokens.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetHeader("X-User-ID")
		if uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
			return
		}
		role := c.GetHeader("X-User-Role")
		if role == "" {
			role = "customer"
		}
		c.Set(ctxKeyUID, uid)
		c.Set(ctxKeyRole, role)
		c.Next()
	}
}

func CallerUID(c *gin.Context) string {
	return c.GetString(ctxKeyUID)
}

func CallerRole(c *gin.Context) string {
	return c.GetString(ctxKeyRole)
}
