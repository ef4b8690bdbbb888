package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"UpWatch/internal/backend/auth"
)

const callerKey = "caller"

// AuthMiddleware classifies the request through the access gate and makes
// the resulting capability available to handlers. Credentials themselves
// are never inspected here; the upstream auth layer owns identity.
func (h *Handlers) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := h.gate.Classify(
			c.GetHeader("X-Api-Key"),
			c.GetHeader("X-User-Id"),
			c.GetHeader("X-User-Role"),
		)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				ErrorResponse("unauthenticated", "Caller could not be classified"))
			return
		}

		c.Set(callerKey, caller)
		c.Next()
	}
}

func callerFrom(c *gin.Context) auth.Caller {
	value, _ := c.Get(callerKey)
	caller, _ := value.(auth.Caller)
	return caller
}
