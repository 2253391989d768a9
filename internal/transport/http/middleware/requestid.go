package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	applog "shop-api/internal/core/logger"
)

const KeyRequestID = "X-Request-ID"

const maxRequestIDLen = 128

// RequestID echoes a well-formed inbound id or mints one, and stores it on
// the gin context and the request context so SQL logs carry it too.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(KeyRequestID)
		if !validRequestID(rid) {
			rid = uuid.NewString()
		}
		c.Set(KeyRequestID, rid)
		c.Header(KeyRequestID, rid)
		c.Request = c.Request.WithContext(applog.WithRequestID(c.Request.Context(), rid))
		c.Next()
	}
}

// validRequestID accepts short ids made of letters, digits and -_.:
func validRequestID(s string) bool {
	if s == "" || len(s) > maxRequestIDLen {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.', r == ':':
		default:
			return false
		}
	}
	return true
}
