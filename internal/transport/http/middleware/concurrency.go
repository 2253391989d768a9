package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	resp "shop-api/internal/transport/http/response"
)

// ConcurrencyLimit admits at most max requests at once. A queued request
// that loses its context (client gone, deadline) gets 503 without running.
func ConcurrencyLimit(max int64) gin.HandlerFunc {
	slots := semaphore.NewWeighted(max)
	return func(c *gin.Context) {
		if slots.Acquire(c.Request.Context(), 1) != nil {
			resp.Abort(c, http.StatusServiceUnavailable, "")
			return
		}
		defer slots.Release(1)
		c.Next()
	}
}
