package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	resp "shop-api/internal/transport/http/response"
)

// MaxBodyBytes caps the request body. Handlers that hit the cap and record
// the read error with c.Error get a 413 if they wrote nothing themselves.
func MaxBodyBytes(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
		if c.Writer.Written() {
			return
		}
		for _, e := range c.Errors {
			var tooLarge *http.MaxBytesError
			if errors.As(e.Err, &tooLarge) {
				resp.Abort(c, http.StatusRequestEntityTooLarge, "")
				return
			}
		}
	}
}
