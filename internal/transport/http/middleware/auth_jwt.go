package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"shop-api/internal/core/auth"
	"shop-api/internal/domain"
	resp "shop-api/internal/transport/http/response"
)

const ctxIdentity = "identity"

// ResolveFunc loads the identity behind a verified token subject.
type ResolveFunc func(ctx context.Context, uid uint) (*auth.Identity, error)

// AuthJWT verifies the bearer token and resolves it to a stored user. A
// non-empty requireRole rejects every other role with 403.
func AuthJWT(j *auth.JWTer, resolve ResolveFunc, requireRole domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		if !strings.HasPrefix(ah, "Bearer ") {
			resp.Abort(c, http.StatusUnauthorized, "Token missing")
			return
		}
		claims, err := j.Parse(strings.TrimPrefix(ah, "Bearer "))
		switch {
		case errors.Is(err, auth.ErrTokenExpired):
			resp.Abort(c, http.StatusUnauthorized, "Token expired")
			return
		case err != nil:
			resp.Abort(c, http.StatusUnauthorized, "Token invalid")
			return
		}

		id, err := resolve(c.Request.Context(), claims.UID)
		if err != nil {
			resp.Abort(c, resp.StatusOf(err), err.Error())
			return
		}
		if requireRole != "" && id.Role != requireRole {
			resp.Abort(c, http.StatusForbidden, RoleRequired(requireRole))
			return
		}
		c.Set(ctxIdentity, id)
		c.Next()
	}
}

// Identity returns the caller resolved by AuthJWT, or nil on public routes.
func Identity(c *gin.Context) *auth.Identity {
	v, ok := c.Get(ctxIdentity)
	if !ok {
		return nil
	}
	id, _ := v.(*auth.Identity)
	return id
}

func RoleRequired(r domain.Role) string {
	s := string(r)
	if s == "" {
		return "Role is required."
	}
	return strings.ToUpper(s[:1]) + s[1:] + " role is required."
}
