// Package ez registers typed actions on a gin group: bind the input, gate
// on identity and role, run the handler in a request session and map the
// result onto an HTTP response.
package ez

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"shop-api/internal/core/auth"
	"shop-api/internal/domain"
	mdw "shop-api/internal/transport/http/middleware"
	resp "shop-api/internal/transport/http/response"
)

type EZ struct {
	g   *gin.RouterGroup
	log *zap.Logger
}

func New(g *gin.RouterGroup, l *zap.Logger) EZ {
	if l == nil {
		l = zap.NewNop()
	}
	return EZ{g: g, log: l}
}

type Binder string

const (
	BindJSON  Binder = "json"
	BindQuery Binder = "query"
	BindNone  Binder = "none"
)

// Action describes one endpoint. I is the bound input, O the success body.
type Action[I any, O any] struct {
	Method string
	Path   string
	Binder Binder
	// Auth requires an identity resolved by the auth middleware.
	Auth  bool
	Roles []domain.Role
	// UseTx runs the handler inside one transaction. Leave it off when the
	// service manages its own transaction boundaries.
	UseTx bool
	// SuccessStatus defaults to 200.
	SuccessStatus int
	Handler       func(c *gin.Context, tx *gorm.DB, caller *auth.Identity, in *I) (O, error)
}

func RegisterAction[I any, O any](e EZ, db *gorm.DB, a Action[I, O]) {
	status := a.SuccessStatus
	if status == 0 {
		status = http.StatusOK
	}

	h := func(c *gin.Context) {
		caller := mdw.Identity(c)
		if a.Auth || len(a.Roles) > 0 {
			if caller == nil {
				resp.Abort(c, http.StatusUnauthorized, "Token missing")
				return
			}
			if !hasRole(caller, a.Roles) {
				resp.Abort(c, http.StatusForbidden, mdw.RoleRequired(a.Roles[0]))
				return
			}
		}

		var in I
		if err := bind(c, a.Binder, &in); err != nil {
			_ = c.Error(err)
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				resp.Abort(c, http.StatusRequestEntityTooLarge, "")
				return
			}
			resp.Abort(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}

		var (
			out O
			err error
		)
		session := db.WithContext(c.Request.Context())
		if a.UseTx {
			err = session.Transaction(func(tx *gorm.DB) error {
				var e error
				out, e = a.Handler(c, tx, caller, &in)
				return e
			})
		} else {
			out, err = a.Handler(c, session, caller, &in)
		}

		if err != nil {
			code := resp.StatusOf(err)
			if code >= http.StatusInternalServerError {
				e.log.Error("action failed",
					zap.String("rid", c.GetString(mdw.KeyRequestID)),
					zap.String("route", a.Method+" "+e.g.BasePath()+a.Path),
					zap.Error(err))
			}
			resp.Abort(c, code, err.Error())
			return
		}
		c.JSON(status, out)
	}

	e.g.Handle(strings.ToUpper(a.Method), a.Path, h)
}

func hasRole(id *auth.Identity, roles []domain.Role) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if id.Role == r {
			return true
		}
	}
	return false
}

func bind(c *gin.Context, b Binder, in any) error {
	switch b {
	case BindJSON:
		if c.Request.ContentLength == 0 {
			return errors.New("empty body")
		}
		return c.ShouldBindJSON(in)
	case BindQuery:
		return c.ShouldBindQuery(in)
	default:
		return nil
	}
}

// ParamID parses the ":id" path parameter. A malformed id is reported as
// not found, the same as an id with no row behind it.
func ParamID(c *gin.Context, entity, notFound string) (uint, error) {
	n, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || n == 0 {
		return 0, domain.NotFound(entity, notFound)
	}
	return uint(n), nil
}
