package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"shop-api/internal/core/auth"
	"shop-api/internal/domain"
	"shop-api/internal/service"
	"shop-api/internal/transport/http/ez"
)

type adminModule struct{ users *service.UserService }

type userListQuery struct {
	Offset int    `form:"offset,default=0"`
	Limit  int    `form:"limit,default=20"`
	Q      string `form:"q"`
}

func (m adminModule) Mount(g Groups) {
	ez.RegisterAction(g.Admin, g.DB, ez.Action[userListQuery, *service.UserPage]{
		Method: http.MethodGet,
		Path:   "/admin/users",
		Binder: ez.BindQuery,
		Roles:  []domain.Role{domain.RoleAdmin},
		Handler: func(c *gin.Context, tx *gorm.DB, _ *auth.Identity, in *userListQuery) (*service.UserPage, error) {
			return m.users.List(c.Request.Context(), tx, in.Q, in.Offset, in.Limit)
		},
	})
}
