package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"shop-api/internal/core/auth"
	"shop-api/internal/domain"
	"shop-api/internal/service"
	"shop-api/internal/transport/http/ez"
	resp "shop-api/internal/transport/http/response"
)

type accountsModule struct{ users *service.UserService }

func (accountsModule) Priority() int { return 10 }

type tokenOut struct {
	Token string `json:"token"`
}

func (m accountsModule) Mount(g Groups) {
	ez.RegisterAction(g.Public, g.DB, ez.Action[service.Credentials, resp.MessageBody]{
		Method:        http.MethodPost,
		Path:          "/auth/register",
		Binder:        ez.BindJSON,
		UseTx:         true,
		SuccessStatus: http.StatusCreated,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *auth.Identity, in *service.Credentials) (resp.MessageBody, error) {
			if _, err := m.users.Register(c.Request.Context(), tx, *in); err != nil {
				return resp.MessageBody{}, err
			}
			return resp.Message("Subscription done !"), nil
		},
	})

	ez.RegisterAction(g.Public, g.DB, ez.Action[service.Credentials, tokenOut]{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *auth.Identity, in *service.Credentials) (tokenOut, error) {
			tok, err := m.users.Login(c.Request.Context(), tx, *in)
			return tokenOut{Token: tok}, err
		},
	})

	ez.RegisterAction(g.User, g.DB, ez.Action[struct{}, *domain.User]{
		Method: http.MethodGet,
		Path:   "/me",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, tx *gorm.DB, caller *auth.Identity, _ *struct{}) (*domain.User, error) {
			return m.users.Me(c.Request.Context(), tx, caller)
		},
	})
}
