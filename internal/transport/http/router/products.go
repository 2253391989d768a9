package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"shop-api/internal/core/auth"
	"shop-api/internal/domain"
	"shop-api/internal/repo"
	"shop-api/internal/service"
	"shop-api/internal/transport/http/ez"
	resp "shop-api/internal/transport/http/response"
)

type productsModule struct{ products *service.ProductService }

const productNotFound = "Product not found."

var adminOnly = []domain.Role{domain.RoleAdmin}

func (m productsModule) Mount(g Groups) {
	ez.RegisterAction(g.Public, g.DB, ez.Action[struct{}, []repo.ProductSummary]{
		Method: http.MethodGet,
		Path:   "/products",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *auth.Identity, _ *struct{}) ([]repo.ProductSummary, error) {
			return m.products.List(c.Request.Context(), tx)
		},
	})

	ez.RegisterAction(g.Public, g.DB, ez.Action[struct{}, *domain.Product]{
		Method: http.MethodGet,
		Path:   "/product/:id",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *auth.Identity, _ *struct{}) (*domain.Product, error) {
			id, err := ez.ParamID(c, "product", productNotFound)
			if err != nil {
				return nil, err
			}
			return m.products.Get(c.Request.Context(), tx, id)
		},
	})

	ez.RegisterAction(g.Admin, g.DB, ez.Action[service.ProductInput, *domain.Product]{
		Method:        http.MethodPost,
		Path:          "/product",
		Binder:        ez.BindJSON,
		Roles:         adminOnly,
		UseTx:         true,
		SuccessStatus: http.StatusCreated,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *auth.Identity, in *service.ProductInput) (*domain.Product, error) {
			return m.products.Create(c.Request.Context(), tx, *in)
		},
	})

	// Update and delete invalidate the cache, so they run outside a request
	// transaction to keep the invalidation after the write is visible.
	ez.RegisterAction(g.Admin, g.DB, ez.Action[service.ProductInput, *domain.Product]{
		Method: http.MethodPut,
		Path:   "/product/:id",
		Binder: ez.BindJSON,
		Roles:  adminOnly,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *auth.Identity, in *service.ProductInput) (*domain.Product, error) {
			id, err := ez.ParamID(c, "product", productNotFound)
			if err != nil {
				return nil, err
			}
			return m.products.Update(c.Request.Context(), tx, id, *in)
		},
	})

	ez.RegisterAction(g.Admin, g.DB, ez.Action[struct{}, resp.MessageBody]{
		Method: http.MethodDelete,
		Path:   "/product/:id",
		Binder: ez.BindNone,
		Roles:  adminOnly,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *auth.Identity, _ *struct{}) (resp.MessageBody, error) {
			id, err := ez.ParamID(c, "product", productNotFound)
			if err != nil {
				return resp.MessageBody{}, err
			}
			p, err := m.products.Delete(c.Request.Context(), tx, id)
			if err != nil {
				return resp.MessageBody{}, err
			}
			return resp.Message(fmt.Sprintf("Product %s with ID = %d was deleted.", p.Name, p.ID)), nil
		},
	})
}
