package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"shop-api/internal/core/auth"
	"shop-api/internal/domain"
	"shop-api/internal/service"
	"shop-api/internal/transport/http/ez"
)

type ordersModule struct{ orders *service.OrderService }

const orderNotFound = "Command not found."

type placedOut struct {
	ID              uint      `json:"id"`
	UserID          uint      `json:"user_id"`
	DateCommand     time.Time `json:"date_command"`
	AddressDelivery string    `json:"address_delivery"`
}

type orderListItem struct {
	CommandID       uint               `json:"command_id"`
	Status          domain.OrderStatus `json:"status"`
	AddressDelivery string             `json:"address_delivery"`
	DateCommand     time.Time          `json:"date_command"`
}

type orderOut struct {
	ID              uint               `json:"id"`
	Status          domain.OrderStatus `json:"status"`
	AddressDelivery string             `json:"address_delivery"`
	DateCommand     time.Time          `json:"date_command"`
}

type orderLinesOut struct {
	orderOut
	Products []domain.LineView `json:"products"`
}

func headerOf(o *domain.Order) orderOut {
	return orderOut{ID: o.ID, Status: o.Status, AddressDelivery: o.AddressDelivery, DateCommand: o.CreatedAt}
}

func (m ordersModule) Mount(g Groups) {
	ez.RegisterAction(g.User, g.DB, ez.Action[struct{}, []orderListItem]{
		Method: http.MethodGet,
		Path:   "/commands",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, tx *gorm.DB, caller *auth.Identity, _ *struct{}) ([]orderListItem, error) {
			orders, err := m.orders.List(c.Request.Context(), tx, caller)
			if err != nil {
				return nil, err
			}
			out := make([]orderListItem, len(orders))
			for i, o := range orders {
				out[i] = orderListItem{
					CommandID:       o.ID,
					Status:          o.Status,
					AddressDelivery: o.AddressDelivery,
					DateCommand:     o.CreatedAt,
				}
			}
			return out, nil
		},
	})

	ez.RegisterAction(g.User, g.DB, ez.Action[struct{}, orderOut]{
		Method: http.MethodGet,
		Path:   "/command/:id",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, tx *gorm.DB, caller *auth.Identity, _ *struct{}) (orderOut, error) {
			id, err := ez.ParamID(c, "command", orderNotFound)
			if err != nil {
				return orderOut{}, err
			}
			o, err := m.orders.Get(c.Request.Context(), tx, caller, id)
			if err != nil {
				return orderOut{}, err
			}
			return headerOf(o), nil
		},
	})

	ez.RegisterAction(g.User, g.DB, ez.Action[struct{}, orderLinesOut]{
		Method: http.MethodGet,
		Path:   "/command/:id/lign",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, tx *gorm.DB, caller *auth.Identity, _ *struct{}) (orderLinesOut, error) {
			id, err := ez.ParamID(c, "command", orderNotFound)
			if err != nil {
				return orderLinesOut{}, err
			}
			o, lines, err := m.orders.Lines(c.Request.Context(), tx, caller, id)
			if err != nil {
				return orderLinesOut{}, err
			}
			return orderLinesOut{orderOut: headerOf(o), Products: lines}, nil
		},
	})

	// Placement owns its transaction boundaries (atomic or per-line).
	ez.RegisterAction(g.User, g.DB, ez.Action[service.PlaceOrderInput, placedOut]{
		Method:        http.MethodPost,
		Path:          "/command",
		Binder:        ez.BindJSON,
		Auth:          true,
		SuccessStatus: http.StatusCreated,
		Handler: func(c *gin.Context, tx *gorm.DB, caller *auth.Identity, in *service.PlaceOrderInput) (placedOut, error) {
			o, err := m.orders.Place(c.Request.Context(), tx, caller, *in)
			if err != nil {
				return placedOut{}, err
			}
			return placedOut{
				ID:              o.ID,
				UserID:          o.UserID,
				DateCommand:     o.CreatedAt,
				AddressDelivery: o.AddressDelivery,
			}, nil
		},
	})

	ez.RegisterAction(g.Admin, g.DB, ez.Action[service.UpdateStatusInput, orderOut]{
		Method: http.MethodPatch,
		Path:   "/command/:id",
		Binder: ez.BindJSON,
		Roles:  adminOnly,
		Handler: func(c *gin.Context, tx *gorm.DB, caller *auth.Identity, in *service.UpdateStatusInput) (orderOut, error) {
			id, err := ez.ParamID(c, "command", orderNotFound)
			if err != nil {
				return orderOut{}, err
			}
			o, err := m.orders.UpdateStatus(c.Request.Context(), tx, caller, id, *in)
			if err != nil {
				return orderOut{}, err
			}
			return headerOf(o), nil
		},
	})
}
