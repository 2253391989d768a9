package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"shop-api/internal/domain"
)

var ordersPlaced = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "shop_orders_placed_total",
		Help: "Order placement attempts by outcome",
	},
	[]string{"result"},
)

func init() { prometheus.MustRegister(ordersPlaced) }

func placementResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	case errors.Is(err, domain.ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	default:
		return "error"
	}
}

func observePlacement(err error) { ordersPlaced.WithLabelValues(placementResult(err)).Inc() }
