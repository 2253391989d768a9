package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusOnHold    OrderStatus = "on_hold"
	StatusValidated OrderStatus = "validated"
	StatusCanceled  OrderStatus = "canceled"
	StatusShipped   OrderStatus = "shipped"
)

var orderStatuses = []OrderStatus{StatusOnHold, StatusValidated, StatusCanceled, StatusShipped}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	for _, st := range orderStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Order is persisted in the legacy "commands" table.
type Order struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	UserID          uint        `gorm:"not null;index" json:"user_id"`
	Status          OrderStatus `gorm:"size:16;not null;check:chk_commands_status,status IN ('on_hold','validated','canceled','shipped')" json:"status"`
	AddressDelivery string      `gorm:"not null" json:"address_delivery"`
	CreatedAt       time.Time   `gorm:"column:date_command" json:"date_command"`
}

func (Order) TableName() string { return "commands" }

func (o *Order) OwnedBy(userID uint) bool { return o.UserID == userID }

type OrderLine struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"column:command_id;not null;index" json:"command_id"`
	ProductID uint            `gorm:"not null;index" json:"product_id"`
	Quantity  int             `gorm:"not null;check:chk_commands_lign_quantity,quantity > 0" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
}

func (OrderLine) TableName() string { return "commands_lign" }

// LineRequest is one distinct product of a placement request.
type LineRequest struct {
	ProductID uint
	Quantity  int
}

// CollapseProductIDs folds repeated ids into quantities, keeping the order in
// which each id first appears.
func CollapseProductIDs(ids []uint) []LineRequest {
	idx := make(map[uint]int, len(ids))
	out := make([]LineRequest, 0, len(ids))
	for _, id := range ids {
		if i, ok := idx[id]; ok {
			out[i].Quantity++
			continue
		}
		idx[id] = len(out)
		out = append(out, LineRequest{ProductID: id, Quantity: 1})
	}
	return out
}

// LineView is an order line joined to the product's current name.
type LineView struct {
	ProductID uint            `json:"id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}
