package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"uniqueIndex;size:191;not null" json:"name"`
	Description string          `gorm:"not null" json:"description"`
	Category    string          `gorm:"size:128;not null" json:"category"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Stock       int             `gorm:"not null;default:0" json:"stock"`
	CreatedAt   time.Time       `gorm:"column:date_creation;autoCreateTime" json:"-"`
}

func (Product) TableName() string { return "products" }

// CanFulfil reports whether qty units can be taken while leaving at least one
// unit in stock.
func (p *Product) CanFulfil(qty int) bool { return p.Stock-qty > 0 }
