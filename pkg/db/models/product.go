package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brianmwirigi/sokofresh-backend/pkg/enums"
)

// Product represents a sellable item. Piece products track StockQuantity,
// kilogram products track StockWeight; the other column stays zero.
type Product struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Name          string            `gorm:"column:name;not null"`
	Description   *string           `gorm:"column:description"`
	Unit          enums.ProductUnit `gorm:"column:unit;type:text;not null"`
	StockQuantity int               `gorm:"column:stock_quantity;not null;default:0"`
	StockWeight   decimal.Decimal   `gorm:"column:stock_weight;type:numeric(10,3);not null;default:0"`
	MinimumStock  decimal.Decimal   `gorm:"column:minimum_stock;type:numeric(10,3);not null;default:0"`
	Price         decimal.Decimal   `gorm:"column:price;type:numeric(12,2);not null"`
	CostPrice     decimal.Decimal   `gorm:"column:cost_price;type:numeric(12,2);not null;default:0"`
	IsActive      bool              `gorm:"column:is_active;not null"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// StockLevel returns the tracked stock measure for the product's unit.
func (p Product) StockLevel() decimal.Decimal {
	if p.Unit == enums.ProductUnitKilogram {
		return p.StockWeight
	}
	return decimal.NewFromInt(int64(p.StockQuantity))
}

// IsLowStock reports whether stock has fallen to or below the minimum. A zero
// minimum disables the check.
func (p Product) IsLowStock() bool {
	if p.MinimumStock.IsZero() {
		return false
	}
	return p.StockLevel().LessThanOrEqual(p.MinimumStock)
}
