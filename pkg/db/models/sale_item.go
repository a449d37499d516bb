package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleItem copies the order item snapshot onto the sale so financial history
// survives later product edits.
type SaleItem struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	SaleID      uuid.UUID        `gorm:"column:sale_id;type:uuid;not null;index"`
	ProductID   uuid.UUID        `gorm:"column:product_id;type:uuid;not null"`
	ProductName string           `gorm:"column:product_name;not null"`
	Quantity    *int             `gorm:"column:quantity"`
	Weight      *decimal.Decimal `gorm:"column:weight;type:numeric(10,3)"`
	UnitPrice   decimal.Decimal  `gorm:"column:unit_price;type:numeric(12,2);not null"`
	UnitCost    decimal.Decimal  `gorm:"column:unit_cost;type:numeric(12,2);not null;default:0"`
	LineTotal   decimal.Decimal  `gorm:"column:line_total;type:numeric(12,2);not null"`
	LineCost    decimal.Decimal  `gorm:"column:line_cost;type:numeric(12,2);not null;default:0"`
}
