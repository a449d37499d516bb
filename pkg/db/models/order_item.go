package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem snapshots a product at checkout time. Exactly one of Quantity or
// Weight is set, matching the product's unit.
type OrderItem struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID        `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID   uuid.UUID        `gorm:"column:product_id;type:uuid;not null"`
	ProductName string           `gorm:"column:product_name;not null"`
	Quantity    *int             `gorm:"column:quantity"`
	Weight      *decimal.Decimal `gorm:"column:weight;type:numeric(10,3)"`
	UnitPrice   decimal.Decimal  `gorm:"column:unit_price;type:numeric(12,2);not null"`
	UnitCost    decimal.Decimal  `gorm:"column:unit_cost;type:numeric(12,2);not null;default:0"`
}

// Measure returns the ordered amount regardless of unit.
func (i OrderItem) Measure() decimal.Decimal {
	if i.Weight != nil {
		return *i.Weight
	}
	if i.Quantity != nil {
		return decimal.NewFromInt(int64(*i.Quantity))
	}
	return decimal.Zero
}

// LineTotal is unit price times the ordered measure, rounded to cents.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(i.Measure()).Round(2)
}

// LineCost is unit cost times the ordered measure, rounded to cents.
func (i OrderItem) LineCost() decimal.Decimal {
	return i.UnitCost.Mul(i.Measure()).Round(2)
}
