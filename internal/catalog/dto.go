package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brianmwirigi/sokofresh-backend/pkg/enums"
)

// StockRequest asks for stock against one product. Exactly one of Quantity or
// Weight is set, matching the product's unit.
type StockRequest struct {
	ProductID uuid.UUID
	Quantity  *int
	Weight    *decimal.Decimal
}

// CreateProductInput carries the fields for a new product.
type CreateProductInput struct {
	Name         string
	Description  *string
	Unit         enums.ProductUnit
	Price        decimal.Decimal
	CostPrice    decimal.Decimal
	MinimumStock decimal.Decimal
	InitialQty   int
	InitialWt    decimal.Decimal
}

// UpdateProductInput carries mutable product fields. Nil pointers are left
// unchanged.
type UpdateProductInput struct {
	Name         *string
	Description  *string
	Price        *decimal.Decimal
	CostPrice    *decimal.Decimal
	MinimumStock *decimal.Decimal
	IsActive     *bool
}
