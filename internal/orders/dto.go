package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brianmwirigi/sokofresh-backend/pkg/enums"
)

// OrderItemInput is one requested line. Exactly one of Quantity or Weight is
// set, matching the product's unit.
type OrderItemInput struct {
	ProductID uuid.UUID
	Quantity  *int
	Weight    *decimal.Decimal
}

// CreateOrderInput carries the checkout request. UserID is nil for guest
// orders; pay_later requires an account.
type CreateOrderInput struct {
	UserID        *uuid.UUID
	CustomerName  string
	CustomerPhone string
	PaymentMethod enums.PaymentIntent
	PickupSlotID  *uuid.UUID
	PickupTime    *time.Time
	Notes         *string
	Items         []OrderItemInput
}
