package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brianmwirigi/sokofresh-backend/pkg/enums"
)

// Order represents a customer order. UserID is nil for guest orders.
// PaymentMethod records the intent declared at checkout; actual settlement
// lives on Payment rows attached to the sale.
type Order struct {
	ID                 uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	UserID             *uuid.UUID               `gorm:"column:user_id;type:uuid"`
	CustomerName       string                   `gorm:"column:customer_name;not null"`
	CustomerPhone      string                   `gorm:"column:customer_phone;not null"`
	OrderStatus        enums.OrderStatus        `gorm:"column:order_status;type:text;not null;default:'pending'"`
	PaymentStatus      enums.OrderPaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	PaymentMethod      enums.PaymentIntent      `gorm:"column:payment_method;type:text;not null"`
	FulfillmentStatus  enums.FulfillmentStatus  `gorm:"column:fulfillment_status;type:text;not null;default:'pending'"`
	PickupSlotID       *uuid.UUID               `gorm:"column:pickup_slot_id;type:uuid"`
	PickupTime         *time.Time               `gorm:"column:pickup_time"`
	PickupCode         *string                  `gorm:"column:pickup_code"`
	Notes              *string                  `gorm:"column:notes"`
	CancellationReason *string                  `gorm:"column:cancellation_reason"`
	CancelledAt        *time.Time               `gorm:"column:cancelled_at"`
	ReadyAt            *time.Time               `gorm:"column:ready_at"`
	PickedUpAt         *time.Time               `gorm:"column:picked_up_at"`
	Items              []OrderItem              `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

// TotalAmount derives the order total from its items. The total is never
// stored on the order row.
func (o Order) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.LineTotal())
	}
	return total.Round(2)
}

// TotalCost derives the snapshot cost of all items.
func (o Order) TotalCost() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.LineCost())
	}
	return total.Round(2)
}
