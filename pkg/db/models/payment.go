package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brianmwirigi/sokofresh-backend/pkg/enums"
)

// Payment is a single settlement attempt against a sale. SaleID is nil only
// for STK pushes initiated before the order is confirmed; those carry OrderID
// and are attached to the sale when it exists.
type Payment struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	SaleID        *uuid.UUID          `gorm:"column:sale_id;type:uuid;index"`
	OrderID       *uuid.UUID          `gorm:"column:order_id;type:uuid;index"`
	Method        enums.PaymentMethod `gorm:"column:method;type:text;not null"`
	Amount        decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Status        enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	MpesaReceipt  *string             `gorm:"column:mpesa_receipt"`
	FailureReason *string             `gorm:"column:failure_reason"`
	RecordedBy    *uuid.UUID          `gorm:"column:recorded_by;type:uuid"`
	CompletedAt   *time.Time          `gorm:"column:completed_at"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
