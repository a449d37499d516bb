package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MpesaTransaction tracks a Daraja STK push from initiation through callback.
// CheckoutRequestID is the correlation key the gateway echoes back.
type MpesaTransaction struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	PaymentID         uuid.UUID       `gorm:"column:payment_id;type:uuid;not null;index"`
	CheckoutRequestID string          `gorm:"column:checkout_request_id;not null;uniqueIndex"`
	MerchantRequestID string          `gorm:"column:merchant_request_id;not null"`
	Phone             string          `gorm:"column:phone;not null"`
	Amount            decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	ResultCode        *int            `gorm:"column:result_code"`
	ResultDescription *string         `gorm:"column:result_description"`
	Receipt           *string         `gorm:"column:receipt"`
	CallbackAt        *time.Time      `gorm:"column:callback_at"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
