package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brianmwirigi/sokofresh-backend/pkg/enums"
)

// Sale is the financial record created when an order is confirmed, 1:1 with
// the order. TotalPaid is denormalized from completed payments and
// recalculated inside the same transaction as every payment event.
type Sale struct {
	ID                   uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	OrderID              uuid.UUID               `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	UserID               *uuid.UUID              `gorm:"column:user_id;type:uuid"`
	TotalAmount          decimal.Decimal         `gorm:"column:total_amount;type:numeric(12,2);not null"`
	TotalPaid            decimal.Decimal         `gorm:"column:total_paid;type:numeric(12,2);not null;default:0"`
	CostAmount           decimal.Decimal         `gorm:"column:cost_amount;type:numeric(12,2);not null;default:0"`
	ProfitAmount         decimal.Decimal         `gorm:"column:profit_amount;type:numeric(12,2);not null;default:0"`
	PaymentStatus        enums.SalePaymentStatus `gorm:"column:payment_status;type:text;not null;default:'no_payment'"`
	DueDate              *time.Time              `gorm:"column:due_date"`
	OverdueNotifiedAt    *time.Time              `gorm:"column:overdue_notified_at"`
	DueWarningNotifiedAt *time.Time              `gorm:"column:due_warning_notified_at"`
	WalletAdjustedAt     *time.Time              `gorm:"column:wallet_adjusted_at"`
	Items                []SaleItem              `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	CreatedAt            time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

// Balance is the amount still owed.
func (s Sale) Balance() decimal.Decimal {
	return s.TotalAmount.Sub(s.TotalPaid)
}

// IsFullyPaid reports whether payments cover the total.
func (s Sale) IsFullyPaid() bool {
	return s.TotalPaid.GreaterThanOrEqual(s.TotalAmount)
}

// IsPastDue reports whether an unpaid sale has crossed its due date.
func (s Sale) IsPastDue(now time.Time) bool {
	return s.DueDate != nil && !s.IsFullyPaid() && now.After(*s.DueDate)
}
