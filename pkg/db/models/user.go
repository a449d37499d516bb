package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brianmwirigi/sokofresh-backend/pkg/enums"
)

// User represents a customer account. WalletBalance is an incrementally
// maintained cache of the wallet transaction ledger sum; MaxDebtLimit is the
// negative floor the balance may not cross when taking on debt.
type User struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name          string          `gorm:"column:name;not null"`
	Phone         string          `gorm:"column:phone;not null;uniqueIndex"`
	Email         *string         `gorm:"column:email"`
	Role          enums.UserRole  `gorm:"column:role;type:text;not null;default:'customer'"`
	WalletBalance decimal.Decimal `gorm:"column:wallet_balance;type:numeric(12,2);not null;default:0"`
	MaxDebtLimit  decimal.Decimal `gorm:"column:max_debt_limit;type:numeric(12,2);not null;default:-500.00"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
