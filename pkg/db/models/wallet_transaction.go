package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brianmwirigi/sokofresh-backend/pkg/enums"
)

// WalletTransaction is an append-only wallet ledger entry. Amount is signed:
// credits positive, debits negative. users.wallet_balance always equals the
// sum of a user's entries; both are written in the same transaction.
type WalletTransaction struct {
	ID          uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey"`
	UserID      uuid.UUID                   `gorm:"column:user_id;type:uuid;not null;index"`
	Type        enums.WalletTransactionType `gorm:"column:type;type:text;not null"`
	Amount      decimal.Decimal             `gorm:"column:amount;type:numeric(12,2);not null"`
	Description string                      `gorm:"column:description;not null"`
	OrderID     *uuid.UUID                  `gorm:"column:order_id;type:uuid"`
	SaleID      *uuid.UUID                  `gorm:"column:sale_id;type:uuid"`
	CreatedAt   time.Time                   `gorm:"column:created_at;autoCreateTime"`
}
