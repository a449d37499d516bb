package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/brianmwirigi/sokofresh-backend/pkg/db/models"
)

// Repository persists wallet ledger entries and the denormalized balance on
// the user row. Both always move in the same transaction.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	InsertTransaction(ctx context.Context, txn *models.WalletTransaction) error
	IncrementBalance(ctx context.Context, userID uuid.UUID, delta decimal.Decimal) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.WalletTransaction, error)
	MarkSaleAdjusted(ctx context.Context, saleID uuid.UUID, at time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a wallet repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) InsertTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) IncrementBalance(ctx context.Context, userID uuid.UUID, delta decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("wallet_balance", gorm.Expr("wallet_balance + ?", delta)).Error
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.WalletTransaction, error) {
	var txns []models.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&txns).Error
	return txns, err
}

// MarkSaleAdjusted stamps the reconciliation guard on the sale. The update is
// conditional on the stamp being unset, which makes the adjustment
// exactly-once even under concurrent pickup confirmations.
func (r *repository) MarkSaleAdjusted(ctx context.Context, saleID uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Sale{}).
		Where("id = ? AND wallet_adjusted_at IS NULL", saleID).
		Update("wallet_adjusted_at", at)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
