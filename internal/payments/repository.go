package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brianmwirigi/sokofresh-backend/pkg/db/models"
	"github.com/brianmwirigi/sokofresh-backend/pkg/enums"
)

// Repository persists payments and their M-Pesa gateway records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	InsertPayment(ctx context.Context, payment *models.Payment) error
	FindPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	SavePayment(ctx context.Context, payment *models.Payment) error
	MarkPaymentStatus(ctx context.Context, id uuid.UUID, from, to enums.PaymentStatus) (bool, error)
	ListBySale(ctx context.Context, saleID uuid.UUID) ([]models.Payment, error)
	FindSale(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	InsertMpesaTransaction(ctx context.Context, txn *models.MpesaTransaction) error
	FindMpesaByCheckoutID(ctx context.Context, checkoutRequestID string) (*models.MpesaTransaction, error)
	SaveMpesaTransaction(ctx context.Context, txn *models.MpesaTransaction) error
	ListExpiredPending(ctx context.Context, cutoff time.Time) ([]models.MpesaTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) InsertPayment(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) FindPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) SavePayment(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Save(payment).Error
}

// MarkPaymentStatus flips the payment status only when the current value
// matches. Used as the guard against double-processed callbacks.
func (r *repository) MarkPaymentStatus(ctx context.Context, id uuid.UUID, from, to enums.PaymentStatus) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) ListBySale(ctx context.Context, saleID uuid.UUID) ([]models.Payment, error) {
	var list []models.Payment
	err := r.db.WithContext(ctx).
		Where("sale_id = ?", saleID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

func (r *repository) FindSale(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&sale).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repository) InsertMpesaTransaction(ctx context.Context, txn *models.MpesaTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) FindMpesaByCheckoutID(ctx context.Context, checkoutRequestID string) (*models.MpesaTransaction, error) {
	var txn models.MpesaTransaction
	err := r.db.WithContext(ctx).Where("checkout_request_id = ?", checkoutRequestID).First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) SaveMpesaTransaction(ctx context.Context, txn *models.MpesaTransaction) error {
	return r.db.WithContext(ctx).Save(txn).Error
}

// ListExpiredPending returns gateway records initiated before the cutoff
// whose payment is still pending.
func (r *repository) ListExpiredPending(ctx context.Context, cutoff time.Time) ([]models.MpesaTransaction, error) {
	var list []models.MpesaTransaction
	err := r.db.WithContext(ctx).
		Joins("JOIN payments ON payments.id = mpesa_transactions.payment_id").
		Where("payments.status = ? AND mpesa_transactions.created_at < ?", enums.PaymentStatusPending, cutoff).
		Find(&list).Error
	return list, err
}
