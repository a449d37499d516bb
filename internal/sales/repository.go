package sales

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/brianmwirigi/sokofresh-backend/pkg/db/models"
	"github.com/brianmwirigi/sokofresh-backend/pkg/enums"
)

// Repository persists sales and their derived payment aggregates.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, sale *models.Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Sale, error)
	Save(ctx context.Context, sale *models.Sale) error
	SumCompletedPayments(ctx context.Context, saleID uuid.UUID) (decimal.Decimal, error)
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	UpdateOrderPaymentStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderPaymentStatus) error
	ListUnpaidPastDue(ctx context.Context, now time.Time) ([]models.Sale, error)
	ListDueSoon(ctx context.Context, now, until time.Time) ([]models.Sale, error)
	MarkOverdueNotified(ctx context.Context, saleID uuid.UUID, at time.Time) (bool, error)
	MarkDueWarningNotified(ctx context.Context, saleID uuid.UUID, at time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a sales repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, sale *models.Sale) error {
	return r.db.WithContext(ctx).Create(sale).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&sale).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).Preload("Items").Where("order_id = ?", orderID).First(&sale).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repository) Save(ctx context.Context, sale *models.Sale) error {
	return r.db.WithContext(ctx).Omit("Items").Save(sale).Error
}

func (r *repository) SumCompletedPayments(ctx context.Context, saleID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("sale_id = ? AND status = ?", saleID, enums.PaymentStatusCompleted).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) UpdateOrderPaymentStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderPaymentStatus) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("payment_status", status).Error
}

func (r *repository) ListUnpaidPastDue(ctx context.Context, now time.Time) ([]models.Sale, error) {
	var sales []models.Sale
	err := r.db.WithContext(ctx).
		Where("payment_status IN ? AND due_date IS NOT NULL AND due_date < ?",
			[]enums.SalePaymentStatus{enums.SalePaymentStatusNoPayment, enums.SalePaymentStatusPartialPayment}, now).
		Find(&sales).Error
	return sales, err
}

func (r *repository) ListDueSoon(ctx context.Context, now, until time.Time) ([]models.Sale, error) {
	var sales []models.Sale
	err := r.db.WithContext(ctx).
		Where("payment_status IN ? AND due_date IS NOT NULL AND due_date >= ? AND due_date <= ? AND due_warning_notified_at IS NULL",
			[]enums.SalePaymentStatus{enums.SalePaymentStatusNoPayment, enums.SalePaymentStatusPartialPayment}, now, until).
		Find(&sales).Error
	return sales, err
}

func (r *repository) MarkOverdueNotified(ctx context.Context, saleID uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Sale{}).
		Where("id = ? AND overdue_notified_at IS NULL", saleID).
		Update("overdue_notified_at", at)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) MarkDueWarningNotified(ctx context.Context, saleID uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Sale{}).
		Where("id = ? AND due_warning_notified_at IS NULL", saleID).
		Update("due_warning_notified_at", at)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
