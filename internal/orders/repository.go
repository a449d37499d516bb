package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brianmwirigi/sokofresh-backend/pkg/db/models"
	"github.com/brianmwirigi/sokofresh-backend/pkg/enums"
)

// Repository persists orders. Every lifecycle transition goes through a
// conditional update keyed on the current state, so concurrent actors cannot
// move an order twice.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindSale(ctx context.Context, orderID uuid.UUID) (*models.Sale, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	List(ctx context.Context, status *enums.OrderStatus) ([]models.Order, error)
	MarkConfirmed(ctx context.Context, id uuid.UUID) (bool, error)
	MarkCancelled(ctx context.Context, id uuid.UUID, reason string, at time.Time) (bool, error)
	MarkReady(ctx context.Context, id uuid.UUID, code string, at time.Time) (bool, error)
	MarkPickedUp(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindSale(ctx context.Context, orderID uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&sale).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var list []models.Order
	err := r.db.WithContext(ctx).Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

func (r *repository) List(ctx context.Context, status *enums.OrderStatus) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Preload("Items").Order("created_at DESC")
	if status != nil {
		query = query.Where("order_status = ?", *status)
	}
	var list []models.Order
	err := query.Find(&list).Error
	return list, err
}

func (r *repository) MarkConfirmed(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND order_status = ?", id, enums.OrderStatusPending).
		Update("order_status", enums.OrderStatusConfirmed)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) MarkCancelled(ctx context.Context, id uuid.UUID, reason string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND order_status IN ? AND fulfillment_status <> ?",
			id,
			[]enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusConfirmed},
			enums.FulfillmentStatusPickedUp).
		Updates(map[string]any{
			"order_status":        enums.OrderStatusCancelled,
			"cancellation_reason": reason,
			"cancelled_at":        at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) MarkReady(ctx context.Context, id uuid.UUID, code string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND order_status = ? AND fulfillment_status = ?",
			id, enums.OrderStatusConfirmed, enums.FulfillmentStatusPending).
		Updates(map[string]any{
			"fulfillment_status": enums.FulfillmentStatusReady,
			"pickup_code":        code,
			"ready_at":           at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) MarkPickedUp(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND fulfillment_status = ?", id, enums.FulfillmentStatusReady).
		Updates(map[string]any{
			"fulfillment_status": enums.FulfillmentStatusPickedUp,
			"picked_up_at":       at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
