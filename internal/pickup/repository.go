package pickup

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brianmwirigi/sokofresh-backend/pkg/db/models"
)

// Repository exposes pickup slot persistence. Seat counts only move through
// the conditional increment/decrement so the capacity cap holds under load.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, slot *models.PickupSlot) (*models.PickupSlot, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.PickupSlot, error)
	ListForDate(ctx context.Context, date time.Time) ([]models.PickupSlot, error)
	ReserveSeat(ctx context.Context, id uuid.UUID) (bool, error)
	ReleaseSeat(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a pickup slot repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, slot *models.PickupSlot) (*models.PickupSlot, error) {
	if err := r.db.WithContext(ctx).Create(slot).Error; err != nil {
		return nil, err
	}
	return slot, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PickupSlot, error) {
	var slot models.PickupSlot
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&slot).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *repository) ListForDate(ctx context.Context, date time.Time) ([]models.PickupSlot, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	var slots []models.PickupSlot
	err := r.db.WithContext(ctx).
		Where("slot_date >= ? AND slot_date < ? AND is_active = ?", dayStart, dayEnd, true).
		Order("start_time ASC").
		Find(&slots).Error
	return slots, err
}

func (r *repository) ReserveSeat(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.PickupSlot{}).
		Where("id = ? AND reserved_count < max_orders AND is_active = ?", id, true).
		Update("reserved_count", gorm.Expr("reserved_count + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) ReleaseSeat(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.PickupSlot{}).
		Where("id = ? AND reserved_count > 0", id).
		Update("reserved_count", gorm.Expr("reserved_count - 1")).Error
}
