package pickup

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brianmwirigi/sokofresh-backend/pkg/db/models"
	pkgerrors "github.com/brianmwirigi/sokofresh-backend/pkg/errors"
)

// Service manages bounded-capacity pickup windows.
type Service interface {
	CreateSlot(ctx context.Context, input CreateSlotInput) (*models.PickupSlot, error)
	ListAvailable(ctx context.Context, date time.Time) ([]models.PickupSlot, error)
	Reserve(ctx context.Context, tx *gorm.DB, slotID uuid.UUID) error
	Release(ctx context.Context, tx *gorm.DB, slotID uuid.UUID) error
}

// CreateSlotInput carries the fields for a new pickup window.
type CreateSlotInput struct {
	Date      time.Time
	StartTime string
	EndTime   string
	MaxOrders int
}

type service struct {
	repo Repository
}

// NewService builds a pickup service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("pickup repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateSlot(ctx context.Context, input CreateSlotInput) (*models.PickupSlot, error) {
	if input.MaxOrders <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max orders must be positive")
	}
	if input.StartTime == "" || input.EndTime == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "start and end time required")
	}

	slot := &models.PickupSlot{
		ID:        uuid.New(),
		SlotDate:  input.Date,
		StartTime: input.StartTime,
		EndTime:   input.EndTime,
		MaxOrders: input.MaxOrders,
		IsActive:  true,
	}
	created, err := s.repo.Create(ctx, slot)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create pickup slot")
	}
	return created, nil
}

func (s *service) ListAvailable(ctx context.Context, date time.Time) ([]models.PickupSlot, error) {
	slots, err := s.repo.ListForDate(ctx, date)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pickup slots")
	}
	available := make([]models.PickupSlot, 0, len(slots))
	for _, slot := range slots {
		if slot.Remaining() > 0 {
			available = append(available, slot)
		}
	}
	return available, nil
}

// Reserve takes one seat in the slot inside the caller's transaction. The
// increment is conditional on remaining capacity; a full slot fails the
// whole transaction.
func (s *service) Reserve(ctx context.Context, tx *gorm.DB, slotID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	reserved, err := s.repo.WithTx(tx).ReserveSeat(ctx, slotID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve pickup seat")
	}
	if !reserved {
		exists, lookupErr := s.slotExists(ctx, tx, slotID)
		if lookupErr != nil {
			return lookupErr
		}
		if !exists {
			return pkgerrors.New(pkgerrors.CodeNotFound, "pickup slot not found")
		}
		return pkgerrors.New(pkgerrors.CodeConflict, "pickup slot is full")
	}
	return nil
}

// Release frees one seat, floored at zero.
func (s *service) Release(ctx context.Context, tx *gorm.DB, slotID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if err := s.repo.WithTx(tx).ReleaseSeat(ctx, slotID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release pickup seat")
	}
	return nil
}

func (s *service) slotExists(ctx context.Context, tx *gorm.DB, slotID uuid.UUID) (bool, error) {
	_, err := s.repo.WithTx(tx).FindByID(ctx, slotID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pickup slot")
	}
	return true, nil
}
