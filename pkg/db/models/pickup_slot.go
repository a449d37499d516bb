package models

import (
	"time"

	"github.com/google/uuid"
)

// PickupSlot is a bounded-capacity collection window. ReservedCount only
// moves through conditional updates so the MaxOrders cap holds under
// concurrent checkouts.
type PickupSlot struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SlotDate      time.Time `gorm:"column:slot_date;type:date;not null;index"`
	StartTime     string    `gorm:"column:start_time;not null"`
	EndTime       string    `gorm:"column:end_time;not null"`
	MaxOrders     int       `gorm:"column:max_orders;not null"`
	ReservedCount int       `gorm:"column:reserved_count;not null;default:0"`
	IsActive      bool      `gorm:"column:is_active;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Remaining is the number of seats still available.
func (s PickupSlot) Remaining() int {
	remaining := s.MaxOrders - s.ReservedCount
	if remaining < 0 {
		return 0
	}
	return remaining
}
