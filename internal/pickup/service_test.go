package pickup

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/brianmwirigi/sokofresh-backend/pkg/db/models"
	pkgerrors "github.com/brianmwirigi/sokofresh-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:pickup_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.PickupSlot{}); err != nil {
		t.Fatalf("migrate pickup slots: %v", err)
	}
	return db
}

func seedSlot(t *testing.T, db *gorm.DB, slot models.PickupSlot) *models.PickupSlot {
	t.Helper()
	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}
	if err := db.Create(&slot).Error; err != nil {
		t.Fatalf("seed slot: %v", err)
	}
	return &slot
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestReserveTakesSeat(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	slot := seedSlot(t, db, models.PickupSlot{
		SlotDate:  time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		StartTime: "09:00",
		EndTime:   "11:00",
		MaxOrders: 10,
		IsActive:  true,
	})

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Reserve(context.Background(), tx, slot.ID)
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	var reloaded models.PickupSlot
	if err := db.First(&reloaded, "id = ?", slot.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.ReservedCount != 1 {
		t.Fatalf("expected reserved count 1, got %d", reloaded.ReservedCount)
	}
}

func TestReserveLastSeatOnlyOnce(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	slot := seedSlot(t, db, models.PickupSlot{
		SlotDate:      time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		StartTime:     "11:00",
		EndTime:       "13:00",
		MaxOrders:     3,
		ReservedCount: 2,
		IsActive:      true,
	})

	succeeded := 0
	var lastErr error
	for i := 0; i < 2; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			return svc.Reserve(context.Background(), tx, slot.ID)
		})
		if err == nil {
			succeeded++
		} else {
			lastErr = err
		}
	}

	if succeeded != 1 {
		t.Fatalf("expected exactly 1 successful reserve, got %d", succeeded)
	}
	typed := pkgerrors.As(lastErr)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for full slot, got %v", lastErr)
	}

	var reloaded models.PickupSlot
	if err := db.First(&reloaded, "id = ?", slot.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.ReservedCount != reloaded.MaxOrders {
		t.Fatalf("expected slot at capacity, got %d/%d", reloaded.ReservedCount, reloaded.MaxOrders)
	}
}

func TestReserveInactiveSlotConflicts(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	slot := seedSlot(t, db, models.PickupSlot{
		SlotDate:  time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		StartTime: "13:00",
		EndTime:   "15:00",
		MaxOrders: 5,
		IsActive:  false,
	})

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Reserve(context.Background(), tx, slot.ID)
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for inactive slot, got %v", err)
	}
}

func TestReserveUnknownSlotNotFound(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Reserve(context.Background(), tx, uuid.New())
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReleaseFloorsAtZero(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	slot := seedSlot(t, db, models.PickupSlot{
		SlotDate:  time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		StartTime: "09:00",
		EndTime:   "11:00",
		MaxOrders: 5,
		IsActive:  true,
	})

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Release(context.Background(), tx, slot.ID)
	})
	if err != nil {
		t.Fatalf("release: %v", err)
	}

	var reloaded models.PickupSlot
	if err := db.First(&reloaded, "id = ?", slot.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.ReservedCount != 0 {
		t.Fatalf("expected reserved count 0, got %d", reloaded.ReservedCount)
	}
}

func TestListAvailableSkipsFullSlots(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	day := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	open := seedSlot(t, db, models.PickupSlot{
		SlotDate:  day,
		StartTime: "09:00",
		EndTime:   "11:00",
		MaxOrders: 5,
		IsActive:  true,
	})
	seedSlot(t, db, models.PickupSlot{
		SlotDate:      day,
		StartTime:     "11:00",
		EndTime:       "13:00",
		MaxOrders:     2,
		ReservedCount: 2,
		IsActive:      true,
	})

	slots, err := svc.ListAvailable(context.Background(), day)
	if err != nil {
		t.Fatalf("list available: %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("expected 1 available slot, got %d", len(slots))
	}
	if slots[0].ID != open.ID {
		t.Fatalf("unexpected slot %s", slots[0].ID)
	}
}

func TestCreateSlotValidates(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	_, err := svc.CreateSlot(context.Background(), CreateSlotInput{
		Date:      time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC),
		StartTime: "09:00",
		EndTime:   "11:00",
		MaxOrders: 0,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
