package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/brianmwirigi/sokofresh-backend/pkg/db/models"
	"github.com/brianmwirigi/sokofresh-backend/pkg/enums"
	pkgerrors "github.com/brianmwirigi/sokofresh-backend/pkg/errors"
	"github.com/brianmwirigi/sokofresh-backend/pkg/outbox"
)

type stubPublisher struct {
	events []outbox.DomainEvent
}

func (s *stubPublisher) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:catalog_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}); err != nil {
		t.Fatalf("migrate products: %v", err)
	}
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, product models.Product) *models.Product {
	t.Helper()
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return &product
}

func newTestService(t *testing.T, db *gorm.DB) (Service, *stubPublisher) {
	t.Helper()
	publisher := &stubPublisher{}
	svc, err := NewService(NewRepository(db), publisher)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, publisher
}

func intPtr(v int) *int { return &v }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestTakeStockDecrementsQuantity(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	product := seedProduct(t, db, models.Product{
		Name:          "Sukuma Wiki Bundle",
		Unit:          enums.ProductUnitPiece,
		StockQuantity: 5,
		Price:         decimal.RequireFromString("30.00"),
	})

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.TakeStock(context.Background(), tx, StockRequest{
			ProductID: product.ID,
			Quantity:  intPtr(3),
		})
	})
	if err != nil {
		t.Fatalf("take stock: %v", err)
	}

	var reloaded models.Product
	if err := db.First(&reloaded, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.StockQuantity != 2 {
		t.Fatalf("expected stock 2, got %d", reloaded.StockQuantity)
	}
}

func TestTakeStockInsufficientRollsBack(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	product := seedProduct(t, db, models.Product{
		Name:          "Mango Crate",
		Unit:          enums.ProductUnitPiece,
		StockQuantity: 2,
		Price:         decimal.RequireFromString("500.00"),
	})

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.TakeStock(context.Background(), tx, StockRequest{
			ProductID: product.ID,
			Quantity:  intPtr(3),
		})
	})
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error: %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok || details["product_name"] != "Mango Crate" {
		t.Fatalf("expected product name in details, got %v", typed.Details())
	}

	var reloaded models.Product
	if err := db.First(&reloaded, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.StockQuantity != 2 {
		t.Fatalf("stock must be untouched, got %d", reloaded.StockQuantity)
	}
}

func TestTakeStockNeverNegativeUnderRepeatedTakes(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	product := seedProduct(t, db, models.Product{
		Name:          "Eggs Tray",
		Unit:          enums.ProductUnitPiece,
		StockQuantity: 5,
		Price:         decimal.RequireFromString("420.00"),
	})

	succeeded := 0
	for i := 0; i < 4; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			return svc.TakeStock(context.Background(), tx, StockRequest{
				ProductID: product.ID,
				Quantity:  intPtr(2),
			})
		})
		if err == nil {
			succeeded++
		}
	}

	if succeeded != 2 {
		t.Fatalf("expected exactly 2 successful takes, got %d", succeeded)
	}
	var reloaded models.Product
	if err := db.First(&reloaded, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.StockQuantity < 0 {
		t.Fatalf("stock went negative: %d", reloaded.StockQuantity)
	}
	if reloaded.StockQuantity != 1 {
		t.Fatalf("expected stock 1, got %d", reloaded.StockQuantity)
	}
}

func TestTakeStockByWeight(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	product := seedProduct(t, db, models.Product{
		Name:        "Tomatoes",
		Unit:        enums.ProductUnitKilogram,
		StockWeight: decimal.RequireFromString("10.000"),
		Price:       decimal.RequireFromString("120.00"),
	})

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.TakeStock(context.Background(), tx, StockRequest{
			ProductID: product.ID,
			Weight:    decPtr("2.5"),
		})
	})
	if err != nil {
		t.Fatalf("take stock: %v", err)
	}

	var reloaded models.Product
	if err := db.First(&reloaded, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.StockWeight.Equal(decimal.RequireFromString("7.5")) {
		t.Fatalf("expected weight 7.5, got %s", reloaded.StockWeight)
	}
}

func TestTakeStockEmitsLowStockEvent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, publisher := newTestService(t, db)
	product := seedProduct(t, db, models.Product{
		Name:          "Onions Net",
		Unit:          enums.ProductUnitPiece,
		StockQuantity: 4,
		MinimumStock:  decimal.RequireFromString("3"),
		Price:         decimal.RequireFromString("150.00"),
	})

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.TakeStock(context.Background(), tx, StockRequest{
			ProductID: product.ID,
			Quantity:  intPtr(2),
		})
	})
	if err != nil {
		t.Fatalf("take stock: %v", err)
	}

	if len(publisher.events) != 1 {
		t.Fatalf("expected 1 low stock event, got %d", len(publisher.events))
	}
	if publisher.events[0].EventType != enums.EventLowStock {
		t.Fatalf("unexpected event type %s", publisher.events[0].EventType)
	}
}

func TestReturnStockRestores(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	product := seedProduct(t, db, models.Product{
		Name:          "Milk Packet",
		Unit:          enums.ProductUnitPiece,
		StockQuantity: 1,
		Price:         decimal.RequireFromString("65.00"),
	})

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.ReturnStock(context.Background(), tx, StockRequest{
			ProductID: product.ID,
			Quantity:  intPtr(4),
		})
	})
	if err != nil {
		t.Fatalf("return stock: %v", err)
	}

	var reloaded models.Product
	if err := db.First(&reloaded, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.StockQuantity != 5 {
		t.Fatalf("expected stock 5, got %d", reloaded.StockQuantity)
	}
}

func TestTakeStockRejectsWrongMeasure(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	product := seedProduct(t, db, models.Product{
		Name:          "Rice Sack",
		Unit:          enums.ProductUnitPiece,
		StockQuantity: 10,
		Price:         decimal.RequireFromString("2400.00"),
	})

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.TakeStock(context.Background(), tx, StockRequest{
			ProductID: product.ID,
			Weight:    decPtr("1.0"),
		})
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
