package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/brianmwirigi/sokofresh-backend/internal/catalog"
	"github.com/brianmwirigi/sokofresh-backend/internal/payments"
	"github.com/brianmwirigi/sokofresh-backend/internal/pickup"
	"github.com/brianmwirigi/sokofresh-backend/internal/sales"
	"github.com/brianmwirigi/sokofresh-backend/internal/wallet"
	"github.com/brianmwirigi/sokofresh-backend/pkg/config"
	"github.com/brianmwirigi/sokofresh-backend/pkg/db/models"
	"github.com/brianmwirigi/sokofresh-backend/pkg/enums"
	pkgerrors "github.com/brianmwirigi/sokofresh-backend/pkg/errors"
	"github.com/brianmwirigi/sokofresh-backend/pkg/mpesa"
	"github.com/brianmwirigi/sokofresh-backend/pkg/outbox"
)

type stubPublisher struct {
	events []outbox.DomainEvent
}

func (s *stubPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *stubPublisher) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *stubPublisher) count(eventType enums.OutboxEventType) int {
	n := 0
	for _, event := range s.events {
		if event.EventType == eventType {
			n++
		}
	}
	return n
}

type stubGateway struct{}

func (stubGateway) STKPush(ctx context.Context, req mpesa.STKPushRequest) (*mpesa.STKPushResponse, error) {
	return &mpesa.STKPushResponse{CheckoutRequestID: "ws_CO_" + uuid.NewString(), ResponseCode: "0"}, nil
}

type stubIdem struct{}

func (stubIdem) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	return true, nil
}

func (stubIdem) IdempotencyKey(scope, id string) string { return scope + ":" + id }

type testRunner struct {
	db *gorm.DB
}

func (r testRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error { return fn(tx) })
}

type testEnv struct {
	db        *gorm.DB
	orders    Service
	payments  payments.Service
	sales     sales.Service
	publisher *stubPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{}, &models.Product{}, &models.PickupSlot{},
		&models.Order{}, &models.OrderItem{},
		&models.Sale{}, &models.SaleItem{},
		&models.Payment{}, &models.MpesaTransaction{},
		&models.WalletTransaction{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	publisher := &stubPublisher{}
	runner := testRunner{db: db}

	catalogSvc, err := catalog.NewService(catalog.NewRepository(db), publisher)
	if err != nil {
		t.Fatalf("catalog service: %v", err)
	}
	pickupSvc, err := pickup.NewService(pickup.NewRepository(db))
	if err != nil {
		t.Fatalf("pickup service: %v", err)
	}
	walletSvc, err := wallet.NewService(wallet.NewRepository(db), publisher)
	if err != nil {
		t.Fatalf("wallet service: %v", err)
	}
	salesSvc, err := sales.NewService(sales.NewRepository(db), publisher, runner, config.BillingConfig{
		DebtDueDays:     7,
		DebtWarningDays: 2,
	})
	if err != nil {
		t.Fatalf("sales service: %v", err)
	}
	paymentsSvc, err := payments.NewService(
		payments.NewRepository(db), salesSvc, walletSvc,
		stubGateway{}, stubIdem{}, publisher, runner,
		config.MpesaConfig{PendingExpiry: 15 * time.Minute, CallbackEventTTL: time.Hour},
	)
	if err != nil {
		t.Fatalf("payments service: %v", err)
	}
	ordersSvc, err := NewService(NewRepository(db), catalogSvc, salesSvc, walletSvc, pickupSvc, publisher, runner)
	if err != nil {
		t.Fatalf("orders service: %v", err)
	}

	return &testEnv{db: db, orders: ordersSvc, payments: paymentsSvc, sales: salesSvc, publisher: publisher}
}

func intPtr(v int) *int { return &v }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func seedUser(t *testing.T, db *gorm.DB, debtLimit string) *models.User {
	t.Helper()
	user := models.User{
		ID:           uuid.New(),
		Name:         "Wanjiru",
		Phone:        "2547" + uuid.NewString()[:8],
		MaxDebtLimit: decimal.RequireFromString(debtLimit),
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return &user
}

func seedProduct(t *testing.T, db *gorm.DB, product models.Product) *models.Product {
	t.Helper()
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	product.IsActive = true
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return &product
}

func seedSlot(t *testing.T, db *gorm.DB, maxOrders int) *models.PickupSlot {
	t.Helper()
	slot := models.PickupSlot{
		ID:        uuid.New(),
		SlotDate:  time.Now().AddDate(0, 0, 1),
		StartTime: "09:00",
		EndTime:   "11:00",
		MaxOrders: maxOrders,
		IsActive:  true,
	}
	if err := db.Create(&slot).Error; err != nil {
		t.Fatalf("seed slot: %v", err)
	}
	return &slot
}

func reloadProduct(t *testing.T, db *gorm.DB, id uuid.UUID) *models.Product {
	t.Helper()
	var product models.Product
	if err := db.First(&product, "id = ?", id).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return &product
}

func reloadSlot(t *testing.T, db *gorm.DB, id uuid.UUID) *models.PickupSlot {
	t.Helper()
	var slot models.PickupSlot
	if err := db.First(&slot, "id = ?", id).Error; err != nil {
		t.Fatalf("reload slot: %v", err)
	}
	return &slot
}

func TestOrderLifecycleHappyPath(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	user := seedUser(t, env.db, "-500.00")
	eggs := seedProduct(t, env.db, models.Product{
		Name:          "Eggs Tray",
		Unit:          enums.ProductUnitPiece,
		StockQuantity: 10,
		Price:         decimal.RequireFromString("420.00"),
		CostPrice:     decimal.RequireFromString("360.00"),
	})
	tomatoes := seedProduct(t, env.db, models.Product{
		Name:        "Tomatoes",
		Unit:        enums.ProductUnitKilogram,
		StockWeight: decimal.RequireFromString("20.000"),
		Price:       decimal.RequireFromString("120.00"),
		CostPrice:   decimal.RequireFromString("80.00"),
	})
	slot := seedSlot(t, env.db, 5)

	order, err := env.orders.Create(context.Background(), CreateOrderInput{
		UserID:        &user.ID,
		CustomerName:  user.Name,
		CustomerPhone: user.Phone,
		PaymentMethod: enums.PaymentIntentCash,
		PickupSlotID:  &slot.ID,
		Items: []OrderItemInput{
			{ProductID: eggs.ID, Quantity: intPtr(2)},
			{ProductID: tomatoes.ID, Weight: decPtr("2.5")},
		},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	// 2 * 420 + 2.5 * 120 = 1140.
	if !order.TotalAmount().Equal(decimal.RequireFromString("1140.00")) {
		t.Fatalf("unexpected total %s", order.TotalAmount())
	}
	if reloadSlot(t, env.db, slot.ID).ReservedCount != 1 {
		t.Fatal("expected slot reservation")
	}
	// Stock is untouched until confirmation.
	if reloadProduct(t, env.db, eggs.ID).StockQuantity != 10 {
		t.Fatal("stock must not move on creation")
	}

	if _, err := env.orders.Confirm(context.Background(), order.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if reloadProduct(t, env.db, eggs.ID).StockQuantity != 8 {
		t.Fatal("expected stock decrement at confirmation")
	}
	if !reloadProduct(t, env.db, tomatoes.ID).StockWeight.Equal(decimal.RequireFromString("17.5")) {
		t.Fatal("expected weight decrement at confirmation")
	}

	sale, err := env.sales.GetByOrderID(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("load sale: %v", err)
	}
	if !sale.TotalAmount.Equal(decimal.RequireFromString("1140.00")) {
		t.Fatalf("unexpected sale total %s", sale.TotalAmount)
	}

	if _, err := env.payments.RecordCash(context.Background(), payments.ManualPaymentInput{
		SaleID: sale.ID,
		Amount: decimal.RequireFromString("1140.00"),
	}); err != nil {
		t.Fatalf("record cash: %v", err)
	}

	_, token, err := env.orders.MarkReady(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("mark ready: %v", err)
	}
	verified, err := env.orders.VerifyPickupCode(context.Background(), token)
	if err != nil {
		t.Fatalf("verify pickup code: %v", err)
	}
	if verified.ID != order.ID {
		t.Fatalf("verified wrong order %s", verified.ID)
	}

	picked, err := env.orders.ConfirmPickup(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("confirm pickup: %v", err)
	}
	if picked.FulfillmentStatus != enums.FulfillmentStatusPickedUp {
		t.Fatalf("expected picked up, got %s", picked.FulfillmentStatus)
	}

	// Fully paid sale, the wallet stays untouched.
	var reloadedUser models.User
	if err := env.db.First(&reloadedUser, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if !reloadedUser.WalletBalance.IsZero() {
		t.Fatalf("expected untouched wallet, got %s", reloadedUser.WalletBalance)
	}

	for _, eventType := range []enums.OutboxEventType{
		enums.EventOrderCreated, enums.EventOrderConfirmed,
		enums.EventPaymentCompleted, enums.EventOrderReady, enums.EventOrderPickedUp,
	} {
		if env.publisher.count(eventType) != 1 {
			t.Fatalf("expected exactly one %s event", eventType)
		}
	}
}

func TestConfirmRollsBackWhenStockShort(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	product := seedProduct(t, env.db, models.Product{
		Name:          "Mango Crate",
		Unit:          enums.ProductUnitPiece,
		StockQuantity: 1,
		Price:         decimal.RequireFromString("500.00"),
	})

	order, err := env.orders.Create(context.Background(), CreateOrderInput{
		CustomerName:  "Guest",
		CustomerPhone: "254700000001",
		PaymentMethod: enums.PaymentIntentCash,
		Items:         []OrderItemInput{{ProductID: product.ID, Quantity: intPtr(2)}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	_, err = env.orders.Confirm(context.Background(), order.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	reloaded, err := env.orders.GetOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if reloaded.OrderStatus != enums.OrderStatusPending {
		t.Fatalf("failed confirmation must roll back, got %s", reloaded.OrderStatus)
	}
	if reloadProduct(t, env.db, product.ID).StockQuantity != 1 {
		t.Fatal("stock must be untouched")
	}
	if _, err := env.sales.GetByOrderID(context.Background(), order.ID); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("no sale may exist, got %v", err)
	}
}

func TestCreatePayLaterEnforcesDebtLimit(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	user := seedUser(t, env.db, "-500.00")
	product := seedProduct(t, env.db, models.Product{
		Name:          "Rice Sack",
		Unit:          enums.ProductUnitPiece,
		StockQuantity: 10,
		Price:         decimal.RequireFromString("300.00"),
	})

	_, err := env.orders.Create(context.Background(), CreateOrderInput{
		UserID:        &user.ID,
		CustomerName:  user.Name,
		CustomerPhone: user.Phone,
		PaymentMethod: enums.PaymentIntentPayLater,
		Items:         []OrderItemInput{{ProductID: product.ID, Quantity: intPtr(2)}},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected debt limit conflict, got %v", err)
	}

	var count int64
	if err := env.db.Model(&models.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if count != 0 {
		t.Fatalf("rejected order must not persist, found %d", count)
	}

	// A single sack stays within the floor.
	if _, err := env.orders.Create(context.Background(), CreateOrderInput{
		UserID:        &user.ID,
		CustomerName:  user.Name,
		CustomerPhone: user.Phone,
		PaymentMethod: enums.PaymentIntentPayLater,
		Items:         []OrderItemInput{{ProductID: product.ID, Quantity: intPtr(1)}},
	}); err != nil {
		t.Fatalf("order within limit: %v", err)
	}
}

func TestCreateRejectsGuestPayLater(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	product := seedProduct(t, env.db, models.Product{
		Name:          "Milk Packet",
		Unit:          enums.ProductUnitPiece,
		StockQuantity: 5,
		Price:         decimal.RequireFromString("65.00"),
	})

	_, err := env.orders.Create(context.Background(), CreateOrderInput{
		CustomerName:  "Guest",
		CustomerPhone: "254700000002",
		PaymentMethod: enums.PaymentIntentPayLater,
		Items:         []OrderItemInput{{ProductID: product.ID, Quantity: intPtr(1)}},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateFillsSlotAtomically(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	product := seedProduct(t, env.db, models.Product{
		Name:          "Onions Net",
		Unit:          enums.ProductUnitPiece,
		StockQuantity: 50,
		Price:         decimal.RequireFromString("150.00"),
	})
	slot := seedSlot(t, env.db, 1)

	input := CreateOrderInput{
		CustomerName:  "Guest",
		CustomerPhone: "254700000003",
		PaymentMethod: enums.PaymentIntentCash,
		PickupSlotID:  &slot.ID,
		Items:         []OrderItemInput{{ProductID: product.ID, Quantity: intPtr(1)}},
	}
	if _, err := env.orders.Create(context.Background(), input); err != nil {
		t.Fatalf("first order: %v", err)
	}

	_, err := env.orders.Create(context.Background(), input)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected slot full conflict, got %v", err)
	}
	if reloadSlot(t, env.db, slot.ID).ReservedCount != 1 {
		t.Fatal("slot must not exceed capacity")
	}
}

func TestCancelConfirmedRestocksAndReleasesSlot(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	product := seedProduct(t, env.db, models.Product{
		Name:          "Sukuma Wiki Bundle",
		Unit:          enums.ProductUnitPiece,
		StockQuantity: 5,
		Price:         decimal.RequireFromString("30.00"),
	})
	slot := seedSlot(t, env.db, 3)

	order, err := env.orders.Create(context.Background(), CreateOrderInput{
		CustomerName:  "Guest",
		CustomerPhone: "254700000004",
		PaymentMethod: enums.PaymentIntentCash,
		PickupSlotID:  &slot.ID,
		Items:         []OrderItemInput{{ProductID: product.ID, Quantity: intPtr(3)}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if _, err := env.orders.Confirm(context.Background(), order.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if reloadProduct(t, env.db, product.ID).StockQuantity != 2 {
		t.Fatal("expected stock decrement")
	}

	cancelled, err := env.orders.Cancel(context.Background(), order.ID, "customer changed their mind")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.OrderStatus != enums.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.OrderStatus)
	}
	if reloadProduct(t, env.db, product.ID).StockQuantity != 5 {
		t.Fatal("cancel must restock confirmed orders")
	}
	if reloadSlot(t, env.db, slot.ID).ReservedCount != 0 {
		t.Fatal("cancel must release the slot")
	}

	// Cancelling again is a no-op state conflict.
	_, err = env.orders.Cancel(context.Background(), order.ID, "again")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestCancelPickedUpOrderRejected(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	user := seedUser(t, env.db, "-500.00")
	product := seedProduct(t, env.db, models.Product{
		Name:          "Eggs Tray",
		Unit:          enums.ProductUnitPiece,
		StockQuantity: 5,
		Price:         decimal.RequireFromString("420.00"),
	})

	order, err := env.orders.Create(context.Background(), CreateOrderInput{
		UserID:        &user.ID,
		CustomerName:  user.Name,
		CustomerPhone: user.Phone,
		PaymentMethod: enums.PaymentIntentPayLater,
		Items:         []OrderItemInput{{ProductID: product.ID, Quantity: intPtr(1)}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if _, err := env.orders.Confirm(context.Background(), order.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, _, err := env.orders.MarkReady(context.Background(), order.ID); err != nil {
		t.Fatalf("mark ready: %v", err)
	}
	if _, err := env.orders.ConfirmPickup(context.Background(), order.ID); err != nil {
		t.Fatalf("confirm pickup: %v", err)
	}

	_, err = env.orders.Cancel(context.Background(), order.ID, "too late")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestPickupDebitsShortfallToWallet(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	user := seedUser(t, env.db, "-2000.00")
	product := seedProduct(t, env.db, models.Product{
		Name:          "Veg Box",
		Unit:          enums.ProductUnitPiece,
		StockQuantity: 5,
		Price:         decimal.RequireFromString("570.00"),
	})

	order, err := env.orders.Create(context.Background(), CreateOrderInput{
		UserID:        &user.ID,
		CustomerName:  user.Name,
		CustomerPhone: user.Phone,
		PaymentMethod: enums.PaymentIntentPayLater,
		Items:         []OrderItemInput{{ProductID: product.ID, Quantity: intPtr(2)}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if _, err := env.orders.Confirm(context.Background(), order.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	sale, err := env.sales.GetByOrderID(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("load sale: %v", err)
	}
	if _, err := env.payments.RecordCash(context.Background(), payments.ManualPaymentInput{
		SaleID: sale.ID,
		Amount: decimal.RequireFromString("500.00"),
	}); err != nil {
		t.Fatalf("record cash: %v", err)
	}

	if _, _, err := env.orders.MarkReady(context.Background(), order.ID); err != nil {
		t.Fatalf("mark ready: %v", err)
	}
	if _, err := env.orders.ConfirmPickup(context.Background(), order.ID); err != nil {
		t.Fatalf("confirm pickup: %v", err)
	}

	// 500 paid against 1140, the 640 shortfall lands on the wallet.
	var reloadedUser models.User
	if err := env.db.First(&reloadedUser, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if !reloadedUser.WalletBalance.Equal(decimal.RequireFromString("-640.00")) {
		t.Fatalf("expected balance -640.00, got %s", reloadedUser.WalletBalance)
	}
	if env.publisher.count(enums.EventWalletAdjusted) != 1 {
		t.Fatal("expected wallet adjusted event")
	}

	// Confirming pickup twice must not adjust twice.
	_, err = env.orders.ConfirmPickup(context.Background(), order.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if env.publisher.count(enums.EventWalletAdjusted) != 1 {
		t.Fatal("wallet adjustment must be exactly once")
	}
}

func TestPickupCreditsOverpaymentToWallet(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	user := seedUser(t, env.db, "-500.00")
	product := seedProduct(t, env.db, models.Product{
		Name:          "Veg Box",
		Unit:          enums.ProductUnitPiece,
		StockQuantity: 5,
		Price:         decimal.RequireFromString("570.00"),
	})

	order, err := env.orders.Create(context.Background(), CreateOrderInput{
		UserID:        &user.ID,
		CustomerName:  user.Name,
		CustomerPhone: user.Phone,
		PaymentMethod: enums.PaymentIntentCash,
		Items:         []OrderItemInput{{ProductID: product.ID, Quantity: intPtr(2)}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if _, err := env.orders.Confirm(context.Background(), order.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	sale, err := env.sales.GetByOrderID(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("load sale: %v", err)
	}

	// The customer hands over 1200 against 1140 at the counter.
	extra := models.Payment{
		ID:     uuid.New(),
		SaleID: &sale.ID,
		Method: enums.PaymentMethodCash,
		Amount: decimal.RequireFromString("1200.00"),
		Status: enums.PaymentStatusCompleted,
	}
	if err := env.db.Create(&extra).Error; err != nil {
		t.Fatalf("seed payment: %v", err)
	}
	err = env.db.Transaction(func(tx *gorm.DB) error {
		_, err := env.sales.RecalculateTotalPaid(context.Background(), tx, sale.ID)
		return err
	})
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}

	if _, _, err := env.orders.MarkReady(context.Background(), order.ID); err != nil {
		t.Fatalf("mark ready: %v", err)
	}
	if _, err := env.orders.ConfirmPickup(context.Background(), order.ID); err != nil {
		t.Fatalf("confirm pickup: %v", err)
	}

	var reloadedUser models.User
	if err := env.db.First(&reloadedUser, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if !reloadedUser.WalletBalance.Equal(decimal.RequireFromString("60.00")) {
		t.Fatalf("expected credit 60.00, got %s", reloadedUser.WalletBalance)
	}
}

func TestVerifyPickupCodeUniformFailures(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	product := seedProduct(t, env.db, models.Product{
		Name:          "Milk Packet",
		Unit:          enums.ProductUnitPiece,
		StockQuantity: 5,
		Price:         decimal.RequireFromString("65.00"),
	})

	order, err := env.orders.Create(context.Background(), CreateOrderInput{
		CustomerName:  "Guest",
		CustomerPhone: "254700000005",
		PaymentMethod: enums.PaymentIntentCash,
		Items:         []OrderItemInput{{ProductID: product.ID, Quantity: intPtr(1)}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if _, err := env.orders.Confirm(context.Background(), order.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	_, token, err := env.orders.MarkReady(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("mark ready: %v", err)
	}

	bad := []string{
		"garbage",
		"ORDER-not-a-uuid-ABC123",
		buildPickupToken(uuid.New(), "ABC123"),
		buildPickupToken(order.ID, "WRONG1"),
	}
	var messages []string
	for _, candidate := range bad {
		_, err := env.orders.VerifyPickupCode(context.Background(), candidate)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
			t.Fatalf("token %q: expected not found, got %v", candidate, err)
		}
		messages = append(messages, typed.Message())
	}
	for _, msg := range messages {
		if msg != messages[0] {
			t.Fatalf("failure messages must be uniform, got %v", messages)
		}
	}

	// The genuine token still resolves.
	if _, err := env.orders.VerifyPickupCode(context.Background(), token); err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}
}

func TestPickupTokenRoundTrip(t *testing.T) {
	t.Parallel()

	orderID := uuid.New()
	code := newPickupCode()
	token := buildPickupToken(orderID, code)

	parsedID, parsedCode, err := parsePickupToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsedID != orderID || parsedCode != code {
		t.Fatalf("round trip mismatch: %s %s", parsedID, parsedCode)
	}
	if len(code) != 6 {
		t.Fatalf("expected 6 character code, got %q", code)
	}
}
