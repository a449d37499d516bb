package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

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

func (s *stubPublisher) count(eventType enums.OutboxEventType) int {
	n := 0
	for _, event := range s.events {
		if event.EventType == eventType {
			n++
		}
	}
	return n
}

type stubGateway struct {
	resp     *mpesa.STKPushResponse
	err      error
	requests []mpesa.STKPushRequest
}

func (g *stubGateway) STKPush(ctx context.Context, req mpesa.STKPushRequest) (*mpesa.STKPushResponse, error) {
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	return g.resp, nil
}

type stubIdem struct {
	keys map[string]bool
}

func (s *stubIdem) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if s.keys == nil {
		s.keys = map[string]bool{}
	}
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *stubIdem) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

type testRunner struct {
	db *gorm.DB
}

func (r testRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error { return fn(tx) })
}

type testEnv struct {
	db        *gorm.DB
	svc       Service
	sales     sales.Service
	publisher *stubPublisher
	gateway   *stubGateway
	idem      *stubIdem
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := "file:payments_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{},
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

	salesSvc, err := sales.NewService(sales.NewRepository(db), publisher, runner, config.BillingConfig{
		DebtDueDays:     7,
		DebtWarningDays: 2,
	})
	if err != nil {
		t.Fatalf("sales service: %v", err)
	}
	walletSvc, err := wallet.NewService(wallet.NewRepository(db), publisher)
	if err != nil {
		t.Fatalf("wallet service: %v", err)
	}

	gateway := &stubGateway{
		resp: &mpesa.STKPushResponse{
			MerchantRequestID: "merchant-1",
			CheckoutRequestID: "ws_CO_" + uuid.NewString(),
			ResponseCode:      "0",
		},
	}
	idem := &stubIdem{}

	svc, err := NewService(NewRepository(db), salesSvc, walletSvc, gateway, idem, publisher, runner, config.MpesaConfig{
		PendingExpiry:    15 * time.Minute,
		CallbackEventTTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("payments service: %v", err)
	}
	return &testEnv{db: db, svc: svc, sales: salesSvc, publisher: publisher, gateway: gateway, idem: idem}
}

func intPtr(v int) *int { return &v }

// seedSale creates a confirmed order with a single 1140.00 line and its sale.
func seedSale(t *testing.T, env *testEnv, userID *uuid.UUID) *models.Sale {
	t.Helper()
	order := models.Order{
		ID:            uuid.New(),
		UserID:        userID,
		CustomerName:  "Akinyi",
		CustomerPhone: "254712345678",
		OrderStatus:   enums.OrderStatusConfirmed,
		PaymentStatus: enums.OrderPaymentStatusPending,
		PaymentMethod: enums.PaymentIntentMpesa,
		Items: []models.OrderItem{
			{
				ID:          uuid.New(),
				ProductID:   uuid.New(),
				ProductName: "Veg Box",
				Quantity:    intPtr(2),
				UnitPrice:   decimal.RequireFromString("570.00"),
				UnitCost:    decimal.RequireFromString("400.00"),
			},
		},
	}
	if err := env.db.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}

	var sale *models.Sale
	err := env.db.Transaction(func(tx *gorm.DB) error {
		var err error
		sale, err = env.sales.CreateFromOrder(context.Background(), tx, &order)
		return err
	})
	if err != nil {
		t.Fatalf("seed sale: %v", err)
	}
	return sale
}

func seedUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user := models.User{
		ID:           uuid.New(),
		Name:         "Wanjiru",
		Phone:        "2547" + uuid.NewString()[:8],
		MaxDebtLimit: decimal.RequireFromString("-500.00"),
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return &user
}

func reloadSale(t *testing.T, db *gorm.DB, id uuid.UUID) *models.Sale {
	t.Helper()
	var sale models.Sale
	if err := db.First(&sale, "id = ?", id).Error; err != nil {
		t.Fatalf("reload sale: %v", err)
	}
	return &sale
}

func TestRecordCashCompletesAndSyncsSale(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	sale := seedSale(t, env, nil)

	payment, err := env.svc.RecordCash(context.Background(), ManualPaymentInput{
		SaleID: sale.ID,
		Amount: decimal.RequireFromString("500.00"),
	})
	if err != nil {
		t.Fatalf("record cash: %v", err)
	}
	if payment.Status != enums.PaymentStatusCompleted {
		t.Fatalf("expected completed, got %s", payment.Status)
	}

	reloaded := reloadSale(t, env.db, sale.ID)
	if !reloaded.TotalPaid.Equal(decimal.RequireFromString("500.00")) {
		t.Fatalf("expected total paid 500.00, got %s", reloaded.TotalPaid)
	}
	if reloaded.PaymentStatus != enums.SalePaymentStatusPartialPayment {
		t.Fatalf("expected partial payment, got %s", reloaded.PaymentStatus)
	}
	if env.publisher.count(enums.EventPaymentCompleted) != 1 {
		t.Fatalf("expected 1 payment completed event")
	}
}

func TestRecordCashRejectsOverpayment(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	sale := seedSale(t, env, nil)

	_, err := env.svc.RecordCash(context.Background(), ManualPaymentInput{
		SaleID: sale.ID,
		Amount: decimal.RequireFromString("1140.01"),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	var count int64
	if err := env.db.Model(&models.Payment{}).Count(&count).Error; err != nil {
		t.Fatalf("count payments: %v", err)
	}
	if count != 0 {
		t.Fatalf("rejected payment must not be persisted, found %d rows", count)
	}
}

func TestInitiateStkPushCreatesPendingPayment(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	sale := seedSale(t, env, nil)

	payment, mpesaTxn, err := env.svc.InitiateStkPush(context.Background(), StkPushInput{
		SaleID: sale.ID,
		Phone:  "0712345678",
		Amount: decimal.RequireFromString("1140.00"),
	})
	if err != nil {
		t.Fatalf("initiate stk: %v", err)
	}
	if payment.Status != enums.PaymentStatusPending {
		t.Fatalf("expected pending, got %s", payment.Status)
	}
	if mpesaTxn.CheckoutRequestID != env.gateway.resp.CheckoutRequestID {
		t.Fatalf("checkout id mismatch: %s", mpesaTxn.CheckoutRequestID)
	}
	if len(env.gateway.requests) != 1 || env.gateway.requests[0].Phone != "254712345678" {
		t.Fatalf("gateway got %+v", env.gateway.requests)
	}
	if env.publisher.count(enums.EventStkPushInitiated) != 1 {
		t.Fatalf("expected stk push initiated event")
	}

	// No callback yet, the sale is untouched.
	reloaded := reloadSale(t, env.db, sale.ID)
	if !reloaded.TotalPaid.IsZero() {
		t.Fatalf("pending push must not move totals, got %s", reloaded.TotalPaid)
	}
}

func TestInitiateStkPushGatewayFailureMarksPaymentFailed(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	sale := seedSale(t, env, nil)
	env.gateway.err = errors.New("daraja unreachable")

	_, _, err := env.svc.InitiateStkPush(context.Background(), StkPushInput{
		SaleID: sale.ID,
		Phone:  "0712345678",
		Amount: decimal.RequireFromString("1140.00"),
	})
	if err == nil {
		t.Fatal("expected gateway error")
	}

	var payment models.Payment
	if err := env.db.First(&payment).Error; err != nil {
		t.Fatalf("load payment: %v", err)
	}
	if payment.Status != enums.PaymentStatusFailed {
		t.Fatalf("payment must not be left pending, got %s", payment.Status)
	}
	if payment.FailureReason == nil {
		t.Fatal("expected failure reason")
	}
	if env.publisher.count(enums.EventPaymentFailed) != 1 {
		t.Fatalf("expected payment failed event")
	}
}

func TestHandleStkCallbackSuccess(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	sale := seedSale(t, env, nil)

	payment, mpesaTxn, err := env.svc.InitiateStkPush(context.Background(), StkPushInput{
		SaleID: sale.ID,
		Phone:  "0712345678",
		Amount: decimal.RequireFromString("1140.00"),
	})
	if err != nil {
		t.Fatalf("initiate stk: %v", err)
	}

	result := &mpesa.CallbackResult{
		CheckoutRequestID: mpesaTxn.CheckoutRequestID,
		ResultCode:        mpesa.ResultCodeSuccess,
		Amount:            decimal.RequireFromString("1140.00"),
		Receipt:           "SFH12345",
	}
	for i := 0; i < 2; i++ {
		if err := env.svc.HandleStkCallback(context.Background(), result); err != nil {
			t.Fatalf("callback %d: %v", i, err)
		}
	}

	var reloadedPayment models.Payment
	if err := env.db.First(&reloadedPayment, "id = ?", payment.ID).Error; err != nil {
		t.Fatalf("reload payment: %v", err)
	}
	if reloadedPayment.Status != enums.PaymentStatusCompleted {
		t.Fatalf("expected completed, got %s", reloadedPayment.Status)
	}
	if reloadedPayment.MpesaReceipt == nil || *reloadedPayment.MpesaReceipt != "SFH12345" {
		t.Fatalf("expected receipt on payment, got %v", reloadedPayment.MpesaReceipt)
	}

	reloaded := reloadSale(t, env.db, sale.ID)
	if reloaded.PaymentStatus != enums.SalePaymentStatusFullyPaid {
		t.Fatalf("expected fully paid, got %s", reloaded.PaymentStatus)
	}
	if env.publisher.count(enums.EventPaymentCompleted) != 1 {
		t.Fatalf("duplicate callback must not emit twice")
	}
}

func TestHandleStkCallbackFailure(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	sale := seedSale(t, env, nil)

	payment, mpesaTxn, err := env.svc.InitiateStkPush(context.Background(), StkPushInput{
		SaleID: sale.ID,
		Phone:  "0712345678",
		Amount: decimal.RequireFromString("1140.00"),
	})
	if err != nil {
		t.Fatalf("initiate stk: %v", err)
	}

	err = env.svc.HandleStkCallback(context.Background(), &mpesa.CallbackResult{
		CheckoutRequestID: mpesaTxn.CheckoutRequestID,
		ResultCode:        1032,
		ResultDesc:        "Request cancelled by user",
	})
	if err != nil {
		t.Fatalf("callback: %v", err)
	}

	var reloadedPayment models.Payment
	if err := env.db.First(&reloadedPayment, "id = ?", payment.ID).Error; err != nil {
		t.Fatalf("reload payment: %v", err)
	}
	if reloadedPayment.Status != enums.PaymentStatusFailed {
		t.Fatalf("expected failed, got %s", reloadedPayment.Status)
	}
	if reloadedPayment.FailureReason == nil || *reloadedPayment.FailureReason != "Request cancelled by user" {
		t.Fatalf("expected failure reason, got %v", reloadedPayment.FailureReason)
	}
	if env.publisher.count(enums.EventPaymentFailed) != 1 {
		t.Fatalf("expected payment failed event")
	}
}

func TestRefundReversesPaymentAndCreditsWallet(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	user := seedUser(t, env.db)
	sale := seedSale(t, env, &user.ID)

	payment, err := env.svc.RecordCash(context.Background(), ManualPaymentInput{
		SaleID: sale.ID,
		Amount: decimal.RequireFromString("1140.00"),
	})
	if err != nil {
		t.Fatalf("record cash: %v", err)
	}

	refunded, err := env.svc.Refund(context.Background(), RefundInput{
		PaymentID: payment.ID,
		Reason:    "spoiled produce",
	})
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if refunded.Status != enums.PaymentStatusRefunded {
		t.Fatalf("expected refunded, got %s", refunded.Status)
	}

	reloaded := reloadSale(t, env.db, sale.ID)
	if !reloaded.TotalPaid.IsZero() {
		t.Fatalf("refund must drop total paid to zero, got %s", reloaded.TotalPaid)
	}

	var reloadedUser models.User
	if err := env.db.First(&reloadedUser, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if !reloadedUser.WalletBalance.Equal(decimal.RequireFromString("1140.00")) {
		t.Fatalf("expected wallet credit 1140.00, got %s", reloadedUser.WalletBalance)
	}
	if env.publisher.count(enums.EventPaymentRefunded) != 1 {
		t.Fatalf("expected payment refunded event")
	}

	// Refunding again must fail, the payment is no longer completed.
	_, err = env.svc.Refund(context.Background(), RefundInput{PaymentID: payment.ID})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestExpirePendingStkPushes(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	sale := seedSale(t, env, nil)

	payment, mpesaTxn, err := env.svc.InitiateStkPush(context.Background(), StkPushInput{
		SaleID: sale.ID,
		Phone:  "0712345678",
		Amount: decimal.RequireFromString("1140.00"),
	})
	if err != nil {
		t.Fatalf("initiate stk: %v", err)
	}

	stale := time.Now().Add(-time.Hour)
	err = env.db.Model(&models.MpesaTransaction{}).
		Where("id = ?", mpesaTxn.ID).
		Update("created_at", stale).Error
	if err != nil {
		t.Fatalf("backdate mpesa transaction: %v", err)
	}

	now := time.Now()
	expired, err := env.svc.ExpirePendingStkPushes(context.Background(), now)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expected 1 expired, got %d", expired)
	}

	var reloadedPayment models.Payment
	if err := env.db.First(&reloadedPayment, "id = ?", payment.ID).Error; err != nil {
		t.Fatalf("reload payment: %v", err)
	}
	if reloadedPayment.Status != enums.PaymentStatusFailed {
		t.Fatalf("expected failed, got %s", reloadedPayment.Status)
	}
	if env.publisher.count(enums.EventStkPushExpired) != 1 {
		t.Fatalf("expected stk push expired event")
	}

	// Second sweep finds nothing.
	expired, err = env.svc.ExpirePendingStkPushes(context.Background(), now)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if expired != 0 {
		t.Fatalf("expected 0 expired on second sweep, got %d", expired)
	}
}
