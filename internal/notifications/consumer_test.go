package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brianmwirigi/sokofresh-backend/pkg/db/models"
	"github.com/brianmwirigi/sokofresh-backend/pkg/enums"
	"github.com/brianmwirigi/sokofresh-backend/pkg/outbox/payloads"
)

func mustJSON(t *testing.T, payload any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return raw
}

func newTestConsumer(t *testing.T) (*Consumer, Repository) {
	t.Helper()
	db := newTestDB(t)
	repo := NewRepository(db)
	// The subscription and idempotency store only matter for the receive
	// loop, handle() is exercised directly.
	return &Consumer{repo: repo}, repo
}

func listAll(t *testing.T, repo Repository, userID *uuid.UUID) []models.Notification {
	t.Helper()
	rows, _, err := repo.List(context.Background(), listNotificationsParams{UserID: userID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	return rows
}

func TestHandleOrderReadyCreatesCustomerNotification(t *testing.T) {
	t.Parallel()

	consumer, repo := newTestConsumer(t)
	userID := uuid.New()
	pickupTime := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

	err := consumer.handle(context.Background(), enums.EventOrderReady, mustJSON(t, payloads.OrderReadyEvent{
		OrderID:    uuid.New(),
		UserID:     &userID,
		PickupTime: &pickupTime,
	}))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	rows := listAll(t, repo, &userID)
	if len(rows) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(rows))
	}
	if rows[0].Type != enums.NotificationTypeOrderReady {
		t.Fatalf("unexpected type %s", rows[0].Type)
	}
	if rows[0].Message != "Your order is ready. Pickup window starts at 10:30." {
		t.Fatalf("unexpected message %q", rows[0].Message)
	}
}

func TestHandleGuestOrderSkipsNotification(t *testing.T) {
	t.Parallel()

	consumer, repo := newTestConsumer(t)

	err := consumer.handle(context.Background(), enums.EventOrderConfirmed, mustJSON(t, payloads.OrderConfirmedEvent{
		OrderID:     uuid.New(),
		SaleID:      uuid.New(),
		TotalAmount: decimal.RequireFromString("300.00"),
	}))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if rows := listAll(t, repo, nil); len(rows) != 0 {
		t.Fatalf("guest events must not notify, got %d rows", len(rows))
	}
}

func TestHandlePaymentCompletedResolvesSaleUser(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	consumer := &Consumer{repo: repo}
	userID := uuid.New()
	sale := models.Sale{
		ID:          uuid.New(),
		OrderID:     uuid.New(),
		UserID:      &userID,
		TotalAmount: decimal.RequireFromString("850.00"),
		CostAmount:  decimal.RequireFromString("600.00"),
	}
	if err := db.Create(&sale).Error; err != nil {
		t.Fatalf("seed sale: %v", err)
	}

	err := consumer.handle(context.Background(), enums.EventPaymentCompleted, mustJSON(t, payloads.PaymentCompletedEvent{
		PaymentID: uuid.New(),
		SaleID:    sale.ID,
		Method:    enums.PaymentMethodMpesa,
		Amount:    decimal.RequireFromString("850.00"),
		Receipt:   "SFH99001",
	}))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	rows := listAll(t, repo, &userID)
	if len(rows) != 1 {
		t.Fatalf("expected 1 receipt notification, got %d", len(rows))
	}
	if rows[0].Type != enums.NotificationTypePaymentReceipt {
		t.Fatalf("unexpected type %s", rows[0].Type)
	}
	if rows[0].Message != "We received your payment of KES 850.00. Receipt SFH99001." {
		t.Fatalf("unexpected message %q", rows[0].Message)
	}
}

func TestHandleLowStockCreatesStaffAlert(t *testing.T) {
	t.Parallel()

	consumer, repo := newTestConsumer(t)

	err := consumer.handle(context.Background(), enums.EventLowStock, mustJSON(t, payloads.LowStockEvent{
		ProductID:    uuid.New(),
		ProductName:  "Tomatoes",
		StockLevel:   decimal.RequireFromString("2.5"),
		MinimumStock: decimal.RequireFromString("5"),
	}))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	rows := listAll(t, repo, nil)
	if len(rows) != 1 {
		t.Fatalf("expected 1 staff alert, got %d", len(rows))
	}
	if rows[0].UserID != nil {
		t.Fatal("low stock alert must have no recipient")
	}
	if rows[0].Type != enums.NotificationTypeLowStock {
		t.Fatalf("unexpected type %s", rows[0].Type)
	}
}

func TestHandleUnknownEventIsIgnored(t *testing.T) {
	t.Parallel()

	consumer, repo := newTestConsumer(t)

	if err := consumer.handle(context.Background(), enums.EventStkPushExpired, json.RawMessage(`{}`)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if rows := listAll(t, repo, nil); len(rows) != 0 {
		t.Fatalf("unhandled events must not notify, got %d rows", len(rows))
	}
}
