package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/brianmwirigi/sokofresh-backend/pkg/db/models"
	"github.com/brianmwirigi/sokofresh-backend/pkg/enums"
	"github.com/brianmwirigi/sokofresh-backend/pkg/logger"
	"github.com/brianmwirigi/sokofresh-backend/pkg/outbox"
	"github.com/brianmwirigi/sokofresh-backend/pkg/outbox/payloads"
)

const consumerScope = "notification_consumer"

type consumerRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	FindSaleUser(ctx context.Context, saleID uuid.UUID) (*uuid.UUID, error)
}

type idempotencyStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Consumer watches domain events and materializes customer notifications and
// staff alerts from them.
type Consumer struct {
	repo         consumerRepository
	subscription *pubsub.Subscriber
	idem         idempotencyStore
	ttl          time.Duration
	logg         *logger.Logger
}

// NewConsumer builds a notification consumer over the domain event stream.
func NewConsumer(repo consumerRepository, subscription *pubsub.Subscriber, idem idempotencyStore, ttl time.Duration, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if idem == nil {
		return nil, fmt.Errorf("idempotency store required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("idempotency ttl required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idem:         idem,
		ttl:          ttl,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}
	if _, err := uuid.Parse(envelope.EventID); err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	key := c.idem.IdempotencyKey(consumerScope, envelope.EventID)
	fresh, err := c.idem.SetNX(ctx, key, "1", c.ttl)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if !fresh {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handle(ctx, eventType, envelope.Data); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idem.Del(ctx, key)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func (c *Consumer) handle(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage) error {
	switch eventType {
	case enums.EventOrderConfirmed:
		return c.orderConfirmed(ctx, data)
	case enums.EventOrderReady:
		return c.orderReady(ctx, data)
	case enums.EventOrderPickedUp:
		return c.orderPickedUp(ctx, data)
	case enums.EventOrderCancelled:
		return c.orderCancelled(ctx, data)
	case enums.EventPaymentCompleted:
		return c.paymentCompleted(ctx, data)
	case enums.EventDebtDueSoon:
		return c.debtDueSoon(ctx, data)
	case enums.EventDebtOverdue:
		return c.debtOverdue(ctx, data)
	case enums.EventLowStock:
		return c.lowStock(ctx, data)
	default:
		return nil
	}
}

func (c *Consumer) orderConfirmed(ctx context.Context, data json.RawMessage) error {
	var payload payloads.OrderConfirmedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	if payload.UserID == nil {
		return nil
	}
	return c.repo.Create(ctx, &models.Notification{
		ID:      uuid.New(),
		UserID:  payload.UserID,
		Type:    enums.NotificationTypeOrderConfirmed,
		Title:   "Order confirmed",
		Message: fmt.Sprintf("Your order for KES %s is confirmed and being prepared.", payload.TotalAmount.StringFixed(2)),
		Link:    stringPtr(fmt.Sprintf("/orders/%s", payload.OrderID)),
	})
}

func (c *Consumer) orderReady(ctx context.Context, data json.RawMessage) error {
	var payload payloads.OrderReadyEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	if payload.UserID == nil {
		return nil
	}
	message := "Your order is packed and ready for collection."
	if payload.PickupTime != nil {
		message = fmt.Sprintf("Your order is ready. Pickup window starts at %s.", payload.PickupTime.Format("15:04"))
	}
	return c.repo.Create(ctx, &models.Notification{
		ID:      uuid.New(),
		UserID:  payload.UserID,
		Type:    enums.NotificationTypeOrderReady,
		Title:   "Order ready for pickup",
		Message: message,
		Link:    stringPtr(fmt.Sprintf("/orders/%s", payload.OrderID)),
	})
}

func (c *Consumer) orderPickedUp(ctx context.Context, data json.RawMessage) error {
	var payload payloads.OrderPickedUpEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	if payload.UserID == nil {
		return nil
	}
	return c.repo.Create(ctx, &models.Notification{
		ID:      uuid.New(),
		UserID:  payload.UserID,
		Type:    enums.NotificationTypeOrderPickedUp,
		Title:   "Order collected",
		Message: "Thanks for shopping with SokoFresh. Your order has been handed over.",
		Link:    stringPtr(fmt.Sprintf("/orders/%s", payload.OrderID)),
	})
}

func (c *Consumer) orderCancelled(ctx context.Context, data json.RawMessage) error {
	var payload payloads.OrderCancelledEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	if payload.UserID == nil {
		return nil
	}
	message := "Your order has been cancelled."
	if payload.Reason != "" {
		message = fmt.Sprintf("Your order has been cancelled. Reason: %s", payload.Reason)
	}
	return c.repo.Create(ctx, &models.Notification{
		ID:      uuid.New(),
		UserID:  payload.UserID,
		Type:    enums.NotificationTypeOrderCancelled,
		Title:   "Order cancelled",
		Message: message,
		Link:    stringPtr(fmt.Sprintf("/orders/%s", payload.OrderID)),
	})
}

func (c *Consumer) paymentCompleted(ctx context.Context, data json.RawMessage) error {
	var payload payloads.PaymentCompletedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	userID, err := c.repo.FindSaleUser(ctx, payload.SaleID)
	if err != nil {
		return err
	}
	if userID == nil {
		return nil
	}
	message := fmt.Sprintf("We received your payment of KES %s.", payload.Amount.StringFixed(2))
	if payload.Receipt != "" {
		message = fmt.Sprintf("We received your payment of KES %s. Receipt %s.", payload.Amount.StringFixed(2), payload.Receipt)
	}
	return c.repo.Create(ctx, &models.Notification{
		ID:      uuid.New(),
		UserID:  userID,
		Type:    enums.NotificationTypePaymentReceipt,
		Title:   "Payment received",
		Message: message,
	})
}

func (c *Consumer) debtDueSoon(ctx context.Context, data json.RawMessage) error {
	var payload payloads.DebtDueSoonEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	if payload.UserID == nil {
		return nil
	}
	message := fmt.Sprintf("KES %s is due by %s. Settle early to keep your pay-later limit.",
		payload.Balance.StringFixed(2), payload.DueDate.Format("2 Jan"))
	return c.repo.Create(ctx, &models.Notification{
		ID:      uuid.New(),
		UserID:  payload.UserID,
		Type:    enums.NotificationTypeDebtDueSoon,
		Title:   "Payment due soon",
		Message: message,
		Link:    stringPtr(fmt.Sprintf("/orders/%s", payload.OrderID)),
	})
}

func (c *Consumer) debtOverdue(ctx context.Context, data json.RawMessage) error {
	var payload payloads.DebtOverdueEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	if payload.UserID == nil {
		return nil
	}
	message := fmt.Sprintf("KES %s was due on %s. Please settle your balance.",
		payload.Balance.StringFixed(2), payload.DueDate.Format("2 Jan"))
	return c.repo.Create(ctx, &models.Notification{
		ID:      uuid.New(),
		UserID:  payload.UserID,
		Type:    enums.NotificationTypeDebtOverdue,
		Title:   "Payment overdue",
		Message: message,
		Link:    stringPtr(fmt.Sprintf("/orders/%s", payload.OrderID)),
	})
}

func (c *Consumer) lowStock(ctx context.Context, data json.RawMessage) error {
	var payload payloads.LowStockEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	message := fmt.Sprintf("%s is down to %s against a reorder level of %s.",
		payload.ProductName, payload.StockLevel.String(), payload.MinimumStock.String())
	// No recipient, this lands on the staff dashboard.
	return c.repo.Create(ctx, &models.Notification{
		ID:      uuid.New(),
		Type:    enums.NotificationTypeLowStock,
		Title:   fmt.Sprintf("Low stock: %s", payload.ProductName),
		Message: message,
		Link:    stringPtr(fmt.Sprintf("/admin/products/%s", payload.ProductID)),
	})
}

func stringPtr(value string) *string {
	return &value
}
