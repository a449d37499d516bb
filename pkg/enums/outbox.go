package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder        OutboxAggregateType = "order"
	AggregateSale         OutboxAggregateType = "sale"
	AggregatePayment      OutboxAggregateType = "payment"
	AggregateProduct      OutboxAggregateType = "product"
	AggregateWallet       OutboxAggregateType = "wallet"
	AggregateNotification OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateSale,
	AggregatePayment,
	AggregateProduct,
	AggregateWallet,
	AggregateNotification,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated          OutboxEventType = "order_created"
	EventOrderConfirmed        OutboxEventType = "order_confirmed"
	EventOrderCancelled        OutboxEventType = "order_cancelled"
	EventOrderReady            OutboxEventType = "order_ready"
	EventOrderPickedUp         OutboxEventType = "order_picked_up"
	EventPaymentCompleted      OutboxEventType = "payment_completed"
	EventPaymentFailed         OutboxEventType = "payment_failed"
	EventPaymentRefunded       OutboxEventType = "payment_refunded"
	EventStkPushInitiated      OutboxEventType = "stk_push_initiated"
	EventStkPushExpired        OutboxEventType = "stk_push_expired"
	EventDebtDueSoon           OutboxEventType = "debt_due_soon"
	EventDebtOverdue           OutboxEventType = "debt_overdue"
	EventWalletAdjusted        OutboxEventType = "wallet_adjusted"
	EventLowStock              OutboxEventType = "low_stock"
	EventNotificationRequested OutboxEventType = "notification_requested"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderConfirmed,
	EventOrderCancelled,
	EventOrderReady,
	EventOrderPickedUp,
	EventPaymentCompleted,
	EventPaymentFailed,
	EventPaymentRefunded,
	EventStkPushInitiated,
	EventStkPushExpired,
	EventDebtDueSoon,
	EventDebtOverdue,
	EventWalletAdjusted,
	EventLowStock,
	EventNotificationRequested,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
