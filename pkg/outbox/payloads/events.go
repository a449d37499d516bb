package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brianmwirigi/sokofresh-backend/pkg/enums"
)

// OrderCreatedEvent signals a new order was placed.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	UserID        *uuid.UUID          `json:"user_id,omitempty"`
	CustomerPhone string              `json:"customer_phone"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	PaymentMethod enums.PaymentIntent `json:"payment_method"`
	ItemCount     int                 `json:"item_count"`
}

// OrderConfirmedEvent is emitted once stock is committed and the sale exists.
type OrderConfirmedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	SaleID      uuid.UUID       `json:"sale_id"`
	UserID      *uuid.UUID      `json:"user_id,omitempty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
}

// OrderCancelledEvent is emitted when an order reaches the terminal state.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID  `json:"order_id"`
	UserID      *uuid.UUID `json:"user_id,omitempty"`
	Reason      string     `json:"reason,omitempty"`
	CancelledAt time.Time  `json:"cancelled_at"`
	Restocked   bool       `json:"restocked"`
}

// OrderReadyEvent tells the customer their order can be collected.
type OrderReadyEvent struct {
	OrderID       uuid.UUID  `json:"order_id"`
	UserID        *uuid.UUID `json:"user_id,omitempty"`
	CustomerPhone string     `json:"customer_phone"`
	PickupToken   string     `json:"pickup_token"`
	PickupTime    *time.Time `json:"pickup_time,omitempty"`
}

// OrderPickedUpEvent closes the fulfillment loop.
type OrderPickedUpEvent struct {
	OrderID    uuid.UUID  `json:"order_id"`
	SaleID     uuid.UUID  `json:"sale_id"`
	UserID     *uuid.UUID `json:"user_id,omitempty"`
	PickedUpAt time.Time  `json:"picked_up_at"`
}

// PaymentCompletedEvent carries a settled payment.
type PaymentCompletedEvent struct {
	PaymentID uuid.UUID           `json:"payment_id"`
	SaleID    uuid.UUID           `json:"sale_id"`
	OrderID   *uuid.UUID          `json:"order_id,omitempty"`
	Method    enums.PaymentMethod `json:"method"`
	Amount    decimal.Decimal     `json:"amount"`
	Receipt   string              `json:"receipt,omitempty"`
	FullyPaid bool                `json:"fully_paid"`
}

// PaymentFailedEvent reports a failed settlement attempt.
type PaymentFailedEvent struct {
	PaymentID uuid.UUID           `json:"payment_id"`
	SaleID    *uuid.UUID          `json:"sale_id,omitempty"`
	Method    enums.PaymentMethod `json:"method"`
	Amount    decimal.Decimal     `json:"amount"`
	Reason    string              `json:"reason,omitempty"`
}

// PaymentRefundedEvent reports a reversal of a completed payment.
type PaymentRefundedEvent struct {
	PaymentID  uuid.UUID       `json:"payment_id"`
	SaleID     uuid.UUID       `json:"sale_id"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason,omitempty"`
	RefundedAt time.Time       `json:"refunded_at"`
}

// StkPushInitiatedEvent records that a payment prompt was sent to the phone.
type StkPushInitiatedEvent struct {
	PaymentID         uuid.UUID       `json:"payment_id"`
	SaleID            *uuid.UUID      `json:"sale_id,omitempty"`
	CheckoutRequestID string          `json:"checkout_request_id"`
	Phone             string          `json:"phone"`
	Amount            decimal.Decimal `json:"amount"`
}

// StkPushExpiredEvent reports a pending push aged out by the sweeper.
type StkPushExpiredEvent struct {
	PaymentID         uuid.UUID `json:"payment_id"`
	CheckoutRequestID string    `json:"checkout_request_id"`
	InitiatedAt       time.Time `json:"initiated_at"`
}

// DebtDueSoonEvent warns that a sale is approaching its due date.
type DebtDueSoonEvent struct {
	SaleID       uuid.UUID       `json:"sale_id"`
	OrderID      uuid.UUID       `json:"order_id"`
	UserID       *uuid.UUID      `json:"user_id,omitempty"`
	Balance      decimal.Decimal `json:"balance"`
	DueDate      time.Time       `json:"due_date"`
	DaysUntilDue int             `json:"days_until_due"`
}

// DebtOverdueEvent marks a sale that crossed its due date unpaid.
type DebtOverdueEvent struct {
	SaleID  uuid.UUID       `json:"sale_id"`
	OrderID uuid.UUID       `json:"order_id"`
	UserID  *uuid.UUID      `json:"user_id,omitempty"`
	Balance decimal.Decimal `json:"balance"`
	DueDate time.Time       `json:"due_date"`
}

// WalletAdjustedEvent records a reconciliation credit or debit at pickup.
type WalletAdjustedEvent struct {
	UserID        uuid.UUID                   `json:"user_id"`
	SaleID        uuid.UUID                   `json:"sale_id"`
	TransactionID uuid.UUID                   `json:"transaction_id"`
	Type          enums.WalletTransactionType `json:"type"`
	Amount        decimal.Decimal             `json:"amount"`
	NewBalance    decimal.Decimal             `json:"new_balance"`
}

// LowStockEvent alerts admins that a product fell to its reorder level.
type LowStockEvent struct {
	ProductID    uuid.UUID       `json:"product_id"`
	ProductName  string          `json:"product_name"`
	StockLevel   decimal.Decimal `json:"stock_level"`
	MinimumStock decimal.Decimal `json:"minimum_stock"`
}
