package enums

import "fmt"

// NotificationType names the customer-facing notification templates.
type NotificationType string

const (
	NotificationTypeOrderConfirmed NotificationType = "order_confirmed"
	NotificationTypeOrderReady     NotificationType = "order_ready"
	NotificationTypeOrderPickedUp  NotificationType = "order_picked_up"
	NotificationTypeOrderCancelled NotificationType = "order_cancelled"
	NotificationTypePaymentReceipt NotificationType = "payment_receipt"
	NotificationTypeDebtDueSoon    NotificationType = "debt_due_soon"
	NotificationTypeDebtOverdue    NotificationType = "debt_overdue"
	NotificationTypeLowStock       NotificationType = "low_stock"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderConfirmed,
	NotificationTypeOrderReady,
	NotificationTypeOrderPickedUp,
	NotificationTypeOrderCancelled,
	NotificationTypePaymentReceipt,
	NotificationTypeDebtDueSoon,
	NotificationTypeDebtOverdue,
	NotificationTypeLowStock,
}

// String implements fmt.Stringer.
func (n NotificationType) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NotificationType.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw input into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
