package enums

import "fmt"

// OrderPaymentStatus is the payment vocabulary surfaced on orders. It is
// deliberately distinct from SalePaymentStatus; the two are translated via a
// fixed mapping, never reused directly.
type OrderPaymentStatus string

const (
	OrderPaymentStatusPending       OrderPaymentStatus = "pending"
	OrderPaymentStatusFullyPaid     OrderPaymentStatus = "fully_paid"
	OrderPaymentStatusPartiallyPaid OrderPaymentStatus = "partially_paid"
	OrderPaymentStatusDebt          OrderPaymentStatus = "debt"
	OrderPaymentStatusFailed        OrderPaymentStatus = "failed"
)

var validOrderPaymentStatuses = []OrderPaymentStatus{
	OrderPaymentStatusPending,
	OrderPaymentStatusFullyPaid,
	OrderPaymentStatusPartiallyPaid,
	OrderPaymentStatusDebt,
	OrderPaymentStatusFailed,
}

// String implements fmt.Stringer.
func (o OrderPaymentStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderPaymentStatus.
func (o OrderPaymentStatus) IsValid() bool {
	for _, candidate := range validOrderPaymentStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderPaymentStatus converts raw input into an OrderPaymentStatus.
func ParseOrderPaymentStatus(value string) (OrderPaymentStatus, error) {
	for _, candidate := range validOrderPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order payment status %q", value)
}
