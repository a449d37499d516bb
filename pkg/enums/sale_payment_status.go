package enums

import "fmt"

// SalePaymentStatus tracks money collected against a sale.
type SalePaymentStatus string

const (
	SalePaymentStatusNoPayment      SalePaymentStatus = "no_payment"
	SalePaymentStatusPartialPayment SalePaymentStatus = "partial_payment"
	SalePaymentStatusFullyPaid      SalePaymentStatus = "fully_paid"
	SalePaymentStatusOverdue        SalePaymentStatus = "overdue"
)

var validSalePaymentStatuses = []SalePaymentStatus{
	SalePaymentStatusNoPayment,
	SalePaymentStatusPartialPayment,
	SalePaymentStatusFullyPaid,
	SalePaymentStatusOverdue,
}

// String implements fmt.Stringer.
func (s SalePaymentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SalePaymentStatus.
func (s SalePaymentStatus) IsValid() bool {
	for _, candidate := range validSalePaymentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSalePaymentStatus converts raw input into a SalePaymentStatus.
func ParseSalePaymentStatus(value string) (SalePaymentStatus, error) {
	for _, candidate := range validSalePaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale payment status %q", value)
}
