package enums

import "fmt"

// WalletTransactionType classifies wallet ledger entries. Credits carry
// positive amounts, debits negative; the type records why the balance moved.
type WalletTransactionType string

const (
	WalletTransactionTypeOverpayment  WalletTransactionType = "overpayment"
	WalletTransactionTypeUnderpayment WalletTransactionType = "underpayment"
	WalletTransactionTypeOrderPayment WalletTransactionType = "order_payment"
	WalletTransactionTypeRefund       WalletTransactionType = "refund"
	WalletTransactionTypeAdjustment   WalletTransactionType = "adjustment"
)

var validWalletTransactionTypes = []WalletTransactionType{
	WalletTransactionTypeOverpayment,
	WalletTransactionTypeUnderpayment,
	WalletTransactionTypeOrderPayment,
	WalletTransactionTypeRefund,
	WalletTransactionTypeAdjustment,
}

// String implements fmt.Stringer.
func (w WalletTransactionType) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WalletTransactionType.
func (w WalletTransactionType) IsValid() bool {
	for _, candidate := range validWalletTransactionTypes {
		if candidate == w {
			return true
		}
	}
	return false
}

// ParseWalletTransactionType converts raw input into a WalletTransactionType.
func ParseWalletTransactionType(value string) (WalletTransactionType, error) {
	for _, candidate := range validWalletTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet transaction type %q", value)
}
