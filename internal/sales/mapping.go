package sales

import "github.com/brianmwirigi/sokofresh-backend/pkg/enums"

// OrderPaymentStatusFor translates a sale's payment status into the order
// vocabulary. The two enums are deliberately separate; this mapping is the
// only bridge between them.
//
// An unpaid sale reads as debt when the buyer declared pay_later, pending
// otherwise. An overdue sale always reads as debt.
func OrderPaymentStatusFor(status enums.SalePaymentStatus, intent enums.PaymentIntent) enums.OrderPaymentStatus {
	switch status {
	case enums.SalePaymentStatusFullyPaid:
		return enums.OrderPaymentStatusFullyPaid
	case enums.SalePaymentStatusPartialPayment:
		return enums.OrderPaymentStatusPartiallyPaid
	case enums.SalePaymentStatusOverdue:
		return enums.OrderPaymentStatusDebt
	case enums.SalePaymentStatusNoPayment:
		if intent == enums.PaymentIntentPayLater {
			return enums.OrderPaymentStatusDebt
		}
		return enums.OrderPaymentStatusPending
	default:
		return enums.OrderPaymentStatusPending
	}
}
