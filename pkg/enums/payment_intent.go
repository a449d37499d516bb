package enums

import "fmt"

// PaymentIntent is what the buyer declared at checkout. pay_later produces an
// order with no upfront payment; the rest name the instrument the buyer
// expects to use.
type PaymentIntent string

const (
	PaymentIntentMpesa    PaymentIntent = "mpesa"
	PaymentIntentCash     PaymentIntent = "cash"
	PaymentIntentCard     PaymentIntent = "card"
	PaymentIntentPayLater PaymentIntent = "pay_later"
)

var validPaymentIntents = []PaymentIntent{
	PaymentIntentMpesa,
	PaymentIntentCash,
	PaymentIntentCard,
	PaymentIntentPayLater,
}

// String implements fmt.Stringer.
func (p PaymentIntent) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentIntent.
func (p PaymentIntent) IsValid() bool {
	for _, candidate := range validPaymentIntents {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentIntent converts raw input into a PaymentIntent.
func ParsePaymentIntent(value string) (PaymentIntent, error) {
	for _, candidate := range validPaymentIntents {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment intent %q", value)
}
