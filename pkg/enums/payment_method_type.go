package enums

import "fmt"

// PaymentMethodType identifies the payment rail an order settles over.
type PaymentMethodType string

const (
	PaymentMethodPayPal  PaymentMethodType = "paypal"
	PaymentMethodBitcoin PaymentMethodType = "bitcoin"
	PaymentMethodMonero  PaymentMethodType = "monero"
)

var validPaymentMethodTypes = []PaymentMethodType{
	PaymentMethodPayPal,
	PaymentMethodBitcoin,
	PaymentMethodMonero,
}

// String implements fmt.Stringer.
func (p PaymentMethodType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethodType.
func (p PaymentMethodType) IsValid() bool {
	for _, candidate := range validPaymentMethodTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentMethodType converts raw input into a PaymentMethodType.
func ParsePaymentMethodType(value string) (PaymentMethodType, error) {
	for _, candidate := range validPaymentMethodTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
