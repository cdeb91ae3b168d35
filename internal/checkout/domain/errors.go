package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrCartEmpty              = errors.New("cart empty")
	ErrMissingShippingDetails = errors.New("phone and shipping address are required")
	ErrInvalidPaymentMethod   = errors.New("unsupported payment method")

	ErrOrderCreationFailed  = errors.New("order creation failed")
	ErrPaymentSessionFailed = errors.New("payment session failed")
	ErrMissingPaymentURL    = errors.New("payment response has no redirect url")
	ErrPaymentDeclined      = errors.New("payment was not completed")

	ErrIllegalTransition = errors.New("illegal transition of checkout status")
)

// ErrInvalidStateTransition is returned when a transition is attempted from the wrong state
type ErrInvalidStateTransition struct {
	From CheckoutStatus
	To   CheckoutStatus
}

func (e *ErrInvalidStateTransition) Error() string {
	return fmt.Sprintf("invalid checkout transition from %s to %s", e.From, e.To)
}

func (e *ErrInvalidStateTransition) Unwrap() error {
	return ErrIllegalTransition
}

// IsValidationError reports whether err blocks submission before any order is created.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrAuthenticationRequired) ||
		errors.Is(err, ErrCartEmpty) ||
		errors.Is(err, ErrMissingShippingDetails) ||
		errors.Is(err, ErrInvalidPaymentMethod)
}
