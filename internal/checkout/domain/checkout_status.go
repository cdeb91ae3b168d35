package domain

type CheckoutStatus string

const (
	CheckoutStatusIdle                    CheckoutStatus = "IDLE"
	CheckoutStatusValidating              CheckoutStatus = "VALIDATING"
	CheckoutStatusSubmitting              CheckoutStatus = "SUBMITTING"
	CheckoutStatusCompletedCOD            CheckoutStatus = "COMPLETED_COD"
	CheckoutStatusAwaitingExternalPayment CheckoutStatus = "AWAITING_EXTERNAL_PAYMENT"
	CheckoutStatusPaymentConfirmed        CheckoutStatus = "PAYMENT_CONFIRMED"
	CheckoutStatusFailed                  CheckoutStatus = "FAILED"
)

// IsTerminal reports whether the attempt is over. A failed attempt may still be retried from the start.
func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusCompletedCOD || s == CheckoutStatusPaymentConfirmed || s == CheckoutStatusFailed
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}

func CanTransitionTo(from, to CheckoutStatus) bool {
	switch from {
	case CheckoutStatusIdle:
		return to == CheckoutStatusValidating
	case CheckoutStatusValidating:
		// a validation error goes back to Idle
		return to == CheckoutStatusIdle ||
			to == CheckoutStatusSubmitting
	case CheckoutStatusSubmitting:
		return to == CheckoutStatusCompletedCOD ||
			to == CheckoutStatusAwaitingExternalPayment ||
			to == CheckoutStatusFailed
	case CheckoutStatusAwaitingExternalPayment:
		return to == CheckoutStatusPaymentConfirmed ||
			to == CheckoutStatusFailed
	case CheckoutStatusFailed:
		return to == CheckoutStatusValidating
	case CheckoutStatusCompletedCOD, CheckoutStatusPaymentConfirmed:
		return false
	default:
		return false
	}
}
