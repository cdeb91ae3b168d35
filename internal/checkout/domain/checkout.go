package domain

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	OrderSuccessPath = "/b/order-success/"
	OrderFailedPath  = "/b/order-failed"
)

// Navigation is where the shopper goes next. External targets need a full redirect.
type Navigation struct {
	Location string `json:"location"`
	External bool   `json:"external"`
}

// Checkout is one attempt at turning a draft into an order. Transitions are pure: each returns the
// next value and leaves the receiver untouched.
type Checkout struct {
	Status     CheckoutStatus
	Draft      Draft
	OrderID    int64
	OrderTotal decimal.Decimal
	PaymentURL string
	Failure    error
}

func NewCheckout(draft Draft) Checkout {
	return Checkout{Status: CheckoutStatusIdle, Draft: draft}
}

// AwaitingPayment rebuilds an attempt that was handed off to the payment provider.
func AwaitingPayment(orderID int64, total decimal.Decimal, paymentURL string) Checkout {
	return Checkout{
		Status:     CheckoutStatusAwaitingExternalPayment,
		Draft:      Draft{PaymentMethod: PaymentMethodElectronic},
		OrderID:    orderID,
		OrderTotal: total,
		PaymentURL: paymentURL,
	}
}

func (c Checkout) to(next CheckoutStatus) (Checkout, error) {
	if !CanTransitionTo(c.Status, next) {
		return c, &ErrInvalidStateTransition{From: c.Status, To: next}
	}
	c.Status = next
	return c, nil
}

// Submit starts validation. From Failed it is the retry path and forgets the previous outcome.
func (c Checkout) Submit() (Checkout, error) {
	next, err := c.to(CheckoutStatusValidating)
	if err != nil {
		return c, err
	}
	next.OrderID = 0
	next.OrderTotal = decimal.Zero
	next.PaymentURL = ""
	next.Failure = nil
	return next, nil
}

// Validate moves to Submitting, or back to Idle with the validation error.
func (c Checkout) Validate(authenticated bool) (Checkout, error) {
	if c.Status != CheckoutStatusValidating {
		return c, &ErrInvalidStateTransition{From: c.Status, To: CheckoutStatusSubmitting}
	}

	var err error
	if !authenticated {
		err = ErrAuthenticationRequired
	} else {
		err = c.Draft.validate()
	}
	if err != nil {
		next, _ := c.to(CheckoutStatusIdle)
		next.Failure = err
		return next, err
	}
	return c.to(CheckoutStatusSubmitting)
}

// OrderCreated records the backend order. COD completes here; electronic payment stays in Submitting
// until the payment session is opened.
func (c Checkout) OrderCreated(orderID int64, total decimal.Decimal) (Checkout, error) {
	if c.Status != CheckoutStatusSubmitting || c.OrderID != 0 {
		return c, &ErrInvalidStateTransition{From: c.Status, To: c.completionStatus()}
	}
	c.OrderID = orderID
	c.OrderTotal = total
	if c.Draft.PaymentMethod == PaymentMethodCOD {
		return c.to(CheckoutStatusCompletedCOD)
	}
	return c, nil
}

// PaymentSessionOpened hands off to the provider. A blank URL fails the attempt.
func (c Checkout) PaymentSessionOpened(paymentURL string) (Checkout, error) {
	if c.Status != CheckoutStatusSubmitting || c.OrderID == 0 || c.Draft.PaymentMethod != PaymentMethodElectronic {
		return c, &ErrInvalidStateTransition{From: c.Status, To: CheckoutStatusAwaitingExternalPayment}
	}
	paymentURL = strings.TrimSpace(paymentURL)
	if paymentURL == "" {
		return c.Fail(ErrMissingPaymentURL)
	}
	next, err := c.to(CheckoutStatusAwaitingExternalPayment)
	if err != nil {
		return c, err
	}
	next.PaymentURL = paymentURL
	return next, nil
}

func (c Checkout) Fail(reason error) (Checkout, error) {
	next, err := c.to(CheckoutStatusFailed)
	if err != nil {
		return c, err
	}
	next.Failure = reason
	return next, nil
}

// Confirm is the successful return trip from the payment provider.
func (c Checkout) Confirm() (Checkout, error) {
	return c.to(CheckoutStatusPaymentConfirmed)
}

// ClearsCart reports whether reaching this state empties the shopper's cart.
func (c Checkout) ClearsCart() bool {
	return c.Status == CheckoutStatusCompletedCOD || c.Status == CheckoutStatusPaymentConfirmed
}

func (c Checkout) Target() Navigation {
	switch c.Status {
	case CheckoutStatusCompletedCOD, CheckoutStatusPaymentConfirmed:
		return Navigation{Location: OrderSuccessPath + strconv.FormatInt(c.OrderID, 10)}
	case CheckoutStatusAwaitingExternalPayment:
		return Navigation{Location: c.PaymentURL, External: true}
	case CheckoutStatusFailed:
		return Navigation{Location: OrderFailedPath}
	default:
		return Navigation{}
	}
}

func (c Checkout) completionStatus() CheckoutStatus {
	if c.Draft.PaymentMethod == PaymentMethodCOD {
		return CheckoutStatusCompletedCOD
	}
	return CheckoutStatusAwaitingExternalPayment
}

// PaymentSucceeded interprets a provider result: "success", "paid" or the VNPay response code "00".
func PaymentSucceeded(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "success", "succeeded", "paid", "00":
		return true
	default:
		return false
	}
}

// OrderPaymentOutcome reads the payment outcome the backend recorded on an order. settled is false
// while the order still waits for the provider.
func OrderPaymentOutcome(orderStatus string) (success, settled bool) {
	switch strings.ToUpper(strings.TrimSpace(orderStatus)) {
	case "PROCESSING", "SHIPPED", "DELIVERED":
		return true, true
	case "CANCELLED":
		return false, true
	default:
		return false, false
	}
}
