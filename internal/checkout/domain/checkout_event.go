package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventCompletedCOD     EventType = "checkout.completed_cod"
	EventAwaitingPayment  EventType = "checkout.awaiting_payment"
	EventFailed           EventType = "checkout.failed"
	EventPaymentConfirmed EventType = "checkout.payment_confirmed"
)

type Event struct {
	ID            string          `json:"event_id"`
	Type          EventType       `json:"event_type"`
	SessionID     string          `json:"session_id"`
	OrderID       int64           `json:"order_id,omitempty"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Total         decimal.Decimal `json:"total"`
	Reason        string          `json:"reason,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// EventFor describes the state the attempt just reached. ok is false for states that publish nothing.
func EventFor(sessionID string, c Checkout, at time.Time) (Event, bool) {
	var t EventType
	switch c.Status {
	case CheckoutStatusCompletedCOD:
		t = EventCompletedCOD
	case CheckoutStatusAwaitingExternalPayment:
		t = EventAwaitingPayment
	case CheckoutStatusFailed:
		t = EventFailed
	case CheckoutStatusPaymentConfirmed:
		t = EventPaymentConfirmed
	default:
		return Event{}, false
	}

	e := Event{
		ID:            uuid.NewString(),
		Type:          t,
		SessionID:     sessionID,
		OrderID:       c.OrderID,
		PaymentMethod: c.Draft.PaymentMethod.WireValue(),
		Total:         c.OrderTotal,
		OccurredAt:    at.UTC(),
	}
	if c.Failure != nil {
		e.Reason = c.Failure.Error()
	}
	return e, true
}
