package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrAttemptNotFound  = errors.New("checkout attempt not found")
	ErrDuplicateAttempt = errors.New("checkout attempt for this order already exists")
)

type AttemptStatus string

const (
	AttemptStatusPending   AttemptStatus = "PENDING"
	AttemptStatusResolved  AttemptStatus = "RESOLVED"
	AttemptStatusCancelled AttemptStatus = "CANCELLED"
	AttemptStatusFailed    AttemptStatus = "FAILED"
)

// Attempt is a journaled electronic-payment order whose payment has not been confirmed yet.
type Attempt struct {
	OrderID        int64
	SessionID      string
	IdempotencyKey string
	Fingerprint    string
	Total          decimal.Decimal
	PaymentURL     string
	Status         AttemptStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type RepoInterface interface {
	CreateAttempt(ctx context.Context, attempt *Attempt) error
	// PendingAttempt returns the newest pending attempt of the session.
	PendingAttempt(ctx context.Context, sessionID string) (*Attempt, error)
	AttemptByOrder(ctx context.Context, orderID int64) (*Attempt, error)
	SetPaymentURL(ctx context.Context, orderID int64, paymentURL string) error
	UpdateStatus(ctx context.Context, orderID int64, status AttemptStatus) error
	Close() error
}
