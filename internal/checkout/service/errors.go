package service

import "errors"

var (
	ErrSubmissionInProgress = errors.New("checkout already in progress for this session")
	ErrUnknownOrder         = errors.New("no checkout attempt for this order")
	ErrAttemptClosed        = errors.New("checkout attempt is already closed")
	ErrPaymentPending       = errors.New("payment for this order has not been settled yet")
)
