package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_bookstore/internal/backend"
	d "github.com/fjod/go_bookstore/internal/checkout/domain"
	r "github.com/fjod/go_bookstore/internal/checkout/repository"
	"go.uber.org/zap"
)

// complete applies the side effects of the state the attempt ended in.
func (s *CheckoutServiceImpl) complete(ctx context.Context, sessionID string, c d.Checkout) (d.Checkout, error) {
	if c.ClearsCart() {
		if err := s.cart.ClearCart(ctx, s.opts.CartKey(sessionID)); err != nil {
			s.logger.Error("failed to clear cart after order",
				zap.String("session_id", sessionID), zap.Int64("order_id", c.OrderID), zap.Error(err))
		}
	}
	s.publish(ctx, sessionID, c)
	return c, nil
}

// ConfirmExternalPayment is the return trip from the payment provider. Success clears the cart and
// resolves the journal entry. A declined payment keeps both, so the shopper can retry the same order.
func (s *CheckoutServiceImpl) ConfirmExternalPayment(ctx context.Context, orderID int64, success bool) (d.Checkout, error) {
	attempt, err := s.repo.AttemptByOrder(ctx, orderID)
	if errors.Is(err, r.ErrAttemptNotFound) {
		return d.Checkout{}, ErrUnknownOrder
	}
	if err != nil {
		return d.Checkout{}, err
	}

	c := d.AwaitingPayment(attempt.OrderID, attempt.Total, attempt.PaymentURL)

	if attempt.Status != r.AttemptStatusPending {
		if attempt.Status == r.AttemptStatusResolved && success {
			// redelivered confirmation
			return c.Confirm()
		}
		return c, ErrAttemptClosed
	}

	release, ok := s.acquire(attempt.SessionID)
	if !ok {
		return c, ErrSubmissionInProgress
	}
	defer release()

	if !success {
		failed, err := c.Fail(d.ErrPaymentDeclined)
		if err != nil {
			return c, err
		}
		s.logger.Info("payment declined", zap.Int64("order_id", orderID))
		s.publish(ctx, attempt.SessionID, failed)
		return failed, nil
	}

	confirmed, err := c.Confirm()
	if err != nil {
		return c, err
	}
	if err := s.cart.ClearCart(ctx, s.opts.CartKey(attempt.SessionID)); err != nil {
		return c, err
	}
	if err := s.repo.UpdateStatus(ctx, orderID, r.AttemptStatusResolved); err != nil {
		s.logger.Warn("failed to resolve checkout attempt", zap.Int64("order_id", orderID), zap.Error(err))
	}
	s.logger.Info("payment confirmed", zap.Int64("order_id", orderID), zap.String("session_id", attempt.SessionID))
	s.publish(ctx, attempt.SessionID, confirmed)
	return confirmed, nil
}

// VerifyReturn settles a return from the payment page on behalf of the shopper's session. Only the
// session that placed the order may settle it, and the outcome is the one the backend recorded on the
// order, whatever the provider's redirect carried.
func (s *CheckoutServiceImpl) VerifyReturn(ctx context.Context, session Session, orderID int64) (d.Checkout, error) {
	attempt, err := s.repo.AttemptByOrder(ctx, orderID)
	if errors.Is(err, r.ErrAttemptNotFound) {
		return d.Checkout{}, ErrUnknownOrder
	}
	if err != nil {
		return d.Checkout{}, err
	}
	if attempt.SessionID != session.ID {
		s.logger.Warn("payment return from another session",
			zap.Int64("order_id", orderID), zap.String("session_id", session.ID))
		return d.Checkout{}, ErrUnknownOrder
	}
	if session.Backend == nil || !session.Backend.Authenticated(ctx) {
		return d.Checkout{}, d.ErrAuthenticationRequired
	}

	orderCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	order, err := session.Backend.Order(orderCtx, orderID)
	switch {
	case errors.Is(err, backend.ErrUnauthorized):
		return d.Checkout{}, d.ErrAuthenticationRequired
	case errors.Is(err, backend.ErrNotFound):
		return d.Checkout{}, ErrUnknownOrder
	case err != nil:
		return d.Checkout{}, fmt.Errorf("get order %d: %w", orderID, err)
	}

	success, settled := d.OrderPaymentOutcome(order.Status)
	if !settled {
		return d.AwaitingPayment(attempt.OrderID, attempt.Total, attempt.PaymentURL), ErrPaymentPending
	}
	return s.ConfirmExternalPayment(ctx, orderID, success)
}
