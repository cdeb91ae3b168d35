package service

import (
	"context"
	"fmt"

	"github.com/fjod/go_bookstore/internal/backend"
	d "github.com/fjod/go_bookstore/internal/checkout/domain"
	"go.uber.org/zap"
)

// processPayment opens the payment session for the order created in the previous step.
// The journal entry stays pending on failure so a retry can reuse the order.
func (s *CheckoutServiceImpl) processPayment(ctx context.Context, session Session, c d.Checkout) (d.Checkout, error) {
	payRequest := backend.PaymentRequest{
		OrderID:       c.OrderID,
		Amount:        c.OrderTotal,
		PaymentMethod: c.Draft.PaymentMethod.WireValue(),
	}

	paymentCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	payResult, payErr := session.Backend.ProcessPayment(paymentCtx, payRequest)
	if payErr != nil {
		s.logger.Warn("payment session failed", zap.Int64("order_id", c.OrderID), zap.Error(payErr))
		return c.Fail(fmt.Errorf("%w: %w", d.ErrPaymentSessionFailed, payErr))
	}

	next, err := c.PaymentSessionOpened(payResult.PaymentURL)
	if err != nil {
		return c, err
	}
	if next.Status == d.CheckoutStatusFailed {
		s.logger.Warn("payment response has no redirect url", zap.Int64("order_id", c.OrderID))
		return next, nil
	}

	if err := s.repo.SetPaymentURL(ctx, c.OrderID, next.PaymentURL); err != nil {
		s.logger.Warn("failed to journal payment url", zap.Int64("order_id", c.OrderID), zap.Error(err))
	}
	return next, nil
}
