package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_bookstore/internal/backend"
	d "github.com/fjod/go_bookstore/internal/checkout/domain"
	r "github.com/fjod/go_bookstore/internal/checkout/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// createOrder submits the order, or picks up the session's pending electronic order when the shopper
// retries the same cart. A pending order for a different cart is cancelled first.
func (s *CheckoutServiceImpl) createOrder(ctx context.Context, session Session, c d.Checkout) (d.Checkout, error) {
	fingerprint := c.Draft.Fingerprint()

	pending, err := s.repo.PendingAttempt(ctx, session.ID)
	if err != nil && !errors.Is(err, r.ErrAttemptNotFound) {
		s.logger.Warn("failed to read checkout journal", zap.String("session_id", session.ID), zap.Error(err))
		pending = nil
	}

	if pending != nil {
		if pending.Fingerprint == fingerprint && c.Draft.PaymentMethod == d.PaymentMethodElectronic {
			s.logger.Info("retrying payment for pending order",
				zap.String("session_id", session.ID), zap.Int64("order_id", pending.OrderID))
			return c.OrderCreated(pending.OrderID, pending.Total)
		}
		s.abandon(ctx, session, pending)
	}

	idempotencyKey := uuid.NewString()
	req := backend.OrderRequest{
		Phone:           c.Draft.Phone,
		ShippingAddress: c.Draft.ShippingAddress,
		PaymentMethod:   c.Draft.PaymentMethod.WireValue(),
		Items:           make([]backend.OrderItemRequest, 0, len(c.Draft.Items)),
	}
	for _, line := range c.Draft.OrderLines() {
		req.Items = append(req.Items, backend.OrderItemRequest{ProductID: line.ProductID, Quantity: line.Quantity})
	}

	orderCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	order, err := session.Backend.CreateOrder(orderCtx, req, idempotencyKey)
	if err != nil {
		s.logger.Warn("order creation failed", zap.String("session_id", session.ID), zap.Error(err))
		return c.Fail(fmt.Errorf("%w: %w", d.ErrOrderCreationFailed, err))
	}

	next, err := c.OrderCreated(order.ID, order.Total)
	if err != nil {
		return c, err
	}
	s.logger.Info("order created",
		zap.String("session_id", session.ID), zap.Int64("order_id", order.ID),
		zap.String("payment_method", c.Draft.PaymentMethod.String()))

	if c.Draft.PaymentMethod == d.PaymentMethodElectronic {
		attempt := &r.Attempt{
			OrderID:        order.ID,
			SessionID:      session.ID,
			IdempotencyKey: idempotencyKey,
			Fingerprint:    fingerprint,
			Total:          order.Total,
			Status:         r.AttemptStatusPending,
		}
		if err := s.repo.CreateAttempt(ctx, attempt); err != nil {
			s.logger.Warn("failed to journal checkout attempt", zap.Int64("order_id", order.ID), zap.Error(err))
		}
	}
	return next, nil
}

// abandon cancels an orphaned order best-effort and closes its journal entry either way.
func (s *CheckoutServiceImpl) abandon(ctx context.Context, session Session, pending *r.Attempt) {
	cancelCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	status := r.AttemptStatusCancelled
	if err := session.Backend.CancelOrder(cancelCtx, pending.OrderID); err != nil {
		s.logger.Warn("failed to cancel orphaned order",
			zap.Int64("order_id", pending.OrderID), zap.Error(err))
		status = r.AttemptStatusFailed
	} else {
		s.logger.Info("cancelled orphaned order", zap.Int64("order_id", pending.OrderID))
	}

	if err := s.repo.UpdateStatus(ctx, pending.OrderID, status); err != nil {
		s.logger.Warn("failed to close checkout attempt", zap.Int64("order_id", pending.OrderID), zap.Error(err))
	}
}
