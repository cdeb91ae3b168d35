package service

import (
	"context"

	d "github.com/fjod/go_bookstore/internal/checkout/domain"
	"go.uber.org/zap"
)

// validate runs before any request is sent. Authentication is judged from the stored token alone.
func (s *CheckoutServiceImpl) validate(ctx context.Context, session Session, c d.Checkout) (d.Checkout, error) {
	next, err := c.Validate(session.Backend.Authenticated(ctx))
	if err != nil {
		s.logger.Info("checkout rejected",
			zap.String("session_id", session.ID), zap.Error(err))
		return next, err
	}
	return next, nil
}
