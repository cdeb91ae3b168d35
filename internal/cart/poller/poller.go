package poller

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	checkout "github.com/fjod/go_bookstore/internal/checkout/domain"
	"github.com/fjod/go_bookstore/internal/checkout/service"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const Topic = "payment-results"

// PaymentResult is published by the payment side once the provider has answered.
type PaymentResult struct {
	SessionID string `json:"session_id"`
	OrderID   int64  `json:"order_id"`
	Status    string `json:"status"`
}

type PaymentConfirmer interface {
	ConfirmExternalPayment(ctx context.Context, orderID int64, success bool) (checkout.Checkout, error)
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const (
	initialRetryDelay = time.Second
	maxRetryDelay     = 30 * time.Second
)

// Poller completes the payment return trip from Kafka: a confirmed payment empties the shopper's cart.
// A message is committed once its result is applied or can never be applied.
type Poller struct {
	confirmer  PaymentConfirmer
	reader     messageReader
	logger     *zap.Logger
	retryDelay time.Duration
}

func NewPoller(confirmer PaymentConfirmer, logger *zap.Logger, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    Topic,
		GroupID:  "bookstore-storefront",
		MaxBytes: 10e6, // 10MB
	})
	return newPoller(confirmer, reader, logger)
}

func newPoller(confirmer PaymentConfirmer, reader messageReader, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{confirmer: confirmer, reader: reader, logger: logger, retryDelay: initialRetryDelay}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.handleNextMessage(ctx)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.logger.Warn("error closing reader", zap.Error(err))
	}
}

func (p *Poller) handleNextMessage(ctx context.Context) {
	m, err := p.reader.FetchMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		p.logger.Warn("error reading message", zap.Error(err))
		return
	}

	if !p.apply(ctx, m) {
		return
	}
	if err := p.reader.CommitMessages(ctx, m); err != nil {
		p.logger.Warn("error committing message", zap.Int64("offset", m.Offset), zap.Error(err))
	}
}

// apply retries transient failures until the result is applied, rejected for good, or ctx ends.
// It reports whether the message is done with.
func (p *Poller) apply(ctx context.Context, m kafka.Message) bool {
	var result PaymentResult
	if errUnmarshal := json.Unmarshal(m.Value, &result); errUnmarshal != nil {
		p.logger.Warn("error parsing message", zap.Int64("offset", m.Offset), zap.Error(errUnmarshal))
		return true
	}
	if result.OrderID <= 0 {
		p.logger.Warn("payment result without order id", zap.Int64("offset", m.Offset))
		return true
	}

	delay := p.retryDelay
	for {
		c, err := p.confirmer.ConfirmExternalPayment(ctx, result.OrderID, checkout.PaymentSucceeded(result.Status))
		if err == nil {
			p.logger.Info("payment result applied",
				zap.Int64("order_id", result.OrderID), zap.String("checkout_status", c.Status.String()))
			return true
		}
		if permanent(err) {
			p.logger.Warn("payment result rejected",
				zap.Int64("order_id", result.OrderID), zap.String("status", result.Status), zap.Error(err))
			return true
		}

		p.logger.Warn("failed to apply payment result, retrying",
			zap.Int64("order_id", result.OrderID), zap.Duration("retry_in", delay), zap.Error(err))
		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}
		delay = min(delay*2, maxRetryDelay)
	}
}

func permanent(err error) bool {
	return errors.Is(err, service.ErrUnknownOrder) ||
		errors.Is(err, service.ErrAttemptClosed) ||
		errors.Is(err, checkout.ErrIllegalTransition)
}
