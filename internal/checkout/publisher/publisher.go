package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	d "github.com/fjod/go_bookstore/internal/checkout/domain"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const Topic = "checkout-events"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	timeout time.Duration
	writer  messageWriter
	logger  *zap.Logger
}

func NewKafkaPublisher(logger *zap.Logger, brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  Topic,
		Balancer:               &kafka.Hash{}, // one session, one partition
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(w, logger)
}

func newKafkaPublisher(w messageWriter, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{timeout: 5 * time.Second, writer: w, logger: logger}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event d.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal checkout event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.SessionID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}

	writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.writer.WriteMessages(writeCtx, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}

	p.logger.Debug("checkout event published",
		zap.String("event_type", string(event.Type)), zap.String("event_id", event.ID))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Nop drops events. Used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, d.Event) error { return nil }
func (Nop) Close() error { return nil }
