package poller

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	checkout "github.com/fjod/go_bookstore/internal/checkout/domain"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

func setupKafka(t *testing.T) string {
	if testing.Short() {
		t.Skip("skipping kafka container test in short mode")
	}
	ctx := context.Background()

	kafkaContainer, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	})

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

type chanConfirmer chan confirmCall

func (c chanConfirmer) ConfirmExternalPayment(_ context.Context, orderID int64, success bool) (checkout.Checkout, error) {
	c <- confirmCall{orderID, success}
	return checkout.Checkout{Status: checkout.CheckoutStatusPaymentConfirmed, OrderID: orderID}, nil
}

func TestPoller_ConsumesPaymentResults(t *testing.T) {
	broker := setupKafka(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	w := &kafka.Writer{
		Addr:                   kafka.TCP(broker),
		Topic:                  Topic,
		AllowAutoTopicCreation: true,
	}
	defer w.Close()

	payload, err := json.Marshal(PaymentResult{SessionID: "s-1", OrderID: 7, Status: "00"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return w.WriteMessages(ctx, kafka.Message{Key: []byte("s-1"), Value: payload}) == nil
	}, 30*time.Second, time.Second)

	calls := make(chanConfirmer, 1)
	p := NewPoller(calls, nil, broker)
	defer p.Close()
	go p.Run(ctx)

	select {
	case got := <-calls:
		assert.Equal(t, confirmCall{7, true}, got)
	case <-ctx.Done():
		t.Fatal("payment result was not consumed")
	}
}
