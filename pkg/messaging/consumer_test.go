package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/worksafe/worksafe-backend/pkg/logger"
)

// fakeAcknowledger records the outcome a delivery was settled with.
type fakeAcknowledger struct {
	acked    bool
	nacked   bool
	requeued bool
	rejected bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.acked = true
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	f.nacked = true
	f.requeued = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	f.rejected = true
	f.requeued = requeue
	return nil
}

func newTestConsumer() *Consumer {
	return &Consumer{
		queueName: "test.queue",
		handlers:  make(map[string]MessageHandler),
		logger:    logger.New("test", "development").WithComponent("consumer"),
	}
}

func makeDelivery(t *testing.T, ack amqp.Acknowledger, eventType string) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(&Event{
		ID:        "evt-1",
		Type:      eventType,
		Source:    "whs-service",
		Timestamp: time.Now(),
	})
	require.NoError(t, err)
	return amqp.Delivery{Acknowledger: ack, Body: body}
}

func TestConsumer_HandleMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("successful handler acks", func(t *testing.T) {
		c := newTestConsumer()
		c.RegisterHandler("case.opened", func(ctx context.Context, e *Event) error {
			return nil
		})

		ack := &fakeAcknowledger{}
		c.handleMessage(ctx, makeDelivery(t, ack, "case.opened"))

		assert.True(t, ack.acked)
		assert.False(t, ack.nacked)
		assert.False(t, ack.rejected)
	})

	t.Run("unregistered event type is acked and dropped", func(t *testing.T) {
		c := newTestConsumer()

		ack := &fakeAcknowledger{}
		c.handleMessage(ctx, makeDelivery(t, ack, "case.unknown"))

		assert.True(t, ack.acked)
	})

	t.Run("malformed payload is dead-lettered immediately", func(t *testing.T) {
		c := newTestConsumer()

		ack := &fakeAcknowledger{}
		c.handleMessage(ctx, amqp.Delivery{Acknowledger: ack, Body: []byte("not json")})

		assert.True(t, ack.rejected)
		assert.False(t, ack.requeued)
	})

	t.Run("first failure requeues", func(t *testing.T) {
		c := newTestConsumer()
		c.RegisterHandler("case.opened", func(ctx context.Context, e *Event) error {
			return errors.New("downstream unavailable")
		})

		ack := &fakeAcknowledger{}
		c.handleMessage(ctx, makeDelivery(t, ack, "case.opened"))

		assert.True(t, ack.nacked)
		assert.True(t, ack.requeued)
		assert.False(t, ack.rejected)
	})

	t.Run("redelivered failure is dead-lettered", func(t *testing.T) {
		c := newTestConsumer()
		c.RegisterHandler("case.opened", func(ctx context.Context, e *Event) error {
			return errors.New("downstream unavailable")
		})

		ack := &fakeAcknowledger{}
		msg := makeDelivery(t, ack, "case.opened")
		msg.Redelivered = true
		c.handleMessage(ctx, msg)

		assert.True(t, ack.rejected)
		assert.False(t, ack.requeued)
		assert.False(t, ack.nacked)
	})

	t.Run("cycled retry past the cap is dead-lettered", func(t *testing.T) {
		c := newTestConsumer()
		c.RegisterHandler("case.opened", func(ctx context.Context, e *Event) error {
			return errors.New("downstream unavailable")
		})

		ack := &fakeAcknowledger{}
		msg := makeDelivery(t, ack, "case.opened")
		msg.Headers = amqp.Table{
			"x-death": []interface{}{
				amqp.Table{"count": int64(maxDeliveryAttempts)},
			},
		}
		c.handleMessage(ctx, msg)

		assert.True(t, ack.rejected)
		assert.False(t, ack.requeued)
	})
}
