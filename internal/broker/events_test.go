package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"ecom-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestPublishOrderPlacedKeysByOrder(t *testing.T) {
	w := &fakeWriter{}
	ep := NewEventPublisher(&Producer{writer: w})

	event := &models.OrderPlacedEvent{
		BaseEvent:   NewBaseEvent(models.EventTypeOrderPlaced),
		OrderID:     12,
		TotalAmount: decimal.RequireFromString("118.00"),
	}
	require.NoError(t, ep.PublishOrderPlaced(context.Background(), event))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "order-12", string(w.msgs[0].Key))

	var decoded models.OrderPlacedEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, models.EventTypeOrderPlaced, decoded.EventType)
	assert.NotEmpty(t, decoded.EventID)
	assert.True(t, decoded.TotalAmount.Equal(decimal.NewFromInt(118)))
}

func TestPublishPropagatesWriterError(t *testing.T) {
	ep := NewEventPublisher(&Producer{writer: &fakeWriter{err: errors.New("broker down")}})

	err := ep.PublishStockLow(context.Background(), &models.StockLowEvent{
		BaseEvent: NewBaseEvent(models.EventTypeStockLow), ColorID: 3,
	})
	assert.ErrorContains(t, err, "broker down")
}

func TestHandleMessageDispatch(t *testing.T) {
	eh := NewEventHandler()

	var placed, changed, low int
	eh.OnOrderPlaced(func(_ context.Context, e *models.OrderPlacedEvent) error {
		placed++
		assert.Equal(t, int64(5), e.OrderID)
		return nil
	})
	eh.OnOrderStatusChanged(func(_ context.Context, e *models.OrderStatusChangedEvent) error {
		changed++
		assert.Equal(t, models.DeliveryInTransit, e.To)
		return nil
	})
	eh.OnStockLow(func(_ context.Context, e *models.StockLowEvent) error {
		low++
		assert.Equal(t, 2, e.StockQuantity)
		return nil
	})

	send := func(v interface{}) {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		require.NoError(t, eh.HandleMessage(context.Background(), kafka.Message{Value: data}))
	}

	send(models.OrderPlacedEvent{BaseEvent: NewBaseEvent(models.EventTypeOrderPlaced), OrderID: 5})
	send(models.OrderStatusChangedEvent{BaseEvent: NewBaseEvent(models.EventTypeOrderStatusChanged), To: models.DeliveryInTransit})
	send(models.StockLowEvent{BaseEvent: NewBaseEvent(models.EventTypeStockLow), StockQuantity: 2})
	send(models.BaseEvent{EventType: "SOMETHING_ELSE"})

	assert.Equal(t, 1, placed)
	assert.Equal(t, 1, changed)
	assert.Equal(t, 1, low)
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	err := NewEventHandler().HandleMessage(context.Background(), kafka.Message{Value: []byte("not json")})
	assert.Error(t, err)
}
