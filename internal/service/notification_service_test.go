package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"ecom-service/internal/models"
	"ecom-service/internal/notifier"
	"ecom-service/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryLedger struct {
	seen map[string]bool
}

func (l *memoryLedger) IsEventProcessed(_ context.Context, eventID, consumer string) (bool, error) {
	return l.seen[consumer+"/"+eventID], nil
}

func (l *memoryLedger) MarkEventProcessed(_ context.Context, eventID, consumer, _ string) error {
	l.seen[consumer+"/"+eventID] = true
	return nil
}

type recordingMailer struct {
	sent []notifier.Email
	err  error
}

func (m *recordingMailer) Send(_ context.Context, e notifier.Email) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, e)
	return nil
}

func placedEvent(id, email string) *models.OrderPlacedEvent {
	return &models.OrderPlacedEvent{
		BaseEvent:     models.BaseEvent{EventID: id, EventType: models.EventTypeOrderPlaced, Timestamp: time.Now()},
		OrderID:       42,
		CustomerName:  "Asha",
		CustomerEmail: email,
		TotalAmount:   decimal.NewFromInt(1180),
		Items:         []models.OrderItemData{{ProductID: 1, ProductName: "Lamp", Quantity: 2, UnitPrice: decimal.NewFromInt(500)}},
	}
}

func TestHandleOrderPlacedSendsOnce(t *testing.T) {
	ledger := &memoryLedger{seen: map[string]bool{}}
	mailer := &recordingMailer{}
	ns := NewNotificationService(ledger, mailer, "")
	ctx := context.Background()

	event := placedEvent("evt-1", "asha@example.com")
	require.NoError(t, ns.HandleOrderPlaced(ctx, event))
	require.NoError(t, ns.HandleOrderPlaced(ctx, event))

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "asha@example.com", mailer.sent[0].To)
	assert.Contains(t, mailer.sent[0].Subject, "42")
}

func TestHandleOrderPlacedWithoutEmail(t *testing.T) {
	ledger := &memoryLedger{seen: map[string]bool{}}
	mailer := &recordingMailer{}
	ns := NewNotificationService(ledger, mailer, "")

	require.NoError(t, ns.HandleOrderPlaced(context.Background(), placedEvent("evt-2", "")))
	assert.Empty(t, mailer.sent)
	assert.True(t, ledger.seen[notificationConsumer+"/evt-2"])
}

func TestHandleOrderPlacedMailerFailureIsRetryable(t *testing.T) {
	ledger := &memoryLedger{seen: map[string]bool{}}
	mailer := &recordingMailer{err: errors.New("ses down")}
	ns := NewNotificationService(ledger, mailer, "")

	err := ns.HandleOrderPlaced(context.Background(), placedEvent("evt-3", "a@b.co"))
	assert.Error(t, err)
	assert.False(t, ledger.seen[notificationConsumer+"/evt-3"])
}

func TestHandleStockLow(t *testing.T) {
	ledger := &memoryLedger{seen: map[string]bool{}}
	mailer := &recordingMailer{}
	event := &models.StockLowEvent{
		BaseEvent:     models.BaseEvent{EventID: "evt-4", EventType: models.EventTypeStockLow},
		ProductName:   "Lamp",
		ColorName:     "White",
		StockQuantity: 2,
		Threshold:     10,
	}

	require.NoError(t, NewNotificationService(ledger, mailer, "").HandleStockLow(context.Background(), event))
	assert.Empty(t, mailer.sent)

	event.EventID = "evt-5"
	require.NoError(t, NewNotificationService(ledger, mailer, "ops@example.com").HandleStockLow(context.Background(), event))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "ops@example.com", mailer.sent[0].To)
	assert.Contains(t, mailer.sent[0].Subject, "Lamp (White)")
}

func TestStoreErr(t *testing.T) {
	assert.Nil(t, storeErr(nil, "product"))

	err := storeErr(store.ErrNotFound, "product")
	assert.True(t, IsKind(err, KindNotFound))
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, "product not found: "+store.ErrNotFound.Error(), err.Error())

	err = storeErr(fmt.Errorf("%w: constraint", store.ErrDuplicate), "category")
	assert.True(t, IsKind(err, KindConflict))

	err = storeErr(fmt.Errorf("%w: constraint", store.ErrReferenced), "address")
	assert.True(t, IsKind(err, KindConflict))

	err = storeErr(fmt.Errorf("%w: constraint", store.ErrConstraint), "color")
	assert.True(t, IsKind(err, KindInvalid))

	plain := errors.New("boom")
	assert.Equal(t, plain, storeErr(plain, "x"))
}
