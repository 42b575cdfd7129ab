package worker

import (
	"context"

	"ecom-service/internal/broker"
	"ecom-service/internal/models"
	"ecom-service/internal/service"
	"ecom-service/internal/util"

	"go.uber.org/zap"
)

// NotificationWorker turns store events into emails
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer, notifications *service.NotificationService) *NotificationWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnOrderPlaced(notifications.HandleOrderPlaced)
	eventHandler.OnStockLow(notifications.HandleStockLow)

	return &NotificationWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       util.Named("worker.notifications"),
	}
}

// Start blocks until ctx is cancelled
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting notification worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

func (w *NotificationWorker) Stop() error {
	w.logger.Info("Stopping notification worker")
	return w.consumer.Close()
}

// FeedMessage is pushed to connected admin dashboards
type FeedMessage struct {
	Type  string      `json:"type"`
	Event interface{} `json:"event"`
}

// Broadcaster fans a message out to live subscribers
type Broadcaster interface {
	Broadcast(msg FeedMessage)
}

// OrderFeedWorker relays order events to the admin live feed
type OrderFeedWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewOrderFeedWorker creates a worker that forwards placed orders, status
// changes and stock alerts to feed.
func NewOrderFeedWorker(consumer *broker.Consumer, feed Broadcaster) *OrderFeedWorker {
	eventHandler := broker.NewEventHandler()
	RegisterFeed(eventHandler, feed)

	return &OrderFeedWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       util.Named("worker.feed"),
	}
}

// RegisterFeed wires every feed-visible event type into eh
func RegisterFeed(eh *broker.EventHandler, feed Broadcaster) {
	eh.OnOrderPlaced(func(_ context.Context, e *models.OrderPlacedEvent) error {
		feed.Broadcast(FeedMessage{Type: e.EventType, Event: e})
		return nil
	})
	eh.OnOrderStatusChanged(func(_ context.Context, e *models.OrderStatusChangedEvent) error {
		feed.Broadcast(FeedMessage{Type: e.EventType, Event: e})
		return nil
	})
	eh.OnStockLow(func(_ context.Context, e *models.StockLowEvent) error {
		feed.Broadcast(FeedMessage{Type: e.EventType, Event: e})
		return nil
	})
}

// Start blocks until ctx is cancelled
func (w *OrderFeedWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting order feed worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

func (w *OrderFeedWorker) Stop() error {
	w.logger.Info("Stopping order feed worker")
	return w.consumer.Close()
}
