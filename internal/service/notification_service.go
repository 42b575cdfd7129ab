package service

import (
	"context"
	"fmt"

	"ecom-service/internal/models"
	"ecom-service/internal/notifier"
	"ecom-service/internal/util"

	"go.uber.org/zap"
)

const notificationConsumer = "notifications"

// EventLedger records which events a consumer has already handled
type EventLedger interface {
	IsEventProcessed(ctx context.Context, eventID, consumer string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, consumer, eventType string) error
}

// NotificationService sends emails for store events. Each event is handled
// at most once per consumer, so redelivered messages are skipped.
type NotificationService struct {
	ledger     EventLedger
	mailer     notifier.Mailer
	adminEmail string
	logger     *zap.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(ledger EventLedger, mailer notifier.Mailer, adminEmail string) *NotificationService {
	return &NotificationService{
		ledger:     ledger,
		mailer:     mailer,
		adminEmail: adminEmail,
		logger:     util.Named("notifications"),
	}
}

// HandleOrderPlaced emails the order confirmation to the buyer
func (ns *NotificationService) HandleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	ctx, span := util.StartSpan(ctx, "NotificationService.HandleOrderPlaced")
	defer span.End()

	return ns.once(ctx, event.BaseEvent, func() error {
		if event.CustomerEmail == "" {
			ns.logger.Info("No email on file, skipping confirmation", zap.Int64("order_id", event.OrderID))
			return nil
		}
		if err := ns.mailer.Send(ctx, notifier.OrderConfirmation(event)); err != nil {
			return fmt.Errorf("failed to send order confirmation: %w", err)
		}
		ns.logger.Info("Order confirmation sent", zap.Int64("order_id", event.OrderID))
		return nil
	})
}

// HandleStockLow alerts the store admin
func (ns *NotificationService) HandleStockLow(ctx context.Context, event *models.StockLowEvent) error {
	ctx, span := util.StartSpan(ctx, "NotificationService.HandleStockLow")
	defer span.End()

	return ns.once(ctx, event.BaseEvent, func() error {
		if ns.adminEmail == "" {
			ns.logger.Warn("Stock low but no admin email configured",
				zap.Int64("product_id", event.ProductID),
				zap.Int64("color_id", event.ColorID),
				zap.Int("stock_quantity", event.StockQuantity))
			return nil
		}
		if err := ns.mailer.Send(ctx, notifier.StockAlert(ns.adminEmail, event)); err != nil {
			return fmt.Errorf("failed to send stock alert: %w", err)
		}
		return nil
	})
}

func (ns *NotificationService) once(ctx context.Context, base models.BaseEvent, fn func() error) error {
	processed, err := ns.ledger.IsEventProcessed(ctx, base.EventID, notificationConsumer)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		ns.logger.Info("Event already processed", zap.String("event_id", base.EventID))
		return nil
	}

	if err := fn(); err != nil {
		return err
	}
	util.EventsConsumedTotal.WithLabelValues(notificationConsumer, base.EventType).Inc()

	if err := ns.ledger.MarkEventProcessed(ctx, base.EventID, notificationConsumer, base.EventType); err != nil {
		ns.logger.Error("Failed to mark event processed", zap.Error(err))
	}
	return nil
}
