package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderPlaced        = "ORDER_PLACED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
	EventTypeStockLow           = "STOCK_LOW"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent published after an order commits
type OrderPlacedEvent struct {
	BaseEvent
	OrderID           int64           `json:"order_id"`
	CustomerID        *int64          `json:"customer_id,omitempty"`
	OfflineCustomerID *int64          `json:"offline_customer_id,omitempty"`
	CustomerName      string          `json:"customer_name"`
	CustomerEmail     string          `json:"customer_email,omitempty"`
	Channel           string          `json:"channel"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	Items             []OrderItemData `json:"items"`
}

// OrderStatusChangedEvent published on delivery or payment status changes
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID        int64  `json:"order_id"`
	Field          string `json:"field"`
	From           string `json:"from"`
	To             string `json:"to"`
	DeliveryStatus string `json:"delivery_status"`
	PaymentStatus  string `json:"payment_status"`
}

// StockLowEvent published when a color drops to or below its threshold
type StockLowEvent struct {
	BaseEvent
	ProductID     int64  `json:"product_id"`
	ProductName   string `json:"product_name"`
	ColorID       int64  `json:"color_id"`
	ColorName     string `json:"color_name"`
	StockQuantity int    `json:"stock_quantity"`
	Threshold     int    `json:"threshold"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	ColorID     *int64          `json:"color_id,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
