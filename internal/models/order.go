package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order channels
const (
	ChannelOnline  = "online"
	ChannelOffline = "offline"
)

// Delivery statuses
const (
	DeliveryPlaced    = "placed"
	DeliveryInTransit = "intransit"
	DeliveryDelivered = "delivered"
	DeliveryCancelled = "cancelled"
	DeliveryReturned  = "returned"
)

// Payment statuses
const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentFailed   = "failed"
	PaymentRefunded = "refunded"
)

// Delivery methods
const (
	DeliveryShipping = "shipping"
	DeliveryPickup   = "pickup"
)

var deliveryTransitions = map[string][]string{
	DeliveryPlaced:    {DeliveryInTransit, DeliveryCancelled},
	DeliveryInTransit: {DeliveryDelivered, DeliveryCancelled},
	DeliveryDelivered: {DeliveryReturned},
}

var paymentTransitions = map[string][]string{
	PaymentPending: {PaymentPaid, PaymentFailed},
	PaymentPaid:    {PaymentRefunded},
	PaymentFailed:  {PaymentPending},
}

// CanTransitionDelivery reports whether an order may move between delivery statuses
func CanTransitionDelivery(from, to string) bool {
	return contains(deliveryTransitions[from], to)
}

// CanTransitionPayment reports whether an order may move between payment statuses
func CanTransitionPayment(from, to string) bool {
	return contains(paymentTransitions[from], to)
}

// RestoresStock is true for delivery statuses that put items back on the shelf
func RestoresStock(status string) bool {
	return status == DeliveryCancelled || status == DeliveryReturned
}

func IsDeliveryStatus(s string) bool {
	switch s {
	case DeliveryPlaced, DeliveryInTransit, DeliveryDelivered, DeliveryCancelled, DeliveryReturned:
		return true
	}
	return false
}

func IsPaymentStatus(s string) bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Order is a purchase by exactly one of a registered or offline customer
type Order struct {
	ID                int64           `db:"order_id" json:"order_id"`
	CustomerID        *int64          `db:"customer_id" json:"customer_id"`
	OfflineCustomerID *int64          `db:"offline_customer_id" json:"offline_customer_id"`
	AddressID         int64           `db:"address_id" json:"address_id"`
	TotalItems        int             `db:"total_items" json:"total_items"`
	Subtotal          decimal.Decimal `db:"subtotal" json:"subtotal"`
	DiscountPercent   decimal.Decimal `db:"discount_percent" json:"discount_percent"`
	DiscountAmount    decimal.Decimal `db:"discount_amount" json:"discount_amount"`
	DeliveryCharge    decimal.Decimal `db:"delivery_charge" json:"delivery_charge"`
	TaxPercent        decimal.Decimal `db:"tax_percent" json:"tax_percent"`
	TaxAmount         decimal.Decimal `db:"tax_amount" json:"tax_amount"`
	TotalAmount       decimal.Decimal `db:"total_amount" json:"total_amount"`
	Channel           string          `db:"channel" json:"channel"`
	PaymentStatus     string          `db:"payment_status" json:"payment_status"`
	FulfillmentStatus bool            `db:"fulfillment_status" json:"fulfillment_status"`
	DeliveryStatus    string          `db:"delivery_status" json:"delivery_status"`
	DeliveryMethod    string          `db:"delivery_method" json:"delivery_method"`
	AWBNumber         *string         `db:"awb_number" json:"awb_number"`
	IdempotencyKey    *string         `db:"idempotency_key" json:"-"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

type OrderItem struct {
	ID         int64           `db:"item_id" json:"item_id"`
	OrderID    int64           `db:"order_id" json:"order_id"`
	ProductID  int64           `db:"product_id" json:"product_id"`
	ModelID    *int64          `db:"model_id" json:"model_id"`
	ColorID    *int64          `db:"color_id" json:"color_id"`
	Quantity   int             `db:"quantity" json:"quantity"`
	UnitPrice  decimal.Decimal `db:"unit_price" json:"unit_price"`
	TotalPrice decimal.Decimal `db:"total_price" json:"total_price"`
}

// OrderItemRow is an order item joined with product and color names
type OrderItemRow struct {
	OrderItem
	ProductName string  `db:"product_name" json:"product_name"`
	ModelName   *string `db:"model_name" json:"model_name"`
	ColorName   *string `db:"color_name" json:"color_name"`
}

type OrderView struct {
	Order
	Items []OrderItemRow `json:"items"`
}

// OrderHistory is the flattened purchase record kept per registered customer
type OrderHistory struct {
	ID          int64           `db:"history_id" json:"history_id"`
	CustomerID  int64           `db:"customer_id" json:"customer_id"`
	OrderID     *int64          `db:"order_id" json:"order_id"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"total_amount"`
	ItemCount   int             `db:"item_count" json:"item_count"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

type OrderHistoryItem struct {
	ID          int64           `db:"history_item_id" json:"history_item_id"`
	HistoryID   int64           `db:"history_id" json:"history_id"`
	ProductID   *int64          `db:"product_id" json:"product_id"`
	ProductName string          `db:"product_name" json:"product_name"`
	ColorName   *string         `db:"color_name" json:"color_name"`
	Quantity    int             `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
}

type OrderHistoryView struct {
	OrderHistory
	Items []OrderHistoryItem `json:"items"`
}
