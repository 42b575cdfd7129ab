package store

import (
	"context"
	"strconv"

	"ecom-service/internal/models"
)

// CreateOrder creates a new order
func (q *Queries) CreateOrder(ctx context.Context, o *models.Order) error {
	query := `
		INSERT INTO orders (customer_id, offline_customer_id, address_id, total_items, subtotal,
		                    discount_percent, discount_amount, delivery_charge, tax_percent, tax_amount,
		                    total_amount, channel, payment_status, fulfillment_status, delivery_status,
		                    delivery_method, awb_number, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING *`

	return q.get(ctx, o, query,
		o.CustomerID, o.OfflineCustomerID, o.AddressID, o.TotalItems, o.Subtotal,
		o.DiscountPercent, o.DiscountAmount, o.DeliveryCharge, o.TaxPercent, o.TaxAmount,
		o.TotalAmount, o.Channel, o.PaymentStatus, o.FulfillmentStatus, o.DeliveryStatus,
		o.DeliveryMethod, o.AWBNumber, o.IdempotencyKey)
}

// GetOrder retrieves an order by ID
func (q *Queries) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	var o models.Order
	if err := q.get(ctx, &o, "SELECT * FROM orders WHERE order_id = $1", id); err != nil {
		return nil, err
	}
	return &o, nil
}

// GetOrderForUpdate locks the order row for a status change
func (q *Queries) GetOrderForUpdate(ctx context.Context, id int64) (*models.Order, error) {
	var o models.Order
	if err := q.get(ctx, &o, "SELECT * FROM orders WHERE order_id = $1 FOR UPDATE", id); err != nil {
		return nil, err
	}
	return &o, nil
}

// GetOrderByIdempotencyKey returns nil when no order carries the key
func (q *Queries) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var o models.Order
	err := q.get(ctx, &o, "SELECT * FROM orders WHERE idempotency_key = $1", key)
	if err == ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (q *Queries) ListOrdersByCustomer(ctx context.Context, customerID int64) ([]models.Order, error) {
	out := []models.Order{}
	err := q.sel(ctx, &out,
		"SELECT * FROM orders WHERE customer_id = $1 ORDER BY created_at DESC", customerID)
	return out, err
}

// OrderFilter narrows the admin order listing; empty fields match everything
type OrderFilter struct {
	DeliveryStatus    string
	PaymentStatus     string
	OfflineCustomerID *int64
	Limit             int
	Offset            int
}

func (q *Queries) ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	query := "SELECT * FROM orders WHERE 1=1"
	var args []interface{}
	add := func(clause string, v interface{}) {
		args = append(args, v)
		query += " AND " + clause + " = $" + strconv.Itoa(len(args))
	}
	if f.DeliveryStatus != "" {
		add("delivery_status", f.DeliveryStatus)
	}
	if f.PaymentStatus != "" {
		add("payment_status", f.PaymentStatus)
	}
	if f.OfflineCustomerID != nil {
		add("offline_customer_id", *f.OfflineCustomerID)
	}
	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		query += " LIMIT $" + strconv.Itoa(len(args)-1) + " OFFSET $" + strconv.Itoa(len(args))
	}

	out := []models.Order{}
	err := q.sel(ctx, &out, query, args...)
	return out, err
}

func (q *Queries) SetDeliveryStatus(ctx context.Context, orderID int64, status string) error {
	return q.exec(ctx,
		"UPDATE orders SET delivery_status = $1, updated_at = NOW() WHERE order_id = $2", status, orderID)
}

func (q *Queries) SetPaymentStatus(ctx context.Context, orderID int64, status string) error {
	return q.exec(ctx,
		"UPDATE orders SET payment_status = $1, updated_at = NOW() WHERE order_id = $2", status, orderID)
}

func (q *Queries) SetShipment(ctx context.Context, orderID int64, awb *string, fulfilled bool) error {
	return q.exec(ctx,
		"UPDATE orders SET awb_number = $1, fulfillment_status = $2, updated_at = NOW() WHERE order_id = $3",
		awb, fulfilled, orderID)
}

// CreateOrderItem creates a new order item
func (q *Queries) CreateOrderItem(ctx context.Context, item *models.OrderItem) error {
	query := `
		INSERT INTO order_items (order_id, product_id, model_id, color_id, quantity, unit_price, total_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING item_id`

	return q.get(ctx, &item.ID, query,
		item.OrderID, item.ProductID, item.ModelID, item.ColorID, item.Quantity, item.UnitPrice, item.TotalPrice)
}

// ListOrderItemRows retrieves all items for the given orders with product names
func (q *Queries) ListOrderItemRows(ctx context.Context, orderIDs []int64) ([]models.OrderItemRow, error) {
	out := []models.OrderItemRow{}
	if len(orderIDs) == 0 {
		return out, nil
	}
	query, args, err := q.in(`
		SELECT oi.*, p.name AS product_name, m.name AS model_name, c.name AS color_name
		FROM order_items oi
		JOIN products p ON p.product_id = oi.product_id
		LEFT JOIN product_models m ON m.model_id = oi.model_id
		LEFT JOIN product_colors c ON c.color_id = oi.color_id
		WHERE oi.order_id IN (?)
		ORDER BY oi.order_id, oi.item_id`, orderIDs)
	if err != nil {
		return nil, err
	}
	err = q.sel(ctx, &out, query, args...)
	return out, err
}

// Legacy order history

func (q *Queries) CreateOrderHistory(ctx context.Context, h *models.OrderHistory) error {
	return q.get(ctx, h, `
		INSERT INTO order_history (customer_id, order_id, total_amount, item_count)
		VALUES ($1, $2, $3, $4)
		RETURNING *`,
		h.CustomerID, h.OrderID, h.TotalAmount, h.ItemCount)
}

func (q *Queries) CreateOrderHistoryItem(ctx context.Context, it *models.OrderHistoryItem) error {
	return q.get(ctx, it, `
		INSERT INTO order_history_items (history_id, product_id, product_name, color_name, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *`,
		it.HistoryID, it.ProductID, it.ProductName, it.ColorName, it.Quantity, it.UnitPrice)
}

func (q *Queries) ListOrderHistory(ctx context.Context, customerID int64) ([]models.OrderHistory, error) {
	out := []models.OrderHistory{}
	err := q.sel(ctx, &out,
		"SELECT * FROM order_history WHERE customer_id = $1 ORDER BY created_at DESC", customerID)
	return out, err
}

func (q *Queries) ListOrderHistoryItems(ctx context.Context, historyIDs []int64) ([]models.OrderHistoryItem, error) {
	out := []models.OrderHistoryItem{}
	if len(historyIDs) == 0 {
		return out, nil
	}
	query, args, err := q.in(
		"SELECT * FROM order_history_items WHERE history_id IN (?) ORDER BY history_item_id", historyIDs)
	if err != nil {
		return nil, err
	}
	err = q.sel(ctx, &out, query, args...)
	return out, err
}
