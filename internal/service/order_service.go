package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ecom-service/config"
	"ecom-service/internal/broker"
	"ecom-service/internal/models"
	"ecom-service/internal/redisclient"
	"ecom-service/internal/store"
	"ecom-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Actor is the authenticated caller of an operation
type Actor struct {
	CustomerID int64
	IsAdmin    bool
}

// OrderService handles order placement, inventory and status changes
type OrderService struct {
	store  *store.Store
	redis  *redisclient.Client
	events *broker.EventPublisher
	cfg    config.BusinessConfig
	logger *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(
	store *store.Store,
	redis *redisclient.Client,
	events *broker.EventPublisher,
	cfg config.BusinessConfig,
) *OrderService {
	return &OrderService{
		store:  store,
		redis:  redis,
		events: events,
		cfg:    cfg,
		logger: util.GetLogger(),
	}
}

// OrderItemInput represents an item in an order
type OrderItemInput struct {
	ProductID int64  `json:"product_id" binding:"required"`
	ColorID   *int64 `json:"color_id"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

// PlaceOrderRequest is an order with explicit items. Pricing overrides and
// offline_customer_id are honoured for admins only.
type PlaceOrderRequest struct {
	OfflineCustomerID *int64           `json:"offline_customer_id"`
	AddressID         int64            `json:"address_id" binding:"required"`
	Items             []OrderItemInput `json:"items" binding:"required,min=1,dive"`
	DiscountPercent   *decimal.Decimal `json:"discount_percent"`
	TaxPercent        *decimal.Decimal `json:"tax_percent"`
	DeliveryCharge    *decimal.Decimal `json:"delivery_charge"`
	DeliveryMethod    string           `json:"delivery_method"`
	PaymentStatus     string           `json:"payment_status"`
	AWBNumber         *string          `json:"awb_number"`
}

// CheckoutRequest turns the caller's cart into an order
type CheckoutRequest struct {
	AddressID      int64  `json:"address_id" binding:"required"`
	DeliveryMethod string `json:"delivery_method"`
}

// orderDraft is a validated order ready for the placement transaction
type orderDraft struct {
	customerID        *int64
	offlineCustomerID *int64
	addressID         int64
	items             []OrderItemInput
	discountPercent   decimal.Decimal
	taxPercent        decimal.Decimal
	deliveryCharge    decimal.Decimal
	channel           string
	paymentStatus     string
	deliveryMethod    string
	awb               *string
	idempotencyKey    string
	cartID            *int64
}

// PricedLine is a unit price and quantity
type PricedLine struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Totals are the computed amounts of an order
type Totals struct {
	TotalItems     int
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	TotalAmount    decimal.Decimal
}

// ComputeTotals prices an order. Each step is rounded to two places; tax
// applies to the discounted subtotal and delivery is added untaxed.
func ComputeTotals(lines []PricedLine, discountPercent, taxPercent, deliveryCharge decimal.Decimal) Totals {
	t := Totals{Subtotal: decimal.Zero}
	for _, l := range lines {
		t.TotalItems += l.Quantity
		t.Subtotal = t.Subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	t.Subtotal = t.Subtotal.Round(2)
	t.DiscountAmount = t.Subtotal.Mul(discountPercent).Div(hundred).Round(2)
	taxable := t.Subtotal.Sub(t.DiscountAmount)
	t.TaxAmount = taxable.Mul(taxPercent).Div(hundred).Round(2)
	t.TotalAmount = taxable.Add(t.TaxAmount).Add(deliveryCharge).Round(2)
	return t
}

func percentOr(v *decimal.Decimal, def decimal.Decimal, field string) (decimal.Decimal, error) {
	if v == nil {
		return def, nil
	}
	if v.IsNegative() || v.GreaterThan(hundred) {
		return decimal.Zero, Invalid("%s must be between 0 and 100", field)
	}
	return *v, nil
}

func normalizeDeliveryMethod(m string) (string, error) {
	switch m = strings.ToLower(strings.TrimSpace(m)); m {
	case "":
		return models.DeliveryShipping, nil
	case models.DeliveryShipping, models.DeliveryPickup:
		return m, nil
	}
	return "", Invalid("delivery_method must be %q or %q", models.DeliveryShipping, models.DeliveryPickup)
}

// PlaceOrder creates an order from explicit items
func (s *OrderService) PlaceOrder(ctx context.Context, actor Actor, req PlaceOrderRequest, idempotencyKey string) (*models.OrderView, error) {
	if len(req.Items) == 0 {
		return nil, Invalid("at least one item is required")
	}
	method, err := normalizeDeliveryMethod(req.DeliveryMethod)
	if err != nil {
		return nil, err
	}

	draft := orderDraft{
		addressID:       req.AddressID,
		items:           req.Items,
		discountPercent: decimal.Zero,
		taxPercent:      decimal.NewFromFloat(s.cfg.DefaultTaxPercent),
		deliveryCharge:  decimal.Zero,
		deliveryMethod:  method,
		idempotencyKey:  idempotencyKey,
	}

	if actor.IsAdmin {
		if draft.discountPercent, err = percentOr(req.DiscountPercent, draft.discountPercent, "discount_percent"); err != nil {
			return nil, err
		}
		if draft.taxPercent, err = percentOr(req.TaxPercent, draft.taxPercent, "tax_percent"); err != nil {
			return nil, err
		}
		if req.DeliveryCharge != nil {
			if req.DeliveryCharge.IsNegative() {
				return nil, Invalid("delivery_charge cannot be negative")
			}
			draft.deliveryCharge = req.DeliveryCharge.Round(2)
		}
		draft.awb = req.AWBNumber
	}

	if req.OfflineCustomerID != nil {
		if !actor.IsAdmin {
			return nil, Forbidden("only admins can record offline sales")
		}
		draft.offlineCustomerID = req.OfflineCustomerID
		draft.channel = models.ChannelOffline
		draft.paymentStatus = models.PaymentPaid
	} else {
		customerID := actor.CustomerID
		draft.customerID = &customerID
		draft.channel = models.ChannelOnline
		draft.paymentStatus = models.PaymentPending
	}

	if req.PaymentStatus != "" && actor.IsAdmin {
		if !models.IsPaymentStatus(req.PaymentStatus) {
			return nil, Invalid("unknown payment status %q", req.PaymentStatus)
		}
		draft.paymentStatus = req.PaymentStatus
	}

	return s.place(ctx, draft)
}

// Checkout places an order for every line in the customer's cart and
// empties the cart in the same transaction.
func (s *OrderService) Checkout(ctx context.Context, customerID int64, req CheckoutRequest, idempotencyKey string) (*models.OrderView, error) {
	method, err := normalizeDeliveryMethod(req.DeliveryMethod)
	if err != nil {
		return nil, err
	}

	cart, err := s.store.GetOrCreateCart(ctx, customerID)
	if err != nil {
		return nil, err
	}

	draft := orderDraft{
		customerID:      &customerID,
		addressID:       req.AddressID,
		discountPercent: decimal.Zero,
		taxPercent:      decimal.NewFromFloat(s.cfg.DefaultTaxPercent),
		deliveryCharge:  decimal.Zero,
		channel:         models.ChannelOnline,
		paymentStatus:   models.PaymentPending,
		deliveryMethod:  method,
		idempotencyKey:  idempotencyKey,
		cartID:          &cart.ID,
	}
	return s.place(ctx, draft)
}

const maxIdempotencyKeyLen = 64

// buyer identifies who an order is placed for
func (d *orderDraft) buyer() string {
	if d.customerID != nil {
		return fmt.Sprintf("customer:%d", *d.customerID)
	}
	return fmt.Sprintf("offline:%d", *d.offlineCustomerID)
}

// lockKey serializes placements per buyer
func (d *orderDraft) lockKey() string {
	return "checkout:" + d.buyer()
}

// scopedKey is the stored form of the client's idempotency key. Two
// buyers sending the same key never see each other's orders.
func (d *orderDraft) scopedKey() string {
	if d.idempotencyKey == "" {
		return ""
	}
	return d.buyer() + ":" + d.idempotencyKey
}

func (d *orderDraft) owns(o *models.Order) bool {
	if d.customerID != nil {
		return o.CustomerID != nil && *o.CustomerID == *d.customerID
	}
	return o.OfflineCustomerID != nil && *o.OfflineCustomerID == *d.offlineCustomerID
}

func (s *OrderService) place(ctx context.Context, d orderDraft) (*models.OrderView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.PlaceOrder")
	defer span.End()

	if len(d.idempotencyKey) > maxIdempotencyKeyLen {
		return nil, Invalid("Idempotency-Key must be at most %d characters", maxIdempotencyKeyLen)
	}
	if d.idempotencyKey != "" {
		if view, err := s.replay(ctx, &d); err != nil || view != nil {
			return view, err
		}
	}
	if len(d.items) == 0 && d.cartID == nil {
		return nil, Invalid("at least one item is required")
	}

	if s.redis != nil {
		token, err := s.redis.AcquireLock(ctx, d.lockKey(), s.cfg.CheckoutLockTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire checkout lock: %w", err)
		}
		if token == "" {
			util.OrdersFailedTotal.WithLabelValues("locked").Inc()
			return nil, Conflict("another order for this customer is being placed")
		}
		defer func() {
			if err := s.redis.ReleaseLock(context.Background(), d.lockKey(), token); err != nil {
				s.logger.Warn("Failed to release checkout lock", zap.Error(err))
			}
		}()
	}

	start := time.Now()
	var order *models.Order
	var eventItems []models.OrderItemData
	var touched []int64
	var lowStock []struct {
		productName string
		color       models.ProductColor
	}

	err := s.store.InTx(ctx, func(q *store.Queries) error {
		if err := checkAddressOwner(ctx, q, d.addressID, d.customerID, d.offlineCustomerID); err != nil {
			return err
		}

		items := d.items
		var cartItemIDs []int64
		if d.cartID != nil {
			// read under the row lock so concurrent checkouts see the cart once
			if err := q.LockCart(ctx, *d.cartID); err != nil {
				return storeErr(err, "cart")
			}
			cartItems, err := q.ListCartItems(ctx, *d.cartID)
			if err != nil {
				return err
			}
			if len(cartItems) == 0 {
				return Invalid("cart is empty")
			}
			for _, it := range cartItems {
				items = append(items, OrderItemInput{ProductID: it.ProductID, ColorID: it.ColorID, Quantity: it.Quantity})
				cartItemIDs = append(cartItemIDs, it.ID)
			}
		}

		orderItems := make([]models.OrderItem, 0, len(items))
		lines := make([]PricedLine, 0, len(items))
		names := make(map[int64]string)
		touched = touched[:0]
		for _, in := range items {
			if in.Quantity < 1 {
				return Invalid("quantity must be at least 1")
			}
			p, err := q.GetProduct(ctx, in.ProductID)
			if err == store.ErrNotFound {
				return Invalid("product %d does not exist", in.ProductID)
			}
			if err != nil {
				return err
			}
			names[p.ID] = p.Name
			touched = append(touched, p.ID)

			color, err := resolveColor(ctx, q, in.ProductID, in.ColorID, true)
			if err != nil {
				return err
			}
			if color.StockQuantity < in.Quantity {
				util.OrdersFailedTotal.WithLabelValues("insufficient_stock").Inc()
				return Conflict("insufficient stock for %s (%s): %d available", p.Name, color.Name, color.StockQuantity)
			}
			after, err := q.AdjustColorStock(ctx, color.ID, -in.Quantity)
			if err != nil {
				return storeErr(err, "color stock")
			}
			if droppedBelowStock(color, after) {
				lowStock = append(lowStock, struct {
					productName string
					color       models.ProductColor
				}{p.Name, *after})
			}

			unit := color.Price
			orderItems = append(orderItems, models.OrderItem{
				ProductID:  p.ID,
				ModelID:    color.ModelID,
				ColorID:    &color.ID,
				Quantity:   in.Quantity,
				UnitPrice:  unit,
				TotalPrice: unit.Mul(decimal.NewFromInt(int64(in.Quantity))).Round(2),
			})
			lines = append(lines, PricedLine{UnitPrice: unit, Quantity: in.Quantity})
			eventItems = append(eventItems, models.OrderItemData{
				ProductID:   p.ID,
				ProductName: p.Name,
				ColorID:     &color.ID,
				Quantity:    in.Quantity,
				UnitPrice:   unit,
			})
		}

		totals := ComputeTotals(lines, d.discountPercent, d.taxPercent, d.deliveryCharge)
		order = &models.Order{
			CustomerID:        d.customerID,
			OfflineCustomerID: d.offlineCustomerID,
			AddressID:         d.addressID,
			TotalItems:        totals.TotalItems,
			Subtotal:          totals.Subtotal,
			DiscountPercent:   d.discountPercent,
			DiscountAmount:    totals.DiscountAmount,
			DeliveryCharge:    d.deliveryCharge,
			TaxPercent:        d.taxPercent,
			TaxAmount:         totals.TaxAmount,
			TotalAmount:       totals.TotalAmount,
			Channel:           d.channel,
			PaymentStatus:     d.paymentStatus,
			DeliveryStatus:    models.DeliveryPlaced,
			DeliveryMethod:    d.deliveryMethod,
			AWBNumber:         d.awb,
		}
		if key := d.scopedKey(); key != "" {
			order.IdempotencyKey = &key
		}
		if err := q.CreateOrder(ctx, order); err != nil {
			return storeErr(err, "order")
		}

		for i := range orderItems {
			orderItems[i].OrderID = order.ID
			if err := q.CreateOrderItem(ctx, &orderItems[i]); err != nil {
				return storeErr(err, "order item")
			}
		}

		if d.customerID != nil {
			if err := writeHistory(ctx, q, order, orderItems, names); err != nil {
				return err
			}
		}
		if len(cartItemIDs) > 0 {
			return q.DeleteCartItems(ctx, *d.cartID, cartItemIDs)
		}
		return nil
	})
	util.CheckoutLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		// a concurrent request with the same key won the race
		if d.idempotencyKey != "" && errors.Is(err, store.ErrDuplicate) {
			if view, rerr := s.replay(ctx, &d); rerr == nil && view != nil {
				return view, nil
			}
		}
		util.SpanError(span, err)
		return nil, err
	}

	util.OrdersPlacedTotal.WithLabelValues(order.Channel).Inc()
	s.logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.String("channel", order.Channel),
		zap.String("total", order.TotalAmount.StringFixed(2)))

	if d.idempotencyKey != "" && s.redis != nil {
		if err := s.redis.SetIdempotencyKey(ctx, d.scopedKey(), order.ID, s.cfg.IdempotencyTTL); err != nil {
			s.logger.Warn("Failed to store idempotency key", zap.Error(err))
		}
	}
	s.invalidateProducts(ctx, touched)

	s.publishOrderPlaced(ctx, order, eventItems)
	for _, low := range lowStock {
		publishStockLow(ctx, s.events, s.logger, low.productName, &low.color)
	}

	return s.orderView(ctx, order)
}

// replay returns the draft buyer's order already created for its
// idempotency key, or nil
func (s *OrderService) replay(ctx context.Context, d *orderDraft) (*models.OrderView, error) {
	key := d.scopedKey()
	if s.redis != nil {
		id, found, err := s.redis.CheckIdempotencyKey(ctx, key)
		if err != nil {
			s.logger.Warn("Idempotency cache read failed", zap.Error(err))
		} else if found {
			order, err := s.store.GetOrder(ctx, id)
			if err == nil && d.owns(order) {
				s.logger.Info("Duplicate order request detected",
					zap.String("idempotency_key", key),
					zap.Int64("order_id", id))
				return s.orderView(ctx, order)
			}
		}
	}

	existing, err := s.store.GetOrderByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}
	if existing == nil || !d.owns(existing) {
		return nil, nil
	}
	s.logger.Info("Duplicate order request detected",
		zap.String("idempotency_key", key),
		zap.Int64("order_id", existing.ID))
	return s.orderView(ctx, existing)
}

// invalidateProducts drops cached views whose stock just changed
func (s *OrderService) invalidateProducts(ctx context.Context, ids []int64) {
	if s.redis == nil || len(ids) == 0 {
		return
	}
	if err := s.redis.InvalidateProducts(ctx, ids...); err != nil {
		s.logger.Warn("Failed to invalidate product cache", zap.Error(err))
	}
}

func checkAddressOwner(ctx context.Context, q *store.Queries, addressID int64, customerID, offlineCustomerID *int64) error {
	addr, err := q.GetAddress(ctx, addressID)
	if err == store.ErrNotFound {
		return Invalid("address %d does not exist", addressID)
	}
	if err != nil {
		return err
	}
	if customerID != nil && (addr.CustomerID == nil || *addr.CustomerID != *customerID) {
		return Invalid("address %d does not belong to the customer", addressID)
	}
	if offlineCustomerID != nil {
		if _, err := q.GetOfflineCustomer(ctx, *offlineCustomerID); err != nil {
			if err == store.ErrNotFound {
				return Invalid("offline customer %d does not exist", *offlineCustomerID)
			}
			return err
		}
		if addr.OfflineCustomerID == nil || *addr.OfflineCustomerID != *offlineCustomerID {
			return Invalid("address %d does not belong to the offline customer", addressID)
		}
	}
	return nil
}

// writeHistory records the flattened purchase kept per registered customer
func writeHistory(ctx context.Context, q *store.Queries, order *models.Order, items []models.OrderItem, names map[int64]string) error {
	h := &models.OrderHistory{
		CustomerID:  *order.CustomerID,
		OrderID:     &order.ID,
		TotalAmount: order.TotalAmount,
		ItemCount:   order.TotalItems,
	}
	if err := q.CreateOrderHistory(ctx, h); err != nil {
		return storeErr(err, "order history")
	}
	for _, it := range items {
		productID := it.ProductID
		hi := &models.OrderHistoryItem{
			HistoryID:   h.ID,
			ProductID:   &productID,
			ProductName: names[it.ProductID],
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		}
		if it.ColorID != nil {
			if c, err := q.GetColor(ctx, *it.ColorID); err == nil {
				hi.ColorName = &c.Name
			}
		}
		if err := q.CreateOrderHistoryItem(ctx, hi); err != nil {
			return storeErr(err, "order history item")
		}
	}
	return nil
}

func (s *OrderService) publishOrderPlaced(ctx context.Context, order *models.Order, items []models.OrderItemData) {
	if s.events == nil {
		return
	}
	event := &models.OrderPlacedEvent{
		BaseEvent:         broker.NewBaseEvent(models.EventTypeOrderPlaced),
		OrderID:           order.ID,
		CustomerID:        order.CustomerID,
		OfflineCustomerID: order.OfflineCustomerID,
		Channel:           order.Channel,
		TotalAmount:       order.TotalAmount,
		Items:             items,
	}
	if order.CustomerID != nil {
		if c, err := s.store.GetCustomer(ctx, *order.CustomerID); err == nil {
			event.CustomerName, event.CustomerEmail = c.Name, c.Email
		}
	} else if order.OfflineCustomerID != nil {
		if c, err := s.store.GetOfflineCustomer(ctx, *order.OfflineCustomerID); err == nil {
			event.CustomerName = c.Name
			if c.Email != nil {
				event.CustomerEmail = *c.Email
			}
		}
	}

	if err := s.events.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.Int64("order_id", order.ID), zap.Error(err))
	}
}

func (s *OrderService) orderView(ctx context.Context, order *models.Order) (*models.OrderView, error) {
	views, err := s.orderViews(ctx, []models.Order{*order})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *OrderService) orderViews(ctx context.Context, orders []models.Order) ([]models.OrderView, error) {
	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	items, err := s.store.ListOrderItemRows(ctx, ids)
	if err != nil {
		return nil, err
	}
	byOrder := make(map[int64][]models.OrderItemRow)
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}
	out := make([]models.OrderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, models.OrderView{Order: o, Items: orEmpty(byOrder[o.ID])})
	}
	return out, nil
}

// GetOrder returns an order to its owner or to an admin
func (s *OrderService) GetOrder(ctx context.Context, actor Actor, orderID int64) (*models.OrderView, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, storeErr(err, "order")
	}
	if !actor.IsAdmin && (order.CustomerID == nil || *order.CustomerID != actor.CustomerID) {
		return nil, Forbidden("order %d belongs to another customer", orderID)
	}
	return s.orderView(ctx, order)
}

func (s *OrderService) ListCustomerOrders(ctx context.Context, customerID int64) ([]models.OrderView, error) {
	orders, err := s.store.ListOrdersByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return s.orderViews(ctx, orders)
}

// ListOrders is the admin listing with optional status filters
func (s *OrderService) ListOrders(ctx context.Context, f store.OrderFilter) ([]models.OrderView, error) {
	if f.DeliveryStatus != "" && !models.IsDeliveryStatus(f.DeliveryStatus) {
		return nil, Invalid("unknown delivery status %q", f.DeliveryStatus)
	}
	if f.PaymentStatus != "" && !models.IsPaymentStatus(f.PaymentStatus) {
		return nil, Invalid("unknown payment status %q", f.PaymentStatus)
	}
	orders, err := s.store.ListOrders(ctx, f)
	if err != nil {
		return nil, err
	}
	return s.orderViews(ctx, orders)
}

// UpdateDeliveryStatus moves an order along the delivery state machine.
// Cancelling or returning puts the items back in stock.
func (s *OrderService) UpdateDeliveryStatus(ctx context.Context, orderID int64, status string) (*models.OrderView, error) {
	return s.changeDelivery(ctx, Actor{IsAdmin: true}, orderID, status)
}

// CancelOrder lets a customer cancel their own order while it is placed
func (s *OrderService) CancelOrder(ctx context.Context, actor Actor, orderID int64) (*models.OrderView, error) {
	return s.changeDelivery(ctx, actor, orderID, models.DeliveryCancelled)
}

func (s *OrderService) changeDelivery(ctx context.Context, actor Actor, orderID int64, status string) (*models.OrderView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ChangeDeliveryStatus")
	defer span.End()

	status = strings.ToLower(strings.TrimSpace(status))
	if !models.IsDeliveryStatus(status) {
		return nil, Invalid("unknown delivery status %q", status)
	}

	var before, after *models.Order
	var restocked []int64
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		o, err := q.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return storeErr(err, "order")
		}
		if !actor.IsAdmin {
			if o.CustomerID == nil || *o.CustomerID != actor.CustomerID {
				return Forbidden("order %d belongs to another customer", orderID)
			}
			if o.DeliveryStatus != models.DeliveryPlaced {
				return Conflict("only placed orders can be cancelled")
			}
		}
		if !models.CanTransitionDelivery(o.DeliveryStatus, status) {
			return Conflict("cannot change delivery status from %s to %s", o.DeliveryStatus, status)
		}
		before = o
		copied := *o

		if err := q.SetDeliveryStatus(ctx, orderID, status); err != nil {
			return storeErr(err, "order")
		}
		copied.DeliveryStatus = status
		if status == models.DeliveryDelivered && !o.FulfillmentStatus {
			if err := q.SetShipment(ctx, orderID, o.AWBNumber, true); err != nil {
				return storeErr(err, "order")
			}
			copied.FulfillmentStatus = true
		}
		after = &copied

		if !models.RestoresStock(status) {
			return nil
		}
		items, err := q.ListOrderItemRows(ctx, []int64{orderID})
		if err != nil {
			return err
		}
		for _, it := range items {
			if it.ColorID == nil {
				continue
			}
			if _, err := q.AdjustColorStock(ctx, *it.ColorID, it.Quantity); err != nil && err != store.ErrNotFound {
				return storeErr(err, "color stock")
			}
			restocked = append(restocked, it.ProductID)
		}
		return nil
	})
	if err != nil {
		util.SpanError(span, err)
		return nil, err
	}

	util.OrderStatusChangesTotal.WithLabelValues("delivery_status", status).Inc()
	s.logger.Info("Order delivery status changed",
		zap.Int64("order_id", orderID),
		zap.String("from", before.DeliveryStatus),
		zap.String("to", status))
	s.invalidateProducts(ctx, restocked)
	s.publishStatusChanged(ctx, after, "delivery_status", before.DeliveryStatus, status)

	return s.orderView(ctx, after)
}

// UpdatePaymentStatus moves an order along the payment state machine
func (s *OrderService) UpdatePaymentStatus(ctx context.Context, orderID int64, status string) (*models.OrderView, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !models.IsPaymentStatus(status) {
		return nil, Invalid("unknown payment status %q", status)
	}

	var from string
	var after *models.Order
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		o, err := q.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return storeErr(err, "order")
		}
		if !models.CanTransitionPayment(o.PaymentStatus, status) {
			return Conflict("cannot change payment status from %s to %s", o.PaymentStatus, status)
		}
		if err := q.SetPaymentStatus(ctx, orderID, status); err != nil {
			return storeErr(err, "order")
		}
		from = o.PaymentStatus
		o.PaymentStatus = status
		after = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	util.OrderStatusChangesTotal.WithLabelValues("payment_status", status).Inc()
	s.logger.Info("Order payment status changed",
		zap.Int64("order_id", orderID),
		zap.String("from", from),
		zap.String("to", status))
	s.publishStatusChanged(ctx, after, "payment_status", from, status)

	return s.orderView(ctx, after)
}

// ShipmentInput sets the airway bill number and fulfillment flag
type ShipmentInput struct {
	AWBNumber         *string `json:"awb_number"`
	FulfillmentStatus *bool   `json:"fulfillment_status"`
}

func (s *OrderService) UpdateShipment(ctx context.Context, orderID int64, in ShipmentInput) (*models.OrderView, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, storeErr(err, "order")
	}
	if in.AWBNumber != nil {
		awb := strings.TrimSpace(*in.AWBNumber)
		order.AWBNumber = &awb
		if awb == "" {
			order.AWBNumber = nil
		}
	}
	if in.FulfillmentStatus != nil {
		order.FulfillmentStatus = *in.FulfillmentStatus
	}
	if err := s.store.SetShipment(ctx, orderID, order.AWBNumber, order.FulfillmentStatus); err != nil {
		return nil, storeErr(err, "order")
	}
	return s.orderView(ctx, order)
}

func (s *OrderService) publishStatusChanged(ctx context.Context, order *models.Order, field, from, to string) {
	if s.events == nil {
		return
	}
	event := &models.OrderStatusChangedEvent{
		BaseEvent:      broker.NewBaseEvent(models.EventTypeOrderStatusChanged),
		OrderID:        order.ID,
		Field:          field,
		From:           from,
		To:             to,
		DeliveryStatus: order.DeliveryStatus,
		PaymentStatus:  order.PaymentStatus,
	}
	if err := s.events.PublishOrderStatusChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderStatusChanged event", zap.Int64("order_id", order.ID), zap.Error(err))
	}
}

// OrderHistory returns the legacy purchase records of a customer
func (s *OrderService) OrderHistory(ctx context.Context, customerID int64) ([]models.OrderHistoryView, error) {
	history, err := s.store.ListOrderHistory(ctx, customerID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(history))
	for i, h := range history {
		ids[i] = h.ID
	}
	items, err := s.store.ListOrderHistoryItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	byHistory := make(map[int64][]models.OrderHistoryItem)
	for _, it := range items {
		byHistory[it.HistoryID] = append(byHistory[it.HistoryID], it)
	}
	out := make([]models.OrderHistoryView, 0, len(history))
	for _, h := range history {
		out = append(out, models.OrderHistoryView{OrderHistory: h, Items: orEmpty(byHistory[h.ID])})
	}
	return out, nil
}
