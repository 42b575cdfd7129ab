package api

import (
	"net/http"
	"strconv"

	"ecom-service/internal/service"
	"ecom-service/internal/store"

	"github.com/gin-gonic/gin"
)

const maxOrderPage = 200

func idempotencyKey(c *gin.Context) string {
	return c.GetHeader("Idempotency-Key")
}

func (h *Handler) checkout(c *gin.Context) {
	var req service.CheckoutRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.svc.Orders.Checkout(c.Request.Context(), claimsFrom(c).CustomerID, req, idempotencyKey(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *Handler) placeOrder(c *gin.Context) {
	var req service.PlaceOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.svc.Orders.PlaceOrder(c.Request.Context(), actorFrom(c), req, idempotencyKey(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *Handler) listMyOrders(c *gin.Context) {
	orders, err := h.svc.Orders.ListCustomerOrders(c.Request.Context(), claimsFrom(c).CustomerID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	order, err := h.svc.Orders.GetOrder(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		badRequest(c, "Invalid "+name, nil)
		return 0, false
	}
	return v, true
}

func (h *Handler) listAllOrders(c *gin.Context) {
	f := store.OrderFilter{
		DeliveryStatus: c.Query("delivery_status"),
		PaymentStatus:  c.Query("payment_status"),
	}
	var ok bool
	if f.Limit, ok = queryInt(c, "limit", 50); !ok {
		return
	}
	if f.Offset, ok = queryInt(c, "offset", 0); !ok {
		return
	}
	if f.Limit > maxOrderPage {
		f.Limit = maxOrderPage
	}
	if raw := c.Query("offline_customer_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(c, "Invalid offline_customer_id", err)
			return
		}
		f.OfflineCustomerID = &id
	}

	orders, err := h.svc.Orders.ListOrders(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

type statusBody struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) updateDeliveryStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body statusBody
	if !bindJSON(c, &body) {
		return
	}
	order, err := h.svc.Orders.UpdateDeliveryStatus(c.Request.Context(), id, body.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) updatePaymentStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body statusBody
	if !bindJSON(c, &body) {
		return
	}
	order, err := h.svc.Orders.UpdatePaymentStatus(c.Request.Context(), id, body.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) updateShipment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in service.ShipmentInput
	if !bindJSON(c, &in) {
		return
	}
	order, err := h.svc.Orders.UpdateShipment(c.Request.Context(), id, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) cancelOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	order, err := h.svc.Orders.CancelOrder(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) orderHistory(c *gin.Context) {
	history, err := h.svc.Orders.OrderHistory(c.Request.Context(), claimsFrom(c).CustomerID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}
