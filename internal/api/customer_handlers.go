package api

import (
	"net/http"

	"ecom-service/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) createOfflineCustomer(c *gin.Context) {
	var in service.OfflineCustomerInput
	if !bindJSON(c, &in) {
		return
	}
	customer, err := h.svc.Customers.CreateOfflineCustomer(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

func (h *Handler) listOfflineCustomers(c *gin.Context) {
	customers, err := h.svc.Customers.ListOfflineCustomers(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customers)
}

func (h *Handler) getOfflineCustomer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	customer, err := h.svc.Customers.GetOfflineCustomer(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *Handler) updateOfflineCustomer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in service.OfflineCustomerInput
	if !bindJSON(c, &in) {
		return
	}
	customer, err := h.svc.Customers.UpdateOfflineCustomer(c.Request.Context(), id, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *Handler) deleteOfflineCustomer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Customers.DeleteOfflineCustomer(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Offline customer deleted"})
}

func (h *Handler) addOfflineAddress(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in service.AddressInput
	if !bindJSON(c, &in) {
		return
	}
	addr, err := h.svc.Customers.AddOfflineAddress(c.Request.Context(), id, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, addr)
}

func (h *Handler) listOfflineAddresses(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	addrs, err := h.svc.Customers.ListOfflineAddresses(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, addrs)
}

func (h *Handler) listAddresses(c *gin.Context) {
	addrs, err := h.svc.Customers.ListAddresses(c.Request.Context(), claimsFrom(c).CustomerID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, addrs)
}

func (h *Handler) addAddress(c *gin.Context) {
	var in service.AddressInput
	if !bindJSON(c, &in) {
		return
	}
	addr, err := h.svc.Customers.AddAddress(c.Request.Context(), claimsFrom(c).CustomerID, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, addr)
}

func (h *Handler) updateAddress(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in service.AddressInput
	if !bindJSON(c, &in) {
		return
	}
	addr, err := h.svc.Customers.UpdateAddress(c.Request.Context(), claimsFrom(c).CustomerID, id, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, addr)
}

func (h *Handler) deleteAddress(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Customers.DeleteAddress(c.Request.Context(), claimsFrom(c).CustomerID, id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Address deleted"})
}
