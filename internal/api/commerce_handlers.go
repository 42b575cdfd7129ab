package api

import (
	"net/http"

	"ecom-service/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) getCart(c *gin.Context) {
	cart, err := h.svc.Carts.GetCart(c.Request.Context(), claimsFrom(c).CustomerID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *Handler) addCartItem(c *gin.Context) {
	var in service.CartItemInput
	if !bindJSON(c, &in) {
		return
	}
	cart, err := h.svc.Carts.AddItem(c.Request.Context(), claimsFrom(c).CustomerID, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *Handler) updateCartItem(c *gin.Context) {
	itemID, ok := pathID(c, "item_id")
	if !ok {
		return
	}
	var body struct {
		Quantity int `json:"quantity" binding:"required"`
	}
	if !bindJSON(c, &body) {
		return
	}
	cart, err := h.svc.Carts.UpdateItem(c.Request.Context(), claimsFrom(c).CustomerID, itemID, body.Quantity)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *Handler) removeCartItem(c *gin.Context) {
	itemID, ok := pathID(c, "item_id")
	if !ok {
		return
	}
	if err := h.svc.Carts.RemoveItem(c.Request.Context(), claimsFrom(c).CustomerID, itemID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item removed from cart"})
}

func (h *Handler) clearCart(c *gin.Context) {
	if err := h.svc.Carts.Clear(c.Request.Context(), claimsFrom(c).CustomerID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}

func (h *Handler) getWishlist(c *gin.Context) {
	lines, err := h.svc.Wishlists.GetWishlist(c.Request.Context(), claimsFrom(c).CustomerID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lines)
}

func (h *Handler) addWishlistItem(c *gin.Context) {
	var in service.WishlistItemInput
	if !bindJSON(c, &in) {
		return
	}
	item, err := h.svc.Wishlists.AddItem(c.Request.Context(), claimsFrom(c).CustomerID, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) removeWishlistItem(c *gin.Context) {
	itemID, ok := pathID(c, "item_id")
	if !ok {
		return
	}
	if err := h.svc.Wishlists.RemoveItem(c.Request.Context(), claimsFrom(c).CustomerID, itemID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item removed from wishlist"})
}

func (h *Handler) moveWishlistItem(c *gin.Context) {
	itemID, ok := pathID(c, "item_id")
	if !ok {
		return
	}
	cart, err := h.svc.Wishlists.MoveToCart(c.Request.Context(), claimsFrom(c).CustomerID, itemID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}
