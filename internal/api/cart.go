package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type addCartItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
}

type setQuantityRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// addCartItem handles adding an item to the caller's cart
func (h *Handler) addCartItem(c *gin.Context) {
	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	identity := callerIdentity(c)
	cart, err := h.carts.AddItem(c.Request.Context(), identity.UserID, req.ProductID, req.Quantity)
	if err != nil {
		respondFromError(c, err)
		return
	}

	respond(c, http.StatusOK, "item added to cart", cart)
}

// getCart returns the caller's cart
func (h *Handler) getCart(c *gin.Context) {
	identity := callerIdentity(c)
	cart, err := h.carts.GetCart(c.Request.Context(), identity.UserID)
	if err != nil {
		respondFromError(c, err)
		return
	}

	respond(c, http.StatusOK, "", cart)
}

// setCartQuantity sets the quantity of one cart line
func (h *Handler) setCartQuantity(c *gin.Context) {
	var req setQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	identity := callerIdentity(c)
	cart, err := h.carts.SetQuantity(c.Request.Context(), identity.UserID, c.Param("productId"), req.Quantity)
	if err != nil {
		respondFromError(c, err)
		return
	}

	respond(c, http.StatusOK, "cart updated", cart)
}

// removeCartItem removes one line from the caller's cart
func (h *Handler) removeCartItem(c *gin.Context) {
	identity := callerIdentity(c)
	if _, err := h.carts.RemoveItem(c.Request.Context(), identity.UserID, c.Param("productId")); err != nil {
		respondFromError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// clearCart empties the caller's cart
func (h *Handler) clearCart(c *gin.Context) {
	identity := callerIdentity(c)
	if err := h.carts.Clear(c.Request.Context(), identity.UserID); err != nil {
		respondFromError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
