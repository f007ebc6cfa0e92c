package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ntalhaozcandev/basic-ecom-backend/internal/service"
)

type updateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// checkout converts the caller's cart into an order
func (h *Handler) checkout(c *gin.Context) {
	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	identity := callerIdentity(c)
	order, err := h.orders.Checkout(c.Request.Context(), identity.UserID, &req)
	if err != nil {
		respondFromError(c, err)
		return
	}

	respond(c, http.StatusCreated, "order created", order)
}

// getOrder fetches one order, owner or admin only
func (h *Handler) getOrder(c *gin.Context) {
	order, err := h.orders.GetOrder(c.Request.Context(), c.Param("id"), callerIdentity(c))
	if err != nil {
		respondFromError(c, err)
		return
	}

	respond(c, http.StatusOK, "", order)
}

// listOrders lists all orders, admin only, with an optional status filter
func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.orders.ListOrders(c.Request.Context(), c.Query("status"), callerIdentity(c))
	if err != nil {
		respondFromError(c, err)
		return
	}

	respond(c, http.StatusOK, "", gin.H{"orders": orders, "count": len(orders)})
}

// listMyOrders lists the caller's own orders
func (h *Handler) listMyOrders(c *gin.Context) {
	orders, err := h.orders.ListMyOrders(c.Request.Context(), callerIdentity(c))
	if err != nil {
		respondFromError(c, err)
		return
	}

	respond(c, http.StatusOK, "", gin.H{"orders": orders, "count": len(orders)})
}

// updateOrderStatus sets an order's status, admin only
func (h *Handler) updateOrderStatus(c *gin.Context) {
	var req updateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, callerIdentity(c))
	if err != nil {
		respondFromError(c, err)
		return
	}

	respond(c, http.StatusOK, "order status updated", order)
}
