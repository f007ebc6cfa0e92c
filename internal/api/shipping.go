package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ntalhaozcandev/basic-ecom-backend/internal/service"
)

// calculateRates quotes every carrier service for a parcel
func (h *Handler) calculateRates(c *gin.Context) {
	var req service.RateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	quotes, err := h.shipping.CalculateRates(c.Request.Context(), &req)
	if err != nil {
		respondFromError(c, err)
		return
	}

	respond(c, http.StatusOK, "", gin.H{"rates": quotes, "count": len(quotes)})
}

// createLabel purchases a shipping label for an order
func (h *Handler) createLabel(c *gin.Context) {
	var req service.CreateLabelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	shipment, err := h.shipping.CreateLabel(c.Request.Context(), callerIdentity(c), &req)
	if err != nil {
		respondFromError(c, err)
		return
	}

	respond(c, http.StatusCreated, "shipping label created", shipment)
}

// trackShipment reports tracking history for a tracking number, no auth required
func (h *Handler) trackShipment(c *gin.Context) {
	shipment, err := h.shipping.Track(c.Request.Context(), c.Param("trackingNumber"))
	if err != nil {
		respondFromError(c, err)
		return
	}

	respond(c, http.StatusOK, "", shipment)
}

// orderShipping returns the shipping summary stored on an order
func (h *Handler) orderShipping(c *gin.Context) {
	info, history, err := h.shipping.OrderShipping(c.Request.Context(), callerIdentity(c), c.Param("orderId"))
	if err != nil {
		respondFromError(c, err)
		return
	}

	respond(c, http.StatusOK, "", gin.H{"shipping_info": info, "shipping_history": history})
}

// cancelShipment voids a label before pickup
func (h *Handler) cancelShipment(c *gin.Context) {
	result, err := h.shipping.Cancel(c.Request.Context(), callerIdentity(c), c.Param("id"))
	if err != nil {
		respondFromError(c, err)
		return
	}

	respond(c, http.StatusOK, "shipment cancelled", result)
}
