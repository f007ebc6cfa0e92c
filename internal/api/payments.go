package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ntalhaozcandev/basic-ecom-backend/internal/service"
)

type confirmIntentRequest struct {
	PaymentMethod service.PaymentMethodData `json:"payment_method" binding:"required"`
	Processor     string                    `json:"processor"`
}

type processPaymentRequest struct {
	service.CreateIntentRequest
	PaymentMethod service.PaymentMethodData `json:"payment_method" binding:"required"`
	Processor     string                    `json:"processor"`
}

type refundRequest struct {
	TransactionID string `json:"transaction_id" binding:"required"`
	Amount        *int64 `json:"amount"`
	Reason        string `json:"reason"`
}

// createIntent creates a payment intent
func (h *Handler) createIntent(c *gin.Context) {
	var req service.CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	intent, err := h.payments.CreateIntent(c.Request.Context(), callerIdentity(c), &req)
	if err != nil {
		respondFromError(c, err)
		return
	}

	respond(c, http.StatusCreated, "payment intent created", intent)
}

// confirmIntent confirms an existing payment intent
func (h *Handler) confirmIntent(c *gin.Context) {
	var req confirmIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := h.payments.ConfirmIntent(c.Request.Context(), callerIdentity(c), c.Param("id"), req.PaymentMethod, req.Processor)
	if err != nil {
		respondFromError(c, err)
		return
	}

	respond(c, http.StatusOK, "payment confirmed", result)
}

// processPayment creates and confirms an intent in one call
func (h *Handler) processPayment(c *gin.Context) {
	var req processPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := h.payments.ProcessPayment(c.Request.Context(), callerIdentity(c), &req.CreateIntentRequest, req.PaymentMethod, req.Processor)
	if err != nil {
		respondFromError(c, err)
		return
	}

	respond(c, http.StatusOK, "payment processed", result)
}

// processRefund refunds part or all of a transaction
func (h *Handler) processRefund(c *gin.Context) {
	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	refund, err := h.payments.ProcessRefund(c.Request.Context(), callerIdentity(c), req.TransactionID, req.Amount, req.Reason)
	if err != nil {
		respondFromError(c, err)
		return
	}

	respond(c, http.StatusOK, "refund processed", refund)
}

// getIntent fetches a payment intent
func (h *Handler) getIntent(c *gin.Context) {
	intent, err := h.payments.GetIntent(c.Request.Context(), callerIdentity(c), c.Param("id"))
	if err != nil {
		respondFromError(c, err)
		return
	}

	respond(c, http.StatusOK, "", intent)
}

// getTransaction fetches a transaction
func (h *Handler) getTransaction(c *gin.Context) {
	txn, err := h.payments.GetTransaction(c.Request.Context(), callerIdentity(c), c.Param("transactionId"))
	if err != nil {
		respondFromError(c, err)
		return
	}

	respond(c, http.StatusOK, "", txn)
}

// paymentHistory returns the caller's paid orders, paginated
func (h *Handler) paymentHistory(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	orders, pagination, err := h.payments.History(c.Request.Context(), callerIdentity(c), page, limit)
	if err != nil {
		respondFromError(c, err)
		return
	}

	respond(c, http.StatusOK, "", gin.H{
		"payments":   orders,
		"pagination": pagination,
	})
}
