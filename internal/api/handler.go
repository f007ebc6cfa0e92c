package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ntalhaozcandev/basic-ecom-backend/internal/auth"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/service"
)

// Handler contains HTTP handlers
type Handler struct {
	carts    *service.CartService
	orders   *service.OrderService
	payments *service.PaymentService
	shipping *service.ShippingService
	verifier auth.TokenVerifier
}

// NewHandler creates a new HTTP handler
func NewHandler(
	carts *service.CartService,
	orders *service.OrderService,
	payments *service.PaymentService,
	shipping *service.ShippingService,
	verifier auth.TokenVerifier,
) *Handler {
	return &Handler{
		carts:    carts,
		orders:   orders,
		payments: payments,
		shipping: shipping,
		verifier: verifier,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")

	authed := v1.Group("", RequireAuth(h.verifier))
	{
		authed.POST("/cart", h.addCartItem)
		authed.GET("/cart", h.getCart)
		authed.PUT("/cart/:productId", h.setCartQuantity)
		authed.DELETE("/cart/:productId", h.removeCartItem)
		authed.DELETE("/cart", h.clearCart)

		authed.POST("/orders", h.checkout)
		authed.GET("/orders/myOrders", h.listMyOrders)
		authed.GET("/orders/:id", h.getOrder)
		authed.GET("/orders", RequireAdmin(), h.listOrders)
		authed.PUT("/orders/:id", RequireAdmin(), h.updateOrderStatus)

		authed.POST("/payments/intents", h.createIntent)
		authed.POST("/payments/intents/:id/confirm", h.confirmIntent)
		authed.POST("/payments/process", h.processPayment)
		authed.POST("/payments/refund", h.processRefund)
		authed.GET("/payments/history", h.paymentHistory)
		authed.GET("/payments/intents/:id", h.getIntent)
		authed.GET("/payments/:transactionId", h.getTransaction)

		authed.POST("/shipping/rates", h.calculateRates)
		authed.POST("/shipping/labels", h.createLabel)
		authed.GET("/shipping/orders/:orderId", h.orderShipping)
		authed.DELETE("/shipping/shipments/:id", h.cancelShipment)
	}

	// Tracking is public, carriers expose it without credentials
	v1.GET("/shipping/track/:trackingNumber", h.trackShipment)
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}
