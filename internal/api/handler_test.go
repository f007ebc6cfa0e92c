package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ntalhaozcandev/basic-ecom-backend/internal/auth"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/broker"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/inventory"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/models"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/service"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/store"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/util"
)

func testApp(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m := store.NewMemory()
	m.SeedProducts([]models.Product{
		{ID: "p1", Title: "Widget", Price: 1000, Stock: 10, IsActive: true},
	})

	clock := util.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	rng := util.FixedRand{F: 0.5}
	events := broker.NewEventPublisher(nil)
	ledger := inventory.NewLedger(m, nil)

	carts := service.NewCartService(m, m)
	orders := service.NewOrderService(m, m, m, ledger, events, clock)
	payments := service.NewPaymentService(m, m, events, rng, clock, util.NopSleeper{})
	shipping := service.NewShippingService(m, m, events, rng, clock, util.NopSleeper{})

	verifier := auth.NewStaticVerifier(map[string]auth.Identity{
		"user-token":  {UserID: "u1", Role: auth.RoleUser},
		"admin-token": {UserID: "a1", Role: auth.RoleAdmin},
	})

	r := gin.New()
	NewHandler(carts, orders, payments, shipping, verifier).SetupRoutes(r)
	return r
}

func doJSON(r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCartAndCheckoutFlow(t *testing.T) {
	r := testApp(t)

	w := doJSON(r, http.MethodPost, "/api/v1/cart", "user-token", gin.H{
		"product_id": "p1", "quantity": 2,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	addr := gin.H{"city": "Los Angeles", "state": "CA", "postal_code": "90001", "country": "US"}
	w = doJSON(r, http.MethodPost, "/api/v1/orders", "user-token", gin.H{
		"shipping_address": addr,
		"billing_address":  addr,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var envelope struct {
		Success bool         `json:"success"`
		Data    models.Order `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	assert.Equal(t, int64(2000), envelope.Data.Total)
	assert.Equal(t, models.OrderStatusPending, envelope.Data.Status)

	// a second checkout finds the cart empty
	w = doJSON(r, http.MethodPost, "/api/v1/orders", "user-token", gin.H{
		"shipping_address": addr,
		"billing_address":  addr,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "empty_cart")
}

func TestOrderRoutesAuthorization(t *testing.T) {
	r := testApp(t)

	w := doJSON(r, http.MethodGet, "/api/v1/orders", "user-token", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/orders", "admin-token", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/orders/missing", "user-token", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestShippingRatesRoute(t *testing.T) {
	r := testApp(t)

	w := doJSON(r, http.MethodPost, "/api/v1/shipping/rates", "user-token", gin.H{
		"to":      gin.H{"city": "Austin", "state": "TX", "postal_code": "73301", "country": "US"},
		"package": gin.H{"weight": 1, "length": 1, "width": 1, "height": 1},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "usps-ground")
}

func TestTrackingRouteIsPublic(t *testing.T) {
	r := testApp(t)

	w := doJSON(r, http.MethodGet, "/api/v1/shipping/track/unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthRoutes(t *testing.T) {
	r := testApp(t)

	w := doJSON(r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
