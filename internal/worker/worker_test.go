package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ntalhaozcandev/basic-ecom-backend/internal/broker"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/inventory"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/models"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/service"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/store"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/util"
)

func TestSweepExpiresOnlyStaleOrders(t *testing.T) {
	m := store.NewMemory()
	m.SeedProducts([]models.Product{
		{ID: "p1", Title: "Widget", Price: 1000, Stock: 10, IsActive: true},
	})

	clock := util.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	ledger := inventory.NewLedger(m, nil)
	orders := service.NewOrderService(m, m, m, ledger, broker.NewEventPublisher(nil), clock)
	ctx := context.Background()

	stale := &models.Order{
		ID: "o-stale", UserID: "u1",
		Status:    models.OrderStatusPending,
		CreatedAt: clock.Now().Add(-10 * time.Minute),
		Items:     []models.OrderItem{{ProductID: "p1", Quantity: 2}},
	}
	fresh := &models.Order{
		ID: "o-fresh", UserID: "u1",
		Status:    models.OrderStatusPending,
		CreatedAt: clock.Now().Add(-1 * time.Minute),
	}
	paid := &models.Order{
		ID: "o-paid", UserID: "u1",
		Status:    models.OrderStatusPaid,
		CreatedAt: clock.Now().Add(-10 * time.Minute),
	}
	require.NoError(t, m.CreateOrder(ctx, stale))
	require.NoError(t, m.CreateOrder(ctx, fresh))
	require.NoError(t, m.CreateOrder(ctx, paid))

	w := NewExpiryWorker(orders, clock, 5*time.Minute, time.Minute)
	w.Sweep(ctx)

	got, _ := m.GetOrder(ctx, "o-stale")
	assert.Equal(t, models.OrderStatusCanceled, got.Status)

	got, _ = m.GetOrder(ctx, "o-fresh")
	assert.Equal(t, models.OrderStatusPending, got.Status)

	got, _ = m.GetOrder(ctx, "o-paid")
	assert.Equal(t, models.OrderStatusPaid, got.Status)

	// reserved stock returned
	p, _ := m.GetProduct(ctx, "p1")
	assert.Equal(t, 12, p.Stock)
}
