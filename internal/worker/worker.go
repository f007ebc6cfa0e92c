package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ntalhaozcandev/basic-ecom-backend/internal/service"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/util"
)

// ExpiryWorker periodically cancels pending orders older than the configured
// timeout, releasing their inventory reservations.
type ExpiryWorker struct {
	orders   *service.OrderService
	clock    util.Clock
	timeout  time.Duration
	interval time.Duration
	logger   *zap.Logger
	stop     chan struct{}
}

// NewExpiryWorker creates a new expiry worker
func NewExpiryWorker(orders *service.OrderService, clock util.Clock, timeout, interval time.Duration) *ExpiryWorker {
	return &ExpiryWorker{
		orders:   orders,
		clock:    clock,
		timeout:  timeout,
		interval: interval,
		logger:   util.GetLogger(),
		stop:     make(chan struct{}),
	}
}

// Start runs the sweep loop until the context is cancelled or Stop is called
func (w *ExpiryWorker) Start(ctx context.Context) {
	w.logger.Info("Starting order expiry worker",
		zap.Duration("timeout", w.timeout),
		zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep expires pending orders past the timeout once
func (w *ExpiryWorker) Sweep(ctx context.Context) {
	cutoff := w.clock.Now().Add(-w.timeout)
	expired, err := w.orders.ExpirePending(ctx, cutoff)
	if err != nil {
		w.logger.Error("Order expiry sweep failed", zap.Error(err))
		return
	}
	if expired > 0 {
		w.logger.Info("Expired stale pending orders", zap.Int("count", expired))
	}
}

// Stop stops the worker
func (w *ExpiryWorker) Stop() {
	close(w.stop)
}
