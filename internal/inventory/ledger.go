// Package inventory implements the stock ledger: atomic per-product
// check-and-decrement plus the two-phase multi-item reserve checkout uses.
package inventory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ntalhaozcandev/basic-ecom-backend/internal/errs"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/models"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/redisclient"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/store"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/util"
)

// Ledger guards per-product stock counters. The database conditional update is
// authoritative; when Redis is configured its counter acts as a fast
// pre-reservation that short-circuits contention before the row update.
type Ledger struct {
	products store.ProductRepo
	redis    *redisclient.Client
	logger   *zap.Logger
}

// NewLedger creates a ledger; redis may be nil
func NewLedger(products store.ProductRepo, redis *redisclient.Client) *Ledger {
	return &Ledger{
		products: products,
		redis:    redis,
		logger:   util.GetLogger(),
	}
}

// TryDecrement succeeds only if current stock >= qty, atomically subtracting
// qty. It is a single conditional operation per product; stock never goes
// negative regardless of concurrent callers.
func (l *Ledger) TryDecrement(ctx context.Context, productID string, qty int) (bool, error) {
	ctx, span := util.StartSpan(ctx, "Ledger.TryDecrement")
	defer span.End()

	if l.redis != nil {
		ok, err := l.redis.TryDecrement(ctx, productID, qty)
		if err != nil {
			l.logger.Warn("Redis decrement failed, using DB only",
				zap.String("product_id", productID),
				zap.Error(err))
		} else if !ok {
			return false, nil
		} else {
			dbOK, dbErr := l.products.TryDecrementStock(ctx, productID, qty)
			if dbErr != nil || !dbOK {
				// Redis reservation stands without a DB row behind it; undo it.
				if rerr := l.redis.Restock(ctx, productID, qty); rerr != nil {
					l.logger.Error("Failed to restock Redis after DB decline",
						zap.String("product_id", productID),
						zap.Error(rerr))
				}
			}
			return dbOK, dbErr
		}
	}

	return l.products.TryDecrementStock(ctx, productID, qty)
}

// Restock returns quantity to a product (compensation path)
func (l *Ledger) Restock(ctx context.Context, productID string, qty int) error {
	ctx, span := util.StartSpan(ctx, "Ledger.Restock")
	defer span.End()

	if l.redis != nil {
		if err := l.redis.Restock(ctx, productID, qty); err != nil {
			l.logger.Error("Failed to restock in Redis",
				zap.String("product_id", productID),
				zap.Error(err))
		}
	}
	return l.products.RestockProduct(ctx, productID, qty)
}

// ReserveAll decrements stock for every item or none: if a decrement fails
// after earlier ones succeeded, the completed decrements are compensated
// before the failure is reported.
func (l *Ledger) ReserveAll(ctx context.Context, items []models.CartItem) error {
	ctx, span := util.StartSpan(ctx, "Ledger.ReserveAll")
	defer span.End()

	done := make([]models.CartItem, 0, len(items))
	for _, item := range items {
		ok, err := l.TryDecrement(ctx, item.ProductID, item.Quantity)
		if err != nil {
			l.ReleaseAll(ctx, done)
			return fmt.Errorf("failed to decrement stock for product %s: %w", item.ProductID, err)
		}
		if !ok {
			l.ReleaseAll(ctx, done)
			return errs.Conflict(errs.CodeInsufficientStock,
				"insufficient stock for product %s", item.ProductID)
		}
		done = append(done, item)
		util.StockDecrementsTotal.Inc()
	}
	return nil
}

// ReleaseAll restocks every item, logging rather than aborting on individual
// failures so compensation is as complete as possible.
func (l *Ledger) ReleaseAll(ctx context.Context, items []models.CartItem) {
	for _, item := range items {
		if err := l.Restock(ctx, item.ProductID, item.Quantity); err != nil {
			l.logger.Error("Failed to compensate stock decrement",
				zap.String("product_id", item.ProductID),
				zap.Int("quantity", item.Quantity),
				zap.Error(err))
			continue
		}
		util.StockCompensationsTotal.Inc()
	}
}

// SyncToRedis seeds the Redis stock counters from the product rows
func (l *Ledger) SyncToRedis(ctx context.Context) error {
	if l.redis == nil {
		return nil
	}

	products, err := l.products.ListProducts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list products: %w", err)
	}

	for _, p := range products {
		if err := l.redis.InitStock(ctx, p.ID, p.Stock); err != nil {
			l.logger.Error("Failed to init Redis stock",
				zap.String("product_id", p.ID),
				zap.Error(err))
		}
	}

	l.logger.Info("Inventory synced to Redis", zap.Int("count", len(products)))
	return nil
}
