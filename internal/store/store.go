// Package store defines the repository interfaces the workflow engine and the
// gateway simulators are built against, with an in-memory backing for tests
// and a Postgres backing for production behind the same contracts.
package store

import (
	"context"
	"time"

	"github.com/ntalhaozcandev/basic-ecom-backend/internal/models"
)

// OrderFilter narrows administrative order listings
type OrderFilter struct {
	Status *models.OrderStatus
}

// Page is an offset/limit pagination request
type Page struct {
	Offset int
	Limit  int
}

// ProductRepo reads catalog products and performs conditional stock updates.
// TryDecrementStock is a single atomic compare-and-swap per product: it
// succeeds only if current stock >= qty and never produces negative stock.
type ProductRepo interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]*models.Product, error)
	TryDecrementStock(ctx context.Context, productID string, qty int) (bool, error)
	RestockProduct(ctx context.Context, productID string, qty int) error
}

// CartRepo holds the per-user mutable cart. TakeItems reads and clears the
// cart as one logical step so checkout cannot race a concurrent cart mutation.
type CartRepo interface {
	GetCart(ctx context.Context, userID string) (*models.Cart, error)
	SaveCart(ctx context.Context, cart *models.Cart) error
	TakeItems(ctx context.Context, userID string) ([]models.CartItem, error)
}

// OrderRepo persists orders. Mutate runs fn against the latest persisted copy
// of the order under a record-level lock and saves the result; refund
// accounting and confirm idempotency rely on this discipline.
type OrderRepo interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	GetOrderByIntentID(ctx context.Context, intentID string) (*models.Order, error)
	GetOrderByTransactionID(ctx context.Context, txID string) (*models.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error)
	ListPaidOrdersByUser(ctx context.Context, userID string, page Page) ([]models.Order, int, error)
	ListPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
	Mutate(ctx context.Context, id string, fn func(*models.Order) error) (*models.Order, error)
}

// PaymentRepo persists simulator-internal intents and transactions.
// MutateIntent gives confirm attempts a per-intent lock so a concurrent
// confirmation of the same intent cannot create two transactions.
type PaymentRepo interface {
	SaveIntent(ctx context.Context, intent *models.PaymentIntent) error
	GetIntent(ctx context.Context, id string) (*models.PaymentIntent, error)
	MutateIntent(ctx context.Context, id string, fn func(*models.PaymentIntent) error) (*models.PaymentIntent, error)
	SaveTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
}

// ShipmentRepo persists carrier-side shipment records. MutateShipment holds a
// record-level lock so tracking recomputation appends each status event once.
type ShipmentRepo interface {
	SaveShipment(ctx context.Context, shipment *models.Shipment) error
	GetShipment(ctx context.Context, id string) (*models.Shipment, error)
	GetShipmentByTracking(ctx context.Context, trackingNumber string) (*models.Shipment, error)
	MutateShipment(ctx context.Context, id string, fn func(*models.Shipment) error) (*models.Shipment, error)
}

// Store aggregates every repository behind one backing
type Store interface {
	ProductRepo
	CartRepo
	OrderRepo
	PaymentRepo
	ShipmentRepo
}
