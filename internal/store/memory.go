package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ntalhaozcandev/basic-ecom-backend/internal/errs"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/models"
)

// Memory is the in-memory Store backing. It is the default when no database
// is configured and the backing every unit test runs against.
type Memory struct {
	productsMu  sync.Mutex
	products    map[string]*models.Product
	cartsMu     sync.Mutex
	carts       map[string]*models.Cart
	ordersMu    sync.Mutex
	orders      map[string]*models.Order
	paymentsMu  sync.Mutex
	intents     map[string]*models.PaymentIntent
	txns        map[string]*models.Transaction
	shipmentsMu sync.Mutex
	shipments   map[string]*models.Shipment
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		products:  make(map[string]*models.Product),
		carts:     make(map[string]*models.Cart),
		orders:    make(map[string]*models.Order),
		intents:   make(map[string]*models.PaymentIntent),
		txns:      make(map[string]*models.Transaction),
		shipments: make(map[string]*models.Shipment),
	}
}

// SeedProducts loads catalog products; the catalog itself is owned elsewhere
func (m *Memory) SeedProducts(products []models.Product) {
	m.productsMu.Lock()
	defer m.productsMu.Unlock()
	for i := range products {
		p := products[i]
		m.products[p.ID] = &p
	}
}

func (m *Memory) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	m.productsMu.Lock()
	defer m.productsMu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, errs.NotFound("product not found: %s", id)
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) ListProducts(ctx context.Context) ([]models.Product, error) {
	m.productsMu.Lock()
	defer m.productsMu.Unlock()
	out := make([]models.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetProductsByIDs(ctx context.Context, ids []string) (map[string]*models.Product, error) {
	m.productsMu.Lock()
	defer m.productsMu.Unlock()
	out := make(map[string]*models.Product, len(ids))
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

func (m *Memory) TryDecrementStock(ctx context.Context, productID string, qty int) (bool, error) {
	m.productsMu.Lock()
	defer m.productsMu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return false, errs.NotFound("product not found: %s", productID)
	}
	if p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	return true, nil
}

func (m *Memory) RestockProduct(ctx context.Context, productID string, qty int) error {
	m.productsMu.Lock()
	defer m.productsMu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return errs.NotFound("product not found: %s", productID)
	}
	p.Stock += qty
	return nil
}

func copyCart(c *models.Cart) *models.Cart {
	cp := *c
	cp.Items = append([]models.CartItem(nil), c.Items...)
	return &cp
}

func (m *Memory) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	m.cartsMu.Lock()
	defer m.cartsMu.Unlock()
	c, ok := m.carts[userID]
	if !ok {
		return &models.Cart{UserID: userID, Items: []models.CartItem{}}, nil
	}
	return copyCart(c), nil
}

func (m *Memory) SaveCart(ctx context.Context, cart *models.Cart) error {
	m.cartsMu.Lock()
	defer m.cartsMu.Unlock()
	m.carts[cart.UserID] = copyCart(cart)
	return nil
}

func (m *Memory) TakeItems(ctx context.Context, userID string) ([]models.CartItem, error) {
	m.cartsMu.Lock()
	defer m.cartsMu.Unlock()
	c, ok := m.carts[userID]
	if !ok {
		return []models.CartItem{}, nil
	}
	items := c.Items
	c.Items = []models.CartItem{}
	c.UpdatedAt = time.Now()
	return items, nil
}

func copyOrder(o *models.Order) *models.Order {
	cp := *o
	cp.Items = append([]models.OrderItem(nil), o.Items...)
	cp.Refunds = append([]models.Refund(nil), o.Refunds...)
	cp.PaymentHistory = append([]models.PaymentEvent(nil), o.PaymentHistory...)
	cp.ShippingHistory = append([]models.ShippingEvent(nil), o.ShippingHistory...)
	if o.PaymentInfo != nil {
		pi := *o.PaymentInfo
		cp.PaymentInfo = &pi
	}
	if o.ShippingInfo != nil {
		si := *o.ShippingInfo
		cp.ShippingInfo = &si
	}
	return &cp
}

func (m *Memory) CreateOrder(ctx context.Context, order *models.Order) error {
	m.ordersMu.Lock()
	defer m.ordersMu.Unlock()
	m.orders[order.ID] = copyOrder(order)
	return nil
}

func (m *Memory) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	m.ordersMu.Lock()
	defer m.ordersMu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, errs.NotFound("order not found: %s", id)
	}
	return copyOrder(o), nil
}

func (m *Memory) GetOrderByIntentID(ctx context.Context, intentID string) (*models.Order, error) {
	m.ordersMu.Lock()
	defer m.ordersMu.Unlock()
	for _, o := range m.orders {
		if o.IntentID == intentID {
			return copyOrder(o), nil
		}
	}
	return nil, errs.NotFound("order not found for intent: %s", intentID)
}

func (m *Memory) GetOrderByTransactionID(ctx context.Context, txID string) (*models.Order, error) {
	m.ordersMu.Lock()
	defer m.ordersMu.Unlock()
	for _, o := range m.orders {
		if o.PaymentInfo != nil && o.PaymentInfo.TransactionID == txID {
			return copyOrder(o), nil
		}
	}
	return nil, errs.NotFound("order not found for transaction: %s", txID)
}

func sortOrdersDesc(orders []models.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID > orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

func (m *Memory) ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	m.ordersMu.Lock()
	defer m.ordersMu.Unlock()
	out := make([]models.Order, 0, len(m.orders))
	for _, o := range m.orders {
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		out = append(out, *copyOrder(o))
	}
	sortOrdersDesc(out)
	return out, nil
}

func (m *Memory) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	m.ordersMu.Lock()
	defer m.ordersMu.Unlock()
	out := make([]models.Order, 0)
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *copyOrder(o))
		}
	}
	sortOrdersDesc(out)
	return out, nil
}

func (m *Memory) ListPaidOrdersByUser(ctx context.Context, userID string, page Page) ([]models.Order, int, error) {
	m.ordersMu.Lock()
	defer m.ordersMu.Unlock()
	all := make([]models.Order, 0)
	for _, o := range m.orders {
		if o.UserID == userID && o.PaymentInfo != nil {
			all = append(all, *copyOrder(o))
		}
	}
	sortOrdersDesc(all)
	total := len(all)
	if page.Offset >= total {
		return []models.Order{}, total, nil
	}
	end := page.Offset + page.Limit
	if page.Limit <= 0 || end > total {
		end = total
	}
	return all[page.Offset:end], total, nil
}

func (m *Memory) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	m.ordersMu.Lock()
	defer m.ordersMu.Unlock()
	out := make([]models.Order, 0)
	for _, o := range m.orders {
		if o.Status == models.OrderStatusPending && o.CreatedAt.Before(cutoff) {
			out = append(out, *copyOrder(o))
		}
	}
	sortOrdersDesc(out)
	return out, nil
}

func (m *Memory) Mutate(ctx context.Context, id string, fn func(*models.Order) error) (*models.Order, error) {
	m.ordersMu.Lock()
	defer m.ordersMu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, errs.NotFound("order not found: %s", id)
	}
	working := copyOrder(o)
	if err := fn(working); err != nil {
		return nil, err
	}
	working.UpdatedAt = time.Now()
	m.orders[id] = working
	return copyOrder(working), nil
}

func copyIntent(in *models.PaymentIntent) *models.PaymentIntent {
	cp := *in
	if in.Metadata != nil {
		cp.Metadata = make(map[string]string, len(in.Metadata))
		for k, v := range in.Metadata {
			cp.Metadata[k] = v
		}
	}
	if in.LastError != nil {
		le := *in.LastError
		cp.LastError = &le
	}
	return &cp
}

func (m *Memory) SaveIntent(ctx context.Context, intent *models.PaymentIntent) error {
	m.paymentsMu.Lock()
	defer m.paymentsMu.Unlock()
	m.intents[intent.ID] = copyIntent(intent)
	return nil
}

func (m *Memory) GetIntent(ctx context.Context, id string) (*models.PaymentIntent, error) {
	m.paymentsMu.Lock()
	defer m.paymentsMu.Unlock()
	in, ok := m.intents[id]
	if !ok {
		return nil, errs.NotFound("payment intent not found: %s", id)
	}
	return copyIntent(in), nil
}

func (m *Memory) MutateIntent(ctx context.Context, id string, fn func(*models.PaymentIntent) error) (*models.PaymentIntent, error) {
	m.paymentsMu.Lock()
	defer m.paymentsMu.Unlock()
	in, ok := m.intents[id]
	if !ok {
		return nil, errs.NotFound("payment intent not found: %s", id)
	}
	working := copyIntent(in)
	if err := fn(working); err != nil {
		return nil, err
	}
	m.intents[id] = working
	return copyIntent(working), nil
}

func (m *Memory) SaveTransaction(ctx context.Context, tx *models.Transaction) error {
	m.paymentsMu.Lock()
	defer m.paymentsMu.Unlock()
	cp := *tx
	m.txns[tx.ID] = &cp
	return nil
}

func (m *Memory) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	m.paymentsMu.Lock()
	defer m.paymentsMu.Unlock()
	tx, ok := m.txns[id]
	if !ok {
		return nil, errs.NotFound("transaction not found: %s", id)
	}
	cp := *tx
	return &cp, nil
}

func copyShipment(s *models.Shipment) *models.Shipment {
	cp := *s
	cp.Events = append([]models.ShippingEvent(nil), s.Events...)
	return &cp
}

func (m *Memory) SaveShipment(ctx context.Context, shipment *models.Shipment) error {
	m.shipmentsMu.Lock()
	defer m.shipmentsMu.Unlock()
	m.shipments[shipment.ID] = copyShipment(shipment)
	return nil
}

func (m *Memory) GetShipment(ctx context.Context, id string) (*models.Shipment, error) {
	m.shipmentsMu.Lock()
	defer m.shipmentsMu.Unlock()
	s, ok := m.shipments[id]
	if !ok {
		return nil, errs.NotFound("shipment not found: %s", id)
	}
	return copyShipment(s), nil
}

func (m *Memory) GetShipmentByTracking(ctx context.Context, trackingNumber string) (*models.Shipment, error) {
	m.shipmentsMu.Lock()
	defer m.shipmentsMu.Unlock()
	for _, s := range m.shipments {
		if s.TrackingNumber == trackingNumber {
			return copyShipment(s), nil
		}
	}
	return nil, errs.NotFound("tracking number not found: %s", trackingNumber)
}

func (m *Memory) MutateShipment(ctx context.Context, id string, fn func(*models.Shipment) error) (*models.Shipment, error) {
	m.shipmentsMu.Lock()
	defer m.shipmentsMu.Unlock()
	s, ok := m.shipments[id]
	if !ok {
		return nil, errs.NotFound("shipment not found: %s", id)
	}
	working := copyShipment(s)
	if err := fn(working); err != nil {
		return nil, err
	}
	m.shipments[id] = working
	return copyShipment(working), nil
}
