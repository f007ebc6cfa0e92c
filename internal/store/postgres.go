package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/ntalhaozcandev/basic-ecom-backend/internal/errs"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// Postgres is the production Store backing. Orders, intents and shipments are
// stored as JSONB documents with the fields queries filter on lifted into
// indexed columns; record-level locking uses SELECT ... FOR UPDATE.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres connects, applies the schema and returns the store
func NewPostgres(databaseURL string) (*Postgres, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Postgres{db: db}, nil
}

// Close closes the database connection
func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := p.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("product not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (p *Postgres) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := p.db.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY id")
	return products, err
}

func (p *Postgres) GetProductsByIDs(ctx context.Context, ids []string) (map[string]*models.Product, error) {
	if len(ids) == 0 {
		return map[string]*models.Product{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM products WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = p.db.Rebind(query)

	var products []models.Product
	if err := p.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, err
	}

	out := make(map[string]*models.Product, len(products))
	for i := range products {
		out[products[i].ID] = &products[i]
	}
	return out, nil
}

// TryDecrementStock is a single conditional UPDATE; the stock >= qty guard in
// the WHERE clause makes the check-and-decrement atomic.
func (p *Postgres) TryDecrementStock(ctx context.Context, productID string, qty int) (bool, error) {
	res, err := p.db.ExecContext(ctx,
		"UPDATE products SET stock = stock - $1 WHERE id = $2 AND stock >= $1",
		qty, productID)
	if err != nil {
		return false, fmt.Errorf("failed to decrement stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (p *Postgres) RestockProduct(ctx context.Context, productID string, qty int) error {
	_, err := p.db.ExecContext(ctx,
		"UPDATE products SET stock = stock + $1 WHERE id = $2",
		qty, productID)
	return err
}

type cartRow struct {
	UserID    string    `db:"user_id"`
	Items     []byte    `db:"items"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (p *Postgres) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	var row cartRow
	err := p.db.GetContext(ctx, &row, "SELECT * FROM carts WHERE user_id = $1", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.Cart{UserID: userID, Items: []models.CartItem{}}, nil
	}
	if err != nil {
		return nil, err
	}

	cart := models.Cart{UserID: row.UserID, UpdatedAt: row.UpdatedAt}
	if err := json.Unmarshal(row.Items, &cart.Items); err != nil {
		return nil, fmt.Errorf("failed to decode cart items: %w", err)
	}
	return &cart, nil
}

func (p *Postgres) SaveCart(ctx context.Context, cart *models.Cart) error {
	items, err := json.Marshal(cart.Items)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO carts (user_id, items, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET items = $2, updated_at = NOW()`,
		cart.UserID, items)
	return err
}

// TakeItems reads and clears the cart in one transaction with the row locked
func (p *Postgres) TakeItems(ctx context.Context, userID string) ([]models.CartItem, error) {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var raw []byte
	err = tx.GetContext(ctx, &raw, "SELECT items FROM carts WHERE user_id = $1 FOR UPDATE", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return []models.CartItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock cart: %w", err)
	}

	var items []models.CartItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to decode cart items: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE carts SET items = '[]', updated_at = NOW() WHERE user_id = $1", userID); err != nil {
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return items, nil
}

func orderColumns(o *models.Order) (txID interface{}, doc []byte, err error) {
	doc, err = json.Marshal(o)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode order: %w", err)
	}
	if o.PaymentInfo != nil {
		txID = o.PaymentInfo.TransactionID
	}
	return txID, doc, nil
}

func (p *Postgres) CreateOrder(ctx context.Context, order *models.Order) error {
	txID, doc, err := orderColumns(order)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, status, payment_status, total, intent_id, transaction_id, doc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		order.ID, order.UserID, order.Status, order.PaymentStatus, order.Total,
		order.IntentID, txID, doc, order.CreatedAt, order.UpdatedAt)
	return err
}

func (p *Postgres) scanOrder(ctx context.Context, query string, args ...interface{}) (*models.Order, error) {
	var doc []byte
	err := p.db.GetContext(ctx, &doc, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("order not found")
	}
	if err != nil {
		return nil, err
	}
	var order models.Order
	if err := json.Unmarshal(doc, &order); err != nil {
		return nil, fmt.Errorf("failed to decode order: %w", err)
	}
	return &order, nil
}

func (p *Postgres) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return p.scanOrder(ctx, "SELECT doc FROM orders WHERE id = $1", id)
}

func (p *Postgres) GetOrderByIntentID(ctx context.Context, intentID string) (*models.Order, error) {
	return p.scanOrder(ctx, "SELECT doc FROM orders WHERE intent_id = $1", intentID)
}

func (p *Postgres) GetOrderByTransactionID(ctx context.Context, txID string) (*models.Order, error) {
	return p.scanOrder(ctx, "SELECT doc FROM orders WHERE transaction_id = $1", txID)
}

func (p *Postgres) selectOrders(ctx context.Context, query string, args ...interface{}) ([]models.Order, error) {
	var docs [][]byte
	if err := p.db.SelectContext(ctx, &docs, query, args...); err != nil {
		return nil, err
	}
	orders := make([]models.Order, 0, len(docs))
	for _, doc := range docs {
		var order models.Order
		if err := json.Unmarshal(doc, &order); err != nil {
			return nil, fmt.Errorf("failed to decode order: %w", err)
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (p *Postgres) ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	if filter.Status != nil {
		return p.selectOrders(ctx,
			"SELECT doc FROM orders WHERE status = $1 ORDER BY created_at DESC", *filter.Status)
	}
	return p.selectOrders(ctx, "SELECT doc FROM orders ORDER BY created_at DESC")
}

func (p *Postgres) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	return p.selectOrders(ctx,
		"SELECT doc FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
}

func (p *Postgres) ListPaidOrdersByUser(ctx context.Context, userID string, page Page) ([]models.Order, int, error) {
	var total int
	if err := p.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM orders WHERE user_id = $1 AND transaction_id IS NOT NULL", userID); err != nil {
		return nil, 0, err
	}

	limit := page.Limit
	if limit <= 0 {
		limit = total
	}
	orders, err := p.selectOrders(ctx, `
		SELECT doc FROM orders WHERE user_id = $1 AND transaction_id IS NOT NULL
		ORDER BY created_at DESC OFFSET $2 LIMIT $3`, userID, page.Offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (p *Postgres) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	return p.selectOrders(ctx,
		"SELECT doc FROM orders WHERE status = $1 AND created_at < $2 ORDER BY created_at DESC",
		models.OrderStatusPending, cutoff)
}

// Mutate loads the order FOR UPDATE, applies fn and writes the result back,
// so concurrent mutations of the same order serialize at the row.
func (p *Postgres) Mutate(ctx context.Context, id string, fn func(*models.Order) error) (*models.Order, error) {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var doc []byte
	err = tx.GetContext(ctx, &doc, "SELECT doc FROM orders WHERE id = $1 FOR UPDATE", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("order not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}

	var order models.Order
	if err := json.Unmarshal(doc, &order); err != nil {
		return nil, fmt.Errorf("failed to decode order: %w", err)
	}

	if err := fn(&order); err != nil {
		return nil, err
	}
	order.UpdatedAt = time.Now()

	txID, newDoc, err := orderColumns(&order)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = $1, payment_status = $2, total = $3, intent_id = $4,
		transaction_id = $5, doc = $6, updated_at = $7 WHERE id = $8`,
		order.Status, order.PaymentStatus, order.Total, order.IntentID,
		txID, newDoc, order.UpdatedAt, id); err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &order, nil
}

func (p *Postgres) saveDoc(ctx context.Context, table, id string, v interface{}) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, doc) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET doc = $2`, table), id, doc)
	return err
}

func (p *Postgres) getDoc(ctx context.Context, query, id string, v interface{}, notFound string) error {
	var doc []byte
	err := p.db.GetContext(ctx, &doc, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return errs.NotFound("%s: %s", notFound, id)
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(doc, v)
}

func (p *Postgres) SaveIntent(ctx context.Context, intent *models.PaymentIntent) error {
	return p.saveDoc(ctx, "payment_intents", intent.ID, intent)
}

func (p *Postgres) GetIntent(ctx context.Context, id string) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	if err := p.getDoc(ctx, "SELECT doc FROM payment_intents WHERE id = $1", id, &intent, "payment intent not found"); err != nil {
		return nil, err
	}
	return &intent, nil
}

func (p *Postgres) MutateIntent(ctx context.Context, id string, fn func(*models.PaymentIntent) error) (*models.PaymentIntent, error) {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var doc []byte
	err = tx.GetContext(ctx, &doc, "SELECT doc FROM payment_intents WHERE id = $1 FOR UPDATE", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("payment intent not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock intent: %w", err)
	}

	var intent models.PaymentIntent
	if err := json.Unmarshal(doc, &intent); err != nil {
		return nil, fmt.Errorf("failed to decode intent: %w", err)
	}
	if err := fn(&intent); err != nil {
		return nil, err
	}

	newDoc, err := json.Marshal(&intent)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE payment_intents SET doc = $1 WHERE id = $2", newDoc, id); err != nil {
		return nil, fmt.Errorf("failed to update intent: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &intent, nil
}

func (p *Postgres) SaveTransaction(ctx context.Context, txn *models.Transaction) error {
	return p.saveDoc(ctx, "transactions", txn.ID, txn)
}

func (p *Postgres) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	var txn models.Transaction
	if err := p.getDoc(ctx, "SELECT doc FROM transactions WHERE id = $1", id, &txn, "transaction not found"); err != nil {
		return nil, err
	}
	return &txn, nil
}

func (p *Postgres) SaveShipment(ctx context.Context, shipment *models.Shipment) error {
	doc, err := json.Marshal(shipment)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO shipments (id, tracking_number, doc) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET tracking_number = $2, doc = $3`,
		shipment.ID, shipment.TrackingNumber, doc)
	return err
}

func (p *Postgres) GetShipment(ctx context.Context, id string) (*models.Shipment, error) {
	var shipment models.Shipment
	if err := p.getDoc(ctx, "SELECT doc FROM shipments WHERE id = $1", id, &shipment, "shipment not found"); err != nil {
		return nil, err
	}
	return &shipment, nil
}

func (p *Postgres) GetShipmentByTracking(ctx context.Context, trackingNumber string) (*models.Shipment, error) {
	var shipment models.Shipment
	if err := p.getDoc(ctx, "SELECT doc FROM shipments WHERE tracking_number = $1", trackingNumber, &shipment, "tracking number not found"); err != nil {
		return nil, err
	}
	return &shipment, nil
}

func (p *Postgres) MutateShipment(ctx context.Context, id string, fn func(*models.Shipment) error) (*models.Shipment, error) {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var doc []byte
	err = tx.GetContext(ctx, &doc, "SELECT doc FROM shipments WHERE id = $1 FOR UPDATE", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("shipment not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock shipment: %w", err)
	}

	var shipment models.Shipment
	if err := json.Unmarshal(doc, &shipment); err != nil {
		return nil, fmt.Errorf("failed to decode shipment: %w", err)
	}
	if err := fn(&shipment); err != nil {
		return nil, err
	}

	newDoc, err := json.Marshal(&shipment)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE shipments SET tracking_number = $1, doc = $2 WHERE id = $3",
		shipment.TrackingNumber, newDoc, id); err != nil {
		return nil, fmt.Errorf("failed to update shipment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &shipment, nil
}
