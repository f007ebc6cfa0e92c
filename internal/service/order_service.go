package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ntalhaozcandev/basic-ecom-backend/internal/auth"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/broker"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/errs"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/inventory"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/models"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/store"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/util"
)

// OrderService owns the checkout workflow and the order status state machine
type OrderService struct {
	orders   store.OrderRepo
	carts    store.CartRepo
	products store.ProductRepo
	ledger   *inventory.Ledger
	events   *broker.EventPublisher
	clock    util.Clock
	logger   *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(
	orders store.OrderRepo,
	carts store.CartRepo,
	products store.ProductRepo,
	ledger *inventory.Ledger,
	events *broker.EventPublisher,
	clock util.Clock,
) *OrderService {
	return &OrderService{
		orders:   orders,
		carts:    carts,
		products: products,
		ledger:   ledger,
		events:   events,
		clock:    clock,
		logger:   util.GetLogger(),
	}
}

// CheckoutRequest carries the addresses and payment method for a checkout
type CheckoutRequest struct {
	ShippingAddress models.Address `json:"shipping_address" binding:"required"`
	BillingAddress  models.Address `json:"billing_address" binding:"required"`
	PaymentMethod   string         `json:"payment_method"`
}

// Checkout converts the user's cart into a durable order. The cart is taken
// (read and cleared) as one step so a concurrent cart mutation cannot be lost;
// any failure after that restores the cart and compensates completed stock
// decrements, so overall failure leaves stock and cart unchanged.
func (s *OrderService) Checkout(ctx context.Context, userID string, req *CheckoutRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Checkout")
	defer span.End()

	items, err := s.carts.TakeItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		util.CheckoutsFailedTotal.WithLabelValues("empty_cart").Inc()
		return nil, errs.Conflict(errs.CodeEmptyCart, "cart is empty")
	}

	restoreCart := func() {
		cart := &models.Cart{UserID: userID, Items: items, UpdatedAt: s.clock.Now()}
		if err := s.carts.SaveCart(ctx, cart); err != nil {
			s.logger.Error("Failed to restore cart after checkout failure",
				zap.String("user_id", userID),
				zap.Error(err))
		}
	}

	snapshot, err := s.buildSnapshot(ctx, items)
	if err != nil {
		restoreCart()
		util.CheckoutsFailedTotal.WithLabelValues(errs.CodeOf(err)).Inc()
		return nil, err
	}

	if err := s.ledger.ReserveAll(ctx, items); err != nil {
		restoreCart()
		util.CheckoutsFailedTotal.WithLabelValues(errs.CodeOf(err)).Inc()
		return nil, err
	}

	now := s.clock.Now()
	order := &models.Order{
		ID:              uuid.New().String(),
		UserID:          userID,
		Status:          models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusUnpaid,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		PaymentMethod:   req.PaymentMethod,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	order.SetItems(snapshot)

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		s.ledger.ReleaseAll(ctx, items)
		restoreCart()
		util.CheckoutsFailedTotal.WithLabelValues("persist_error").Inc()
		return nil, errs.Internal(err)
	}

	util.CheckoutsTotal.Inc()
	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("user_id", userID),
		zap.Int64("total", order.Total))

	s.events.PublishOrderCreated(ctx, &models.OrderCreatedEvent{
		BaseEvent: broker.NewBaseEvent(models.EventTypeOrderCreated),
		OrderID:   order.ID,
		UserID:    order.UserID,
		Total:     order.Total,
		Items:     order.Items,
	})

	return order, nil
}

// buildSnapshot validates every line item against the live catalog and fixes
// prices and titles. Validation happens before any stock mutation.
func (s *OrderService) buildSnapshot(ctx context.Context, items []models.CartItem) ([]models.OrderItem, error) {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}

	products, err := s.products.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	snapshot := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		product, ok := products[item.ProductID]
		if !ok || !product.IsActive {
			return nil, errs.Conflict(errs.CodeInvalidProduct,
				"invalid product in cart: %s", item.ProductID)
		}
		if product.Stock < item.Quantity {
			return nil, errs.Conflict(errs.CodeInsufficientStock,
				"insufficient stock for product %s", product.Title)
		}
		snapshot = append(snapshot, models.OrderItem{
			ProductID: product.ID,
			Title:     product.Title,
			UnitPrice: product.Price,
			Quantity:  item.Quantity,
		})
	}
	return snapshot, nil
}

// GetOrder returns the order if the requester owns it or is an admin
func (s *OrderService) GetOrder(ctx context.Context, orderID string, requester auth.Identity) (*models.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !requester.CanAccess(order.UserID) {
		return nil, errs.Forbidden("you do not have access to this order")
	}
	return order, nil
}

// ListOrders is the administrative listing, newest first, optionally filtered by status
func (s *OrderService) ListOrders(ctx context.Context, status string, requester auth.Identity) ([]models.Order, error) {
	if !requester.IsAdmin() {
		return nil, errs.Forbidden("admin role required")
	}

	filter := store.OrderFilter{}
	if status != "" {
		parsed, err := models.ParseOrderStatus(status)
		if err != nil {
			return nil, errs.Validation("invalid status filter: %s", status)
		}
		filter.Status = &parsed
	}
	return s.orders.ListOrders(ctx, filter)
}

// ListMyOrders returns the requester's own orders, newest first
func (s *OrderService) ListMyOrders(ctx context.Context, requester auth.Identity) ([]models.Order, error) {
	return s.orders.ListOrdersByUser(ctx, requester.UserID)
}

// UpdateStatus is the administrative status override. Transitions are checked
// against the legal-transition table; arbitrary enum writes are rejected.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID, newStatus string, requester auth.Identity) (*models.Order, error) {
	if !requester.IsAdmin() {
		return nil, errs.Forbidden("admin role required")
	}

	status, err := models.ParseOrderStatus(newStatus)
	if err != nil {
		return nil, errs.Validation("invalid order status: %s", newStatus)
	}

	return s.orders.Mutate(ctx, orderID, func(o *models.Order) error {
		if o.Status == status {
			return nil
		}
		if !o.Status.CanTransitionTo(status) {
			return errs.Conflict(errs.CodeIllegalTransition,
				"illegal status transition: %s -> %s", o.Status, status)
		}
		o.Status = status
		return nil
	})
}

// ExpirePending cancels pending orders created before cutoff, returning their
// reserved stock. Called by the expiry worker.
func (s *OrderService) ExpirePending(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := s.orders.ListPendingBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, o := range stale {
		var restock []models.CartItem
		_, err := s.orders.Mutate(ctx, o.ID, func(order *models.Order) error {
			if order.Status != models.OrderStatusPending {
				return errs.Conflict(errs.CodeIllegalTransition, "order no longer pending")
			}
			order.Status = models.OrderStatusCanceled
			restock = make([]models.CartItem, 0, len(order.Items))
			for _, item := range order.Items {
				restock = append(restock, models.CartItem{ProductID: item.ProductID, Quantity: item.Quantity})
			}
			return nil
		})
		if err != nil {
			continue
		}

		s.ledger.ReleaseAll(ctx, restock)
		util.OrdersExpiredTotal.Inc()
		expired++

		s.events.PublishOrderExpired(ctx, &models.OrderExpiredEvent{
			BaseEvent: broker.NewBaseEvent(models.EventTypeOrderExpired),
			OrderID:   o.ID,
			UserID:    o.UserID,
		})
		s.logger.Info("Expired pending order", zap.String("order_id", o.ID))
	}
	return expired, nil
}
