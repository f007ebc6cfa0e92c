package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/ntalhaozcandev/basic-ecom-backend/internal/errs"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/models"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/store"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/util"
)

// CartService handles the per-user cart. Every operation is owner-scoped;
// the user id always comes from the authenticated identity, never the body.
type CartService struct {
	carts    store.CartRepo
	products store.ProductRepo
	logger   *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(carts store.CartRepo, products store.ProductRepo) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		logger:   util.GetLogger(),
	}
}

// GetCart returns the user's cart, an empty one if none exists yet
func (s *CartService) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	return s.carts.GetCart(ctx, userID)
}

// AddItem adds quantity of a product to the cart, merging with an existing line
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*models.Cart, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddItem")
	defer span.End()

	if quantity < 1 {
		return nil, errs.Validation("quantity must be at least 1")
	}

	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, errs.Conflict(errs.CodeInvalidProduct, "product %s is not active", productID)
	}

	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	merged := false
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		cart.Items = append(cart.Items, models.CartItem{ProductID: productID, Quantity: quantity})
	}

	if err := s.carts.SaveCart(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// SetQuantity sets the quantity of an existing cart line
func (s *CartService) SetQuantity(ctx context.Context, userID, productID string, quantity int) (*models.Cart, error) {
	ctx, span := util.StartSpan(ctx, "CartService.SetQuantity")
	defer span.End()

	if quantity < 1 {
		return nil, errs.Validation("quantity must be at least 1")
	}

	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items[i].Quantity = quantity
			if err := s.carts.SaveCart(ctx, cart); err != nil {
				return nil, err
			}
			return cart, nil
		}
	}
	return nil, errs.NotFound("item not found in cart: %s", productID)
}

// RemoveItem removes a product from the cart; removing an absent product is a no-op
func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) (*models.Cart, error) {
	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	kept := cart.Items[:0]
	for _, item := range cart.Items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	cart.Items = kept

	if err := s.carts.SaveCart(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// Clear empties the cart; clearing an already-empty cart is a no-op
func (s *CartService) Clear(ctx context.Context, userID string) error {
	_, err := s.carts.TakeItems(ctx, userID)
	return err
}
