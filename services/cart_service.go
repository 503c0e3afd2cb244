package services

import (
	"context"
	"errors"

	apperrors "github.com/yashrajoria/shopswift-api/common/errors"
	"github.com/yashrajoria/shopswift-api/common/logger"
	"github.com/yashrajoria/shopswift-api/models"
	"github.com/yashrajoria/shopswift-api/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var errCartChanged = apperrors.Conflict("Cart was modified concurrently, please retry", nil)

// CartService manages the caller's cart. Every mutation returns the cart as
// it is after the write, with products resolved.
type CartService interface {
	GetCart(ctx context.Context, userID string) (*models.CartView, error)
	AddItem(ctx context.Context, userID, productID string, quantity int) (*models.CartView, error)
	UpdateItem(ctx context.Context, userID, itemID string, quantity int) (*models.CartView, error)
	RemoveItem(ctx context.Context, userID, itemID string) (*models.CartView, error)
}

type cartServiceImpl struct {
	carts    repository.CartRepo
	products repository.ProductRepo
}

func NewCartService(carts repository.CartRepo, products repository.ProductRepo) CartService {
	return &cartServiceImpl{carts: carts, products: products}
}

func (s *cartServiceImpl) GetCart(ctx context.Context, userID string) (*models.CartView, error) {
	view, err := s.carts.FindWithProducts(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return &models.CartView{
			Cart:  models.Cart{UserID: userID, Items: []models.CartItem{}},
			Lines: []models.CartLine{},
		}, nil
	}
	if err != nil {
		return nil, s.storageFailure(ctx, "Failed to load cart", err)
	}
	return view, nil
}

func (s *cartServiceImpl) AddItem(ctx context.Context, userID, productID string, quantity int) (*models.CartView, error) {
	product, err := s.findProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	cart, err := s.carts.FindByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		cart = &models.Cart{UserID: userID}
	} else if err != nil {
		return nil, s.storageFailure(ctx, "Failed to load cart", err)
	}

	merged := false
	for i := range cart.Items {
		if cart.Items[i].Product == product.ID {
			quantity += cart.Items[i].Quantity
			if quantity > product.Stock {
				return nil, apperrors.InsufficientStock(product.Name)
			}
			cart.Items[i].Quantity = quantity
			merged = true
			break
		}
	}
	if !merged {
		if quantity > product.Stock {
			return nil, apperrors.InsufficientStock(product.Name)
		}
		cart.Items = append(cart.Items, models.CartItem{
			ID:       primitive.NewObjectID(),
			Product:  product.ID,
			Quantity: quantity,
		})
	}

	return s.save(ctx, cart)
}

func (s *cartServiceImpl) UpdateItem(ctx context.Context, userID, itemID string, quantity int) (*models.CartView, error) {
	cart, idx, err := s.findItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	product, err := s.products.FindByID(ctx, cart.Items[idx].Product)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("Product")
	}
	if err != nil {
		return nil, s.storageFailure(ctx, "Failed to load product", err)
	}
	if quantity > product.Stock {
		return nil, apperrors.InsufficientStock(product.Name)
	}

	cart.Items[idx].Quantity = quantity
	return s.save(ctx, cart)
}

func (s *cartServiceImpl) RemoveItem(ctx context.Context, userID, itemID string) (*models.CartView, error) {
	cart, idx, err := s.findItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	return s.save(ctx, cart)
}

func (s *cartServiceImpl) findProduct(ctx context.Context, productID string) (*models.Product, error) {
	id, err := primitive.ObjectIDFromHex(productID)
	if err != nil {
		return nil, apperrors.NotFound("Product")
	}
	product, err := s.products.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("Product")
	}
	if err != nil {
		return nil, s.storageFailure(ctx, "Failed to load product", err)
	}
	return product, nil
}

func (s *cartServiceImpl) findItem(ctx context.Context, userID, itemID string) (*models.Cart, int, error) {
	id, err := primitive.ObjectIDFromHex(itemID)
	if err != nil {
		return nil, 0, apperrors.NotFound("Cart item")
	}
	cart, err := s.carts.FindByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, 0, apperrors.NotFound("Cart item")
	}
	if err != nil {
		return nil, 0, s.storageFailure(ctx, "Failed to load cart", err)
	}
	for i, item := range cart.Items {
		if item.ID == id {
			return cart, i, nil
		}
	}
	return nil, 0, apperrors.NotFound("Cart item")
}

func (s *cartServiceImpl) save(ctx context.Context, cart *models.Cart) (*models.CartView, error) {
	if err := s.carts.Save(ctx, cart); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			logger.Warn(ctx, "Cart version conflict", zap.String("user_id", cart.UserID))
			return nil, errCartChanged
		}
		return nil, s.storageFailure(ctx, "Failed to save cart", err)
	}
	return s.GetCart(ctx, cart.UserID)
}

func (s *cartServiceImpl) storageFailure(ctx context.Context, msg string, err error) error {
	logger.Error(ctx, msg, err)
	return apperrors.StorageFailure(err)
}
