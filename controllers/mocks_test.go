package controllers

import (
	"context"

	"github.com/yashrajoria/shopswift-api/models"
	"github.com/yashrajoria/shopswift-api/repository"
	"github.com/yashrajoria/shopswift-api/services"
)

type mockOrderService struct {
	PlaceOrderFn    func(ctx context.Context, identity models.Identity, req services.PlaceOrderRequest, key string) (*models.Order, bool, error)
	GetOrderByIDFn  func(ctx context.Context, identity models.Identity, orderID string) (*models.Order, error)
	GetMyOrdersFn   func(ctx context.Context, userID string, page repository.Page) ([]models.Order, int64, error)
	GetOrdersFn     func(ctx context.Context, identity models.Identity, page repository.Page) ([]models.OrderWithOwner, int64, error)
	MarkDeliveredFn func(ctx context.Context, identity models.Identity, orderID string) (*models.Order, error)
}

func (m *mockOrderService) PlaceOrder(ctx context.Context, identity models.Identity, req services.PlaceOrderRequest, key string) (*models.Order, bool, error) {
	return m.PlaceOrderFn(ctx, identity, req, key)
}

func (m *mockOrderService) GetOrderByID(ctx context.Context, identity models.Identity, orderID string) (*models.Order, error) {
	return m.GetOrderByIDFn(ctx, identity, orderID)
}

func (m *mockOrderService) GetMyOrders(ctx context.Context, userID string, page repository.Page) ([]models.Order, int64, error) {
	return m.GetMyOrdersFn(ctx, userID, page)
}

func (m *mockOrderService) GetOrders(ctx context.Context, identity models.Identity, page repository.Page) ([]models.OrderWithOwner, int64, error) {
	return m.GetOrdersFn(ctx, identity, page)
}

func (m *mockOrderService) MarkDelivered(ctx context.Context, identity models.Identity, orderID string) (*models.Order, error) {
	return m.MarkDeliveredFn(ctx, identity, orderID)
}

type mockCartService struct {
	GetCartFn    func(ctx context.Context, userID string) (*models.CartView, error)
	AddItemFn    func(ctx context.Context, userID, productID string, quantity int) (*models.CartView, error)
	UpdateItemFn func(ctx context.Context, userID, itemID string, quantity int) (*models.CartView, error)
	RemoveItemFn func(ctx context.Context, userID, itemID string) (*models.CartView, error)
}

func (m *mockCartService) GetCart(ctx context.Context, userID string) (*models.CartView, error) {
	return m.GetCartFn(ctx, userID)
}

func (m *mockCartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*models.CartView, error) {
	return m.AddItemFn(ctx, userID, productID, quantity)
}

func (m *mockCartService) UpdateItem(ctx context.Context, userID, itemID string, quantity int) (*models.CartView, error) {
	return m.UpdateItemFn(ctx, userID, itemID, quantity)
}

func (m *mockCartService) RemoveItem(ctx context.Context, userID, itemID string) (*models.CartView, error) {
	return m.RemoveItemFn(ctx, userID, itemID)
}
