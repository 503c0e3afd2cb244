package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/yashrajoria/shopswift-api/common/errors"
	"github.com/yashrajoria/shopswift-api/models"
	"github.com/yashrajoria/shopswift-api/repository"
	"github.com/yashrajoria/shopswift-api/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const validOrderBody = `{
	"shippingAddress": {"address": "1 Main St", "city": "Springfield", "postalCode": "12345", "country": "US"},
	"paymentMethod": "PayPal"
}`

func setupOrderRouter(svc services.OrderService, userID, role string) *gin.Engine {
	r := gin.New()
	r.Use(apperrors.ErrorMiddleware())
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set("userID", userID)
			c.Set("role", role)
		}
		c.Next()
	})
	ctrl := NewOrderController(svc)
	r.POST("/api/orders", ctrl.CreateOrder)
	r.GET("/api/orders", ctrl.GetOrders)
	r.GET("/api/orders/myorders", ctrl.GetMyOrders)
	r.GET("/api/orders/:id", ctrl.GetOrderByID)
	r.PUT("/api/orders/:id/deliver", ctrl.MarkDelivered)
	return r
}

func do(r *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apperrors.Error {
	t.Helper()
	var body apperrors.Error
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestCreateOrder(t *testing.T) {
	orderID := primitive.NewObjectID()

	tests := []struct {
		name         string
		body         string
		key          string
		replayed     bool
		serviceErr   error
		wantStatus   int
		wantMessage  string
		wantFields   map[string]string
		expectCalled bool
	}{
		{
			name:         "created",
			body:         validOrderBody,
			wantStatus:   http.StatusCreated,
			expectCalled: true,
		},
		{
			name:         "idempotent replay",
			body:         validOrderBody,
			key:          "k-1",
			replayed:     true,
			wantStatus:   http.StatusOK,
			expectCalled: true,
		},
		{
			name:       "missing fields",
			body:       `{"shippingAddress": {"address": "1 Main St"}}`,
			wantStatus: http.StatusBadRequest,
			wantFields: map[string]string{
				"shippingAddress.city":       "is required",
				"shippingAddress.postalCode": "is required",
				"shippingAddress.country":    "is required",
				"paymentMethod":              "is required",
			},
		},
		{
			name:       "malformed json",
			body:       `{"shippingAddress":`,
			wantStatus: http.StatusBadRequest,
			wantFields: map[string]string{"body": "must be valid JSON"},
		},
		{
			name:         "empty cart",
			body:         validOrderBody,
			serviceErr:   apperrors.ErrEmptyCart,
			wantStatus:   http.StatusBadRequest,
			wantMessage:  "No items in cart",
			expectCalled: true,
		},
		{
			name:         "insufficient stock",
			body:         validOrderBody,
			serviceErr:   apperrors.InsufficientStock("Lamp"),
			wantStatus:   http.StatusBadRequest,
			wantMessage:  "Product Lamp is not available in the requested quantity",
			expectCalled: true,
		},
		{
			name:         "cart conflict",
			body:         validOrderBody,
			serviceErr:   apperrors.ErrCartConflict,
			wantStatus:   http.StatusConflict,
			expectCalled: true,
		},
		{
			name:         "unexpected error is hidden",
			body:         validOrderBody,
			serviceErr:   errors.New("mongo: connection reset"),
			wantStatus:   http.StatusInternalServerError,
			wantMessage:  "Server error",
			expectCalled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			svc := &mockOrderService{
				PlaceOrderFn: func(_ context.Context, identity models.Identity, req services.PlaceOrderRequest, key string) (*models.Order, bool, error) {
					called = true
					assert.Equal(t, "alice", identity.UserID)
					assert.Equal(t, "PayPal", req.PaymentMethod)
					assert.Equal(t, "Springfield", req.ShippingAddress.City)
					assert.Equal(t, tt.key, key)
					if tt.serviceErr != nil {
						return nil, false, tt.serviceErr
					}
					return &models.Order{ID: orderID, UserID: identity.UserID}, tt.replayed, nil
				},
			}
			r := setupOrderRouter(svc, "alice", models.RoleUser)

			headers := map[string]string{}
			if tt.key != "" {
				headers[IdempotencyKeyHeader] = tt.key
			}
			w := do(r, http.MethodPost, "/api/orders", tt.body, headers)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.expectCalled, called)
			if w.Code >= 400 {
				body := decodeError(t, w)
				assert.Equal(t, tt.wantStatus, body.Code)
				if tt.wantMessage != "" {
					assert.Equal(t, tt.wantMessage, body.Message)
				}
				if tt.wantFields != nil {
					assert.Equal(t, tt.wantFields, body.Fields)
				}
				assert.NotContains(t, w.Body.String(), "connection reset")
				return
			}
			var order models.Order
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
			assert.Equal(t, orderID, order.ID)
		})
	}
}

func TestCreateOrder_Unauthenticated(t *testing.T) {
	r := setupOrderRouter(&mockOrderService{}, "", "")

	w := do(r, http.MethodPost, "/api/orders", validOrderBody, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateOrder_IdempotencyKeyTooLong(t *testing.T) {
	r := setupOrderRouter(&mockOrderService{}, "alice", models.RoleUser)

	w := do(r, http.MethodPost, "/api/orders", validOrderBody, map[string]string{
		IdempotencyKeyHeader: strings.Repeat("x", 200),
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w).Fields, IdempotencyKeyHeader)
}

func TestGetOrderByID(t *testing.T) {
	orderID := primitive.NewObjectID()
	svc := &mockOrderService{
		GetOrderByIDFn: func(_ context.Context, identity models.Identity, id string) (*models.Order, error) {
			switch {
			case id == "missing":
				return nil, apperrors.NotFound("Order")
			case identity.UserID == "bob":
				return nil, apperrors.ErrForbidden
			}
			return &models.Order{ID: orderID, UserID: "alice"}, nil
		},
	}

	w := do(setupOrderRouter(svc, "alice", models.RoleUser), http.MethodGet, "/api/orders/"+orderID.Hex(), "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), orderID.Hex())

	w = do(setupOrderRouter(svc, "bob", models.RoleUser), http.MethodGet, "/api/orders/"+orderID.Hex(), "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(setupOrderRouter(svc, "alice", models.RoleUser), http.MethodGet, "/api/orders/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Order not found", decodeError(t, w).Message)
}

func TestGetMyOrders_Pagination(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantPage repository.Page
	}{
		{name: "no params returns everything", query: "", wantPage: repository.Page{}},
		{name: "explicit page and limit", query: "?page=2&limit=5", wantPage: repository.Page{Page: 2, Limit: 5}},
		{name: "limit is capped", query: "?limit=1000", wantPage: repository.Page{Page: 1, Limit: 100}},
		{name: "garbage falls back to defaults", query: "?page=x&limit=-3", wantPage: repository.Page{Page: 1, Limit: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPage repository.Page
			svc := &mockOrderService{
				GetMyOrdersFn: func(_ context.Context, userID string, page repository.Page) ([]models.Order, int64, error) {
					assert.Equal(t, "alice", userID)
					gotPage = page
					return []models.Order{{ID: primitive.NewObjectID()}}, 42, nil
				},
			}

			w := do(setupOrderRouter(svc, "alice", models.RoleUser), http.MethodGet, "/api/orders/myorders"+tt.query, "", nil)

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.wantPage, gotPage)
			assert.Equal(t, "42", w.Header().Get(TotalCountHeader))
			var orders []models.Order
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &orders))
			assert.Len(t, orders, 1)
		})
	}
}

func TestGetOrders(t *testing.T) {
	svc := &mockOrderService{
		GetOrdersFn: func(_ context.Context, identity models.Identity, _ repository.Page) ([]models.OrderWithOwner, int64, error) {
			if !identity.IsAdmin() {
				return nil, 0, apperrors.ErrForbidden
			}
			return []models.OrderWithOwner{{
				Order: models.Order{ID: primitive.NewObjectID(), UserID: "alice"},
				User:  models.UserSummary{ID: "alice", Name: "Alice"},
			}}, 1, nil
		},
	}

	w := do(setupOrderRouter(svc, "root", models.RoleAdmin), http.MethodGet, "/api/orders", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Alice"`)

	w = do(setupOrderRouter(svc, "alice", models.RoleUser), http.MethodGet, "/api/orders", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMarkDelivered(t *testing.T) {
	orderID := primitive.NewObjectID()
	svc := &mockOrderService{
		MarkDeliveredFn: func(_ context.Context, identity models.Identity, id string) (*models.Order, error) {
			if id != orderID.Hex() {
				return nil, apperrors.NotFound("Order")
			}
			return &models.Order{ID: orderID, Status: models.OrderStatusDelivered}, nil
		},
	}
	r := setupOrderRouter(svc, "root", models.RoleAdmin)

	w := do(r, http.MethodPut, "/api/orders/"+orderID.Hex()+"/deliver", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"delivered"`)

	w = do(r, http.MethodPut, "/api/orders/"+primitive.NewObjectID().Hex()+"/deliver", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
