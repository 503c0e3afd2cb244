package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yashrajoria/shopswift-api/common/errors"
	"github.com/yashrajoria/shopswift-api/middleware"
	"github.com/yashrajoria/shopswift-api/services"
)

// IdempotencyKeyHeader lets clients retry order placement safely
const IdempotencyKeyHeader = "Idempotency-Key"

const maxIdempotencyKeyLength = 128

type OrderController struct {
	orderService services.OrderService
}

func NewOrderController(orderService services.OrderService) *OrderController {
	return &OrderController{orderService: orderService}
}

// CreateOrder places an order from the caller's cart
func (oc *OrderController) CreateOrder(c *gin.Context) {
	identity, err := middleware.GetIdentity(c)
	if err != nil {
		respondError(c, apperrors.ErrUnauthorized)
		return
	}

	key := c.GetHeader(IdempotencyKeyHeader)
	if len(key) > maxIdempotencyKeyLength {
		respondError(c, apperrors.Validation(map[string]string{
			IdempotencyKeyHeader: "must be at most " + strconv.Itoa(maxIdempotencyKeyLength) + " characters",
		}))
		return
	}

	var req services.PlaceOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	order, replayed, err := oc.orderService.PlaceOrder(c.Request.Context(), identity, req, key)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	c.JSON(status, order)
}

// GetOrderByID returns one order to its owner or an admin
func (oc *OrderController) GetOrderByID(c *gin.Context) {
	identity, err := middleware.GetIdentity(c)
	if err != nil {
		respondError(c, apperrors.ErrUnauthorized)
		return
	}

	order, err := oc.orderService.GetOrderByID(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// GetMyOrders lists the caller's orders, newest first
func (oc *OrderController) GetMyOrders(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, apperrors.ErrUnauthorized)
		return
	}

	orders, total, err := oc.orderService.GetMyOrders(c.Request.Context(), userID, parsePaginationParams(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header(TotalCountHeader, strconv.FormatInt(total, 10))
	c.JSON(http.StatusOK, orders)
}

// GetOrders lists every order with its owner (admin only)
func (oc *OrderController) GetOrders(c *gin.Context) {
	identity, err := middleware.GetIdentity(c)
	if err != nil {
		respondError(c, apperrors.ErrUnauthorized)
		return
	}

	orders, total, err := oc.orderService.GetOrders(c.Request.Context(), identity, parsePaginationParams(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header(TotalCountHeader, strconv.FormatInt(total, 10))
	c.JSON(http.StatusOK, orders)
}

// MarkDelivered sets an order to delivered (admin only)
func (oc *OrderController) MarkDelivered(c *gin.Context) {
	identity, err := middleware.GetIdentity(c)
	if err != nil {
		respondError(c, apperrors.ErrUnauthorized)
		return
	}

	order, err := oc.orderService.MarkDelivered(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
