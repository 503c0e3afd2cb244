package services

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/yashrajoria/shopswift-api/common/errors"
	"github.com/yashrajoria/shopswift-api/common/logger"
	"github.com/yashrajoria/shopswift-api/events"
	"github.com/yashrajoria/shopswift-api/models"
	awspkg "github.com/yashrajoria/shopswift-api/pkg/aws"
	"github.com/yashrajoria/shopswift-api/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// PlaceOrderRequest is the checkout input. Items and prices always come from
// the caller's cart and the catalog.
type PlaceOrderRequest struct {
	ShippingAddress models.ShippingAddress `json:"shippingAddress" binding:"required"`
	PaymentMethod   string                 `json:"paymentMethod" binding:"required"`
}

// OrderService defines the order business logic.
type OrderService interface {
	// PlaceOrder turns the caller's cart into an order. replayed is true when
	// idempotencyKey matched an order created by an earlier request.
	PlaceOrder(ctx context.Context, identity models.Identity, req PlaceOrderRequest, idempotencyKey string) (order *models.Order, replayed bool, err error)
	GetOrderByID(ctx context.Context, identity models.Identity, orderID string) (*models.Order, error)
	GetMyOrders(ctx context.Context, userID string, page repository.Page) ([]models.Order, int64, error)
	GetOrders(ctx context.Context, identity models.Identity, page repository.Page) ([]models.OrderWithOwner, int64, error)
	MarkDelivered(ctx context.Context, identity models.Identity, orderID string) (*models.Order, error)
}

// Metrics is the subset of the CloudWatch client used for business counters
type Metrics interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
	RecordLatency(ctx context.Context, metricName string, duration time.Duration, dimensions map[string]string) error
}

// DefaultPublishTimeout bounds event publishing when OrderServiceDeps leaves
// PublishTimeout unset.
const DefaultPublishTimeout = 2 * time.Second

// OrderServiceDeps wires an OrderService. Idempotency, Publisher and Metrics
// are optional.
type OrderServiceDeps struct {
	Products     repository.ProductRepo
	Carts        repository.CartRepo
	Orders       repository.OrderRepo
	Users        repository.UserRepo
	Idempotency  repository.IdempotencyRepo
	Transactor   repository.Transactor
	Publisher    events.Publisher
	Metrics      Metrics
	Logger       *zap.Logger
	PlaceTimeout time.Duration
	// PublishTimeout caps how long a committed order waits on the broker
	PublishTimeout time.Duration
	ServiceName    string
	Clock          func() time.Time
}

type orderServiceImpl struct {
	products       repository.ProductRepo
	carts          repository.CartRepo
	orders         repository.OrderRepo
	users          repository.UserRepo
	idem           repository.IdempotencyRepo
	tx             repository.Transactor
	publisher      events.Publisher
	metrics        Metrics
	logger         *zap.Logger
	placeTimeout   time.Duration
	publishTimeout time.Duration
	dimensions     map[string]string
	clock          func() time.Time
}

// NewOrderService creates a new OrderService.
func NewOrderService(d OrderServiceDeps) OrderService {
	s := &orderServiceImpl{
		products:       d.Products,
		carts:          d.Carts,
		orders:         d.Orders,
		users:          d.Users,
		idem:           d.Idempotency,
		tx:             d.Transactor,
		publisher:      d.Publisher,
		metrics:        d.Metrics,
		logger:         d.Logger,
		placeTimeout:   d.PlaceTimeout,
		publishTimeout: d.PublishTimeout,
		dimensions:     map[string]string{"Service": d.ServiceName},
		clock:          d.Clock,
	}
	if s.tx == nil {
		s.tx = repository.NewSequentialTransactor()
	}
	if s.logger == nil {
		s.logger = logger.Log
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.publishTimeout <= 0 {
		s.publishTimeout = DefaultPublishTimeout
	}
	return s
}

func (s *orderServiceImpl) PlaceOrder(ctx context.Context, identity models.Identity, req PlaceOrderRequest, idempotencyKey string) (*models.Order, bool, error) {
	if idempotencyKey == "" || s.idem == nil {
		order, err := s.placeOrder(ctx, identity, req)
		return order, false, err
	}

	key := identity.UserID + ":" + idempotencyKey
	existingID, reserved, err := s.idem.Reserve(ctx, key)
	if err != nil {
		return nil, false, s.storageFailure(ctx, "Idempotency reserve failed", err)
	}
	if !reserved {
		if existingID == "" {
			return nil, false, apperrors.ErrRequestInFlight
		}
		order, err := s.replay(ctx, identity, existingID)
		return order, err == nil, err
	}

	detached := context.WithoutCancel(ctx)
	order, err := s.placeOrder(ctx, identity, req)
	if err != nil {
		if relErr := s.idem.Release(detached, key); relErr != nil {
			logger.Warn(ctx, "Failed to release idempotency key", zap.String("key", key), zap.Error(relErr))
		}
		return nil, false, err
	}
	if err := s.idem.Complete(detached, key, order.ID.Hex()); err != nil {
		logger.Warn(ctx, "Failed to record idempotency key", zap.String("key", key), zap.Error(err))
	}
	return order, false, nil
}

func (s *orderServiceImpl) replay(ctx context.Context, identity models.Identity, orderID string) (*models.Order, error) {
	id, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return nil, s.storageFailure(ctx, "Corrupt idempotency record", err)
	}
	order, err := s.orders.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("Order")
	}
	if err != nil {
		return nil, s.storageFailure(ctx, "Failed to load replayed order", err)
	}
	if !identity.CanAccess(order.UserID) {
		return nil, apperrors.ErrForbidden
	}
	s.count(ctx, awspkg.MetricIdempotentReplays)
	logger.Info(ctx, "Replayed order for idempotency key", zap.String("order_id", orderID))
	return order, nil
}

func (s *orderServiceImpl) placeOrder(ctx context.Context, identity models.Identity, req PlaceOrderRequest) (*models.Order, error) {
	start := s.clock()
	if s.placeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.placeTimeout)
		defer cancel()
	}

	order, err := s.placeOrderOnce(ctx, identity, req)
	if err != nil {
		s.count(ctx, awspkg.MetricOrdersFailed)
		return nil, err
	}

	s.count(ctx, awspkg.MetricOrdersCreated)
	if s.metrics != nil {
		_ = s.metrics.RecordLatency(ctx, awspkg.MetricOrderPlaceLatency, s.clock().Sub(start), s.dimensions)
	}
	logger.Info(ctx, "Order placed",
		zap.String("order_id", order.ID.Hex()),
		zap.String("user_id", order.UserID),
		zap.String("total", order.Total.String()),
		zap.Int("items", len(order.Items)),
	)
	s.publish(ctx, events.TypeOrderPlaced, order)
	return order, nil
}

func (s *orderServiceImpl) placeOrderOnce(ctx context.Context, identity models.Identity, req PlaceOrderRequest) (*models.Order, error) {
	view, err := s.carts.FindWithProducts(ctx, identity.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrEmptyCart
	}
	if err != nil {
		return nil, s.storageFailure(ctx, "Failed to load cart", err)
	}
	if view.IsEmpty() {
		return nil, apperrors.ErrEmptyCart
	}

	// Fail fast on stock that is already short. The conditional decrement
	// below is what actually guarantees stock never goes negative.
	items := make([]models.OrderItem, 0, len(view.Lines))
	var total models.Money
	for _, line := range view.Lines {
		if line.Product == nil {
			return nil, apperrors.InsufficientStock(line.Item.Product.Hex())
		}
		if line.Product.Stock < line.Item.Quantity {
			return nil, apperrors.InsufficientStock(line.Product.Name)
		}
		item := models.OrderItem{
			Product:  line.Product.ID,
			Name:     line.Product.Name,
			Quantity: line.Item.Quantity,
			Price:    line.Product.Price,
		}
		items = append(items, item)
		total = total.Add(item.Subtotal())
	}

	now := s.clock().UTC()
	order := &models.Order{
		ID:              primitive.NewObjectID(),
		UserID:          identity.UserID,
		Items:           items,
		Total:           total,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		Status:          models.OrderStatusPlaced,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var undo compensationLog
	err = s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		// the transactor may retry fn; only the last attempt's writes count
		undo.reset()

		if err := s.orders.Create(txCtx, order); err != nil {
			return err
		}
		undo.add("delete order", func(c context.Context) error {
			return s.orders.Delete(c, order.ID)
		})

		for _, item := range order.Items {
			item := item // per-iteration copy for the undo closure (go 1.21 loop semantics)
			if err := s.products.DecrementStock(txCtx, item.Product, item.Quantity); err != nil {
				if errors.Is(err, repository.ErrInsufficientStock) {
					s.count(ctx, awspkg.MetricStockConflicts)
					return apperrors.InsufficientStock(item.Name)
				}
				return err
			}
			undo.add("restock "+item.Product.Hex(), func(c context.Context) error {
				return s.products.IncrementStock(c, item.Product, item.Quantity)
			})
		}

		if err := s.carts.DeleteIfUnchanged(txCtx, identity.UserID, view.Cart.Version); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return apperrors.ErrCartConflict
			}
			return err
		}
		return nil
	})
	if err != nil {
		if !s.tx.Atomic() {
			if failed := undo.rollback(context.WithoutCancel(ctx), s.logger); failed > 0 {
				logger.Error(ctx, "Order placement left partial writes", nil,
					zap.String("order_id", order.ID.Hex()), zap.Int("failed_compensations", failed))
			}
		}
		var appErr *apperrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, s.storageFailure(ctx, "Order placement failed", err)
	}
	return order, nil
}

func (s *orderServiceImpl) GetOrderByID(ctx context.Context, identity models.Identity, orderID string) (*models.Order, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !identity.CanAccess(order.UserID) {
		return nil, apperrors.ErrForbidden
	}
	return order, nil
}

func (s *orderServiceImpl) GetMyOrders(ctx context.Context, userID string, page repository.Page) ([]models.Order, int64, error) {
	orders, total, err := s.orders.FindByUser(ctx, userID, page)
	if err != nil {
		return nil, 0, s.storageFailure(ctx, "Failed to list orders", err)
	}
	return orders, total, nil
}

func (s *orderServiceImpl) GetOrders(ctx context.Context, identity models.Identity, page repository.Page) ([]models.OrderWithOwner, int64, error) {
	if !identity.IsAdmin() {
		return nil, 0, apperrors.ErrForbidden
	}

	orders, total, err := s.orders.FindAll(ctx, page)
	if err != nil {
		return nil, 0, s.storageFailure(ctx, "Failed to list orders", err)
	}

	ids := make([]string, 0, len(orders))
	seen := make(map[string]struct{}, len(orders))
	for _, o := range orders {
		if _, ok := seen[o.UserID]; !ok {
			seen[o.UserID] = struct{}{}
			ids = append(ids, o.UserID)
		}
	}

	var users map[string]models.UserSummary
	if s.users != nil {
		users, err = s.users.FindSummaries(ctx, ids)
		if err != nil {
			return nil, 0, s.storageFailure(ctx, "Failed to resolve order owners", err)
		}
	}

	out := make([]models.OrderWithOwner, 0, len(orders))
	for _, o := range orders {
		owner, ok := users[o.UserID]
		if !ok {
			owner = models.UserSummary{ID: o.UserID}
		}
		out = append(out, models.OrderWithOwner{Order: o, User: owner})
	}
	return out, total, nil
}

func (s *orderServiceImpl) MarkDelivered(ctx context.Context, identity models.Identity, orderID string) (*models.Order, error) {
	if !identity.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}
	id, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return nil, apperrors.NotFound("Order")
	}

	// stored timestamps have millisecond precision
	now := s.clock().UTC().Truncate(time.Millisecond)
	order, err := s.orders.MarkDelivered(ctx, id, now)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("Order")
	}
	if err != nil {
		return nil, s.storageFailure(ctx, "Failed to mark order delivered", err)
	}

	// repeat calls return the stored order without a new event
	if order.DeliveredAt != nil && order.DeliveredAt.Equal(now) {
		s.count(ctx, awspkg.MetricOrdersDelivered)
		logger.Info(ctx, "Order delivered", zap.String("order_id", orderID))
		s.publish(ctx, events.TypeOrderDelivered, order)
	}
	return order, nil
}

func (s *orderServiceImpl) findOrder(ctx context.Context, orderID string) (*models.Order, error) {
	id, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return nil, apperrors.NotFound("Order")
	}
	order, err := s.orders.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("Order")
	}
	if err != nil {
		return nil, s.storageFailure(ctx, "Failed to load order", err)
	}
	return order, nil
}

// publish is best effort. The order is already committed, so a broker outage
// is logged and never reported to the caller. The request's own deadline is
// dropped and replaced by publishTimeout.
func (s *orderServiceImpl) publish(ctx context.Context, eventType string, order *models.Order) {
	if s.publisher == nil {
		return
	}
	ev := events.NewOrderEvent(eventType, order, s.clock())
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, ev); err != nil {
		logger.Warn(ctx, "Failed to publish order event",
			zap.String("event_type", eventType),
			zap.String("order_id", ev.OrderID),
			zap.Error(err),
		)
	}
}

func (s *orderServiceImpl) count(ctx context.Context, metric string) {
	if s.metrics == nil {
		return
	}
	if err := s.metrics.RecordCount(context.WithoutCancel(ctx), metric, s.dimensions); err != nil {
		s.logger.Debug("metric not recorded", zap.String("metric", metric), zap.Error(err))
	}
}

func (s *orderServiceImpl) storageFailure(ctx context.Context, msg string, err error) error {
	logger.Error(ctx, msg, err)
	return apperrors.StorageFailure(err)
}
