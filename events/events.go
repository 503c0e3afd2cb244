package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/shopswift-api/models"
)

const (
	TypeOrderPlaced    = "order.placed"
	TypeOrderDelivered = "order.delivered"
)

// Event is the payload published when an order changes state
type Event struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	OrderID    string             `json:"orderId"`
	UserID     string             `json:"userId"`
	Status     models.OrderStatus `json:"status"`
	Total      models.Money       `json:"total"`
	Items      []EventItem        `json:"items,omitempty"`
	OccurredAt time.Time          `json:"occurredAt"`
}

type EventItem struct {
	ProductID string       `json:"productId"`
	Quantity  int          `json:"quantity"`
	Price     models.Money `json:"price"`
}

// NewOrderEvent builds an event of the given type from the order's current state
func NewOrderEvent(eventType string, o *models.Order, at time.Time) Event {
	ev := Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OrderID:    o.ID.Hex(),
		UserID:     o.UserID,
		Status:     o.Status,
		Total:      o.Total,
		OccurredAt: at.UTC(),
	}
	for _, it := range o.Items {
		ev.Items = append(ev.Items, EventItem{
			ProductID: it.Product.Hex(),
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	return ev
}

func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers order events to a broker
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// MultiPublisher fans an event out to every configured broker. One broker
// failing does not stop delivery to the others.
type MultiPublisher struct {
	publishers []Publisher
}

func NewMultiPublisher(publishers ...Publisher) *MultiPublisher {
	return &MultiPublisher{publishers: publishers}
}

func (m *MultiPublisher) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiPublisher) Close() error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len is the number of configured brokers
func (m *MultiPublisher) Len() int { return len(m.publishers) }
