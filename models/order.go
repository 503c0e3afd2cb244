package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "placed"
	OrderStatusDelivered OrderStatus = "delivered"
)

// OrderItem snapshots the product name and unit price at placement time
type OrderItem struct {
	Product  primitive.ObjectID `bson:"product" json:"product"`
	Name     string             `bson:"name" json:"name"`
	Quantity int                `bson:"quantity" json:"quantity"`
	Price    Money              `bson:"price" json:"price"`
}

// Subtotal is price times quantity
func (i OrderItem) Subtotal() Money {
	return i.Price.Mul(i.Quantity)
}

type ShippingAddress struct {
	Address    string `bson:"address" json:"address" binding:"required"`
	City       string `bson:"city" json:"city" binding:"required"`
	PostalCode string `bson:"postalCode" json:"postalCode" binding:"required"`
	Country    string `bson:"country" json:"country" binding:"required"`
}

type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID          string             `bson:"user" json:"user"`
	Items           []OrderItem        `bson:"items" json:"items"`
	Total           Money              `bson:"total" json:"total"`
	ShippingAddress ShippingAddress    `bson:"shippingAddress" json:"shippingAddress"`
	PaymentMethod   string             `bson:"paymentMethod" json:"paymentMethod"`
	Status          OrderStatus        `bson:"status" json:"status"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
	DeliveredAt     *time.Time         `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
}

// IsDelivered reports whether the order reached its final state
func (o *Order) IsDelivered() bool {
	return o.Status == OrderStatusDelivered
}

// OrderWithOwner is an order with its owner's display fields resolved. The
// embedded user id is replaced in JSON by the nested user object.
type OrderWithOwner struct {
	Order
	User UserSummary `json:"user"`
}
