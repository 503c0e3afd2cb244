package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CartItem struct {
	ID       primitive.ObjectID `bson:"_id" json:"_id"`
	Product  primitive.ObjectID `bson:"product" json:"product"`
	Quantity int                `bson:"quantity" json:"quantity"`
}

// Cart is the single cart owned by a user. Version increases on every write
// and guards concurrent mutation.
type Cart struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID    string             `bson:"user" json:"user"`
	Items     []CartItem         `bson:"items" json:"items"`
	Version   int64              `bson:"version" json:"version"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// CartLine is a cart item with its product resolved. Product is nil when the
// referenced product no longer exists.
type CartLine struct {
	Item    CartItem `json:"item"`
	Product *Product `json:"product"`
}

// CartView is a cart read together with its products
type CartView struct {
	Cart  Cart       `json:"cart"`
	Lines []CartLine `json:"lines"`
}

// IsEmpty reports whether the view has no lines
func (v *CartView) IsEmpty() bool {
	return v == nil || len(v.Lines) == 0
}
