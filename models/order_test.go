package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Orders written by the Node service store the user as an ObjectId, prices
// as doubles and no item names.
func TestOrder_DecodesLegacyDocument(t *testing.T) {
	userID := primitive.NewObjectID()
	productID := primitive.NewObjectID()
	doc, err := bson.Marshal(bson.M{
		"_id":  primitive.NewObjectID(),
		"user": userID,
		"items": bson.A{
			bson.M{"product": productID, "quantity": int32(3), "price": 19.99},
		},
		"total":           59.97,
		"shippingAddress": bson.M{"address": "1 Main St", "city": "Springfield", "postalCode": "12345", "country": "US"},
		"paymentMethod":   "PayPal",
		"status":          "placed",
		"createdAt":       time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	var order Order
	require.NoError(t, bson.Unmarshal(doc, &order))

	assert.Equal(t, userID.Hex(), order.UserID)
	require.Len(t, order.Items, 1)
	assert.Equal(t, productID, order.Items[0].Product)
	assert.Equal(t, 3, order.Items[0].Quantity)
	assert.True(t, order.Items[0].Price.Equal(MustMoney("19.99")), "got %s", order.Items[0].Price)
	assert.True(t, order.Total.Equal(MustMoney("59.97")), "got %s", order.Total)
	assert.Equal(t, "Springfield", order.ShippingAddress.City)
	assert.Equal(t, OrderStatusPlaced, order.Status)
}

func TestOrder_FieldNames(t *testing.T) {
	o := Order{
		Items: []OrderItem{{Product: primitive.NewObjectID(), Name: "Lamp", Quantity: 2, Price: MustMoney("10")}},
		Total: MustMoney("20"),
	}

	b, err := json.Marshal(o)
	require.NoError(t, err)
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Contains(t, m, "items")
	assert.Equal(t, float64(20), m["total"])

	raw, err := bson.Marshal(o)
	require.NoError(t, err)
	var stored bson.M
	require.NoError(t, bson.Unmarshal(raw, &stored))
	assert.Contains(t, stored, "items")
	assert.Contains(t, stored, "total")
}
