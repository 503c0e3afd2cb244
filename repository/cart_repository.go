package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yashrajoria/shopswift-api/database"
	"github.com/yashrajoria/shopswift-api/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type CartRepository struct {
	collection *mongo.Collection
}

func NewCartRepository(db *mongo.Database) *CartRepository {
	return &CartRepository{collection: db.Collection(database.CartsCollection)}
}

func (r *CartRepository) FindByUser(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := r.collection.FindOne(ctx, bson.M{"user": userID}).Decode(&cart)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// cartWithProducts is the shape produced by the lookup pipeline
type cartWithProducts struct {
	models.Cart `bson:",inline"`
	Products    []models.Product `bson:"products"`
}

// FindWithProducts loads the cart and resolves every line's product in one
// aggregation. Lines keep cart order.
func (r *CartRepository) FindWithProducts(ctx context.Context, userID string) (*models.CartView, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user": userID}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         database.ProductsCollection,
			"localField":   "items.product",
			"foreignField": "_id",
			"as":           "products",
		}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if !cursor.Next(ctx) {
		if err := cursor.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}

	var doc cartWithProducts
	if err := cursor.Decode(&doc); err != nil {
		return nil, err
	}

	byID := make(map[primitive.ObjectID]*models.Product, len(doc.Products))
	for i := range doc.Products {
		byID[doc.Products[i].ID] = &doc.Products[i]
	}
	view := &models.CartView{Cart: doc.Cart, Lines: make([]models.CartLine, 0, len(doc.Items))}
	for _, item := range doc.Items {
		view.Lines = append(view.Lines, models.CartLine{Item: item, Product: byID[item.Product]})
	}
	return view, nil
}

func (r *CartRepository) Save(ctx context.Context, cart *models.Cart) error {
	now := time.Now().UTC()
	next := cart.Version + 1

	if cart.ID.IsZero() {
		doc := *cart
		doc.ID = primitive.NewObjectID()
		doc.Version = next
		doc.CreatedAt = now
		doc.UpdatedAt = now
		if _, err := r.collection.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return ErrConflict
			}
			return err
		}
		*cart = doc
		return nil
	}

	filter := versionFilter(bson.M{"_id": cart.ID}, cart.Version)
	update := bson.M{"$set": bson.M{
		"items":     cart.Items,
		"version":   next,
		"updatedAt": now,
	}}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrConflict
	}
	cart.Version = next
	cart.UpdatedAt = now
	return nil
}

func (r *CartRepository) DeleteIfUnchanged(ctx context.Context, userID string, version int64) error {
	res, err := r.collection.DeleteOne(ctx, versionFilter(bson.M{"user": userID}, version))
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrConflict
	}
	return nil
}

// versionFilter matches version v. Carts written before versioning have no
// version field and count as version 0.
func versionFilter(filter bson.M, v int64) bson.M {
	if v == 0 {
		filter["$or"] = bson.A{
			bson.M{"version": 0},
			bson.M{"version": bson.M{"$exists": false}},
		}
		return filter
	}
	filter["version"] = v
	return filter
}
