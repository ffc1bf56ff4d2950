package orders

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Store against a MongoDB "orders" collection.
type MongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(client *mongo.Client) *MongoStore {
	collection := client.Database("orders").Collection("orders")
	return &MongoStore{collection: collection}
}

func (s *MongoStore) CreatePending(ctx context.Context, spec Spec) (Order, error) {
	if spec.Quantity < 1 || spec.PriceAtPurchase < 0 || spec.StockID == "" {
		return Order{}, ErrInvalidSpec
	}

	now := time.Now()
	doc := bson.M{
		"userId":          spec.UserID,
		"stockId":         spec.StockID,
		"quantity":        spec.Quantity,
		"priceAtPurchase": spec.PriceAtPurchase,
		"status":          string(StatusPending),
		"isVip":           spec.IsVIP,
		"failureReason":   "",
		"attempts":        0,
		"createdAt":       now,
		"updatedAt":       now,
	}

	result, err := s.collection.InsertOne(ctx, doc)
	if err != nil {
		return Order{}, err
	}

	oid := result.InsertedID.(primitive.ObjectID)
	return Order{
		ID:              oid.Hex(),
		UserID:          spec.UserID,
		StockID:         spec.StockID,
		Quantity:        spec.Quantity,
		PriceAtPurchase: spec.PriceAtPurchase,
		Status:          StatusPending,
		IsVIP:           spec.IsVIP,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// markTerminal atomically transitions id to status via a single
// FindOneAndUpdate whose filter excludes documents already in a terminal
// status, making "terminal is sticky" a property of the write itself.
func (s *MongoStore) markTerminal(ctx context.Context, id, status, reason string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	filter := bson.M{
		"_id":    oid,
		"status": bson.M{"$nin": bson.A{string(StatusConfirmed), string(StatusFailed)}},
	}
	update := bson.M{"$set": bson.M{
		"status":        status,
		"failureReason": reason,
		"updatedAt":     time.Now(),
	}}

	res := s.collection.FindOneAndUpdate(ctx, filter, update)
	if err := res.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			exists, existsErr := s.collection.CountDocuments(ctx, bson.M{"_id": oid})
			if existsErr == nil && exists > 0 {
				return ErrAlreadyTerminal
			}
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *MongoStore) MarkConfirmed(ctx context.Context, id string) error {
	return s.markTerminal(ctx, id, string(StatusConfirmed), "")
}

func (s *MongoStore) MarkFailed(ctx context.Context, id, reason string) error {
	return s.markTerminal(ctx, id, string(StatusFailed), reason)
}

func (s *MongoStore) GetOrder(ctx context.Context, id string) (Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return Order{}, ErrNotFound
	}

	var doc bson.M
	err = s.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}
	return decodeOrder(doc), nil
}

func (s *MongoStore) ListOrdersByUser(ctx context.Context, userID string) ([]Order, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": -1})
	cursor, err := s.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var res []Order
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		res = append(res, decodeOrder(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func decodeOrder(doc bson.M) Order {
	o := Order{
		UserID:          getString(doc, "userId"),
		StockID:         getString(doc, "stockId"),
		Quantity:        getInt64(doc, "quantity"),
		PriceAtPurchase: getFloat64(doc, "priceAtPurchase"),
		Status:          Status(getString(doc, "status")),
		IsVIP:           getBool(doc, "isVip"),
		FailureReason:   getString(doc, "failureReason"),
		Attempts:        int(getInt64(doc, "attempts")),
	}
	if oid, ok := doc["_id"].(primitive.ObjectID); ok {
		o.ID = oid.Hex()
	}
	if t, ok := doc["createdAt"].(primitive.DateTime); ok {
		o.CreatedAt = t.Time()
	}
	if t, ok := doc["updatedAt"].(primitive.DateTime); ok {
		o.UpdatedAt = t.Time()
	}
	return o
}

func getString(m bson.M, key string) string {
	if val, ok := m[key].(string); ok {
		return val
	}
	return ""
}

func getBool(m bson.M, key string) bool {
	if val, ok := m[key].(bool); ok {
		return val
	}
	return false
}

func getInt64(m bson.M, key string) int64 {
	switch v := m[key].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	}
	return 0
}

func getFloat64(m bson.M, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	}
	return 0
}

var _ Store = (*MongoStore)(nil)
