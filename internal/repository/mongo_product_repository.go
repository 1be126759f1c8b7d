package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/domain"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoProductRepository struct {
	collection *mongo.Collection
}

func NewMongoProductRepository(db *mongo.Database) *MongoProductRepository {
	return &MongoProductRepository{collection: db.Collection("products")}
}

func (m *MongoProductRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "title", Value: "text"}, {Key: "description", Value: "text"}},
		},
		{
			Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "created_at", Value: -1}},
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create product indexes: %w", err)
	}
	return nil
}

func (m *MongoProductRepository) CreateProduct(ctx context.Context, p *domain.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.Categories == nil {
		p.Categories = []string{}
	}
	if p.Images == nil {
		p.Images = []domain.Image{}
	}

	if _, err := m.collection.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (m *MongoProductRepository) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m *MongoProductRepository) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return m.findOne(ctx, bson.M{"slug": slug})
}

func (m *MongoProductRepository) findOne(ctx context.Context, filter bson.M) (*domain.Product, error) {
	var p domain.Product
	if err := m.collection.FindOne(ctx, filter).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

func (m *MongoProductRepository) ListProducts(ctx context.Context, q ProductQuery) ([]*domain.Product, int64, error) {
	q = q.Normalize()

	filter := bson.M{}
	if q.ActiveOnly {
		filter["is_active"] = true
	}
	if q.Search != "" {
		filter["$text"] = bson.M{"$search": q.Search}
	}

	total, err := m.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(q.Skip()).
		SetLimit(int64(q.Limit))
	cur, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer cur.Close(ctx)

	products := make([]*domain.Product, 0, q.Limit)
	if err := cur.All(ctx, &products); err != nil {
		return nil, 0, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, total, nil
}

func (m *MongoProductRepository) UpdateProduct(ctx context.Context, id string, upd domain.ProductUpdate) (*domain.Product, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Title != nil {
		set["title"] = *upd.Title
	}
	if upd.Slug != nil {
		set["slug"] = *upd.Slug
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Price != nil {
		set["price"] = *upd.Price
	}
	if upd.Stock != nil {
		set["stock"] = *upd.Stock
	}
	if upd.IsActive != nil {
		set["is_active"] = *upd.IsActive
	}
	if upd.Categories != nil {
		set["categories"] = upd.Categories
	}
	if upd.Images != nil {
		set["images"] = upd.Images
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p domain.Product
	err := m.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&p)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, ErrProductNotFound
	case mongo.IsDuplicateKeyError(err):
		return nil, ErrDuplicateSlug
	case err != nil:
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return &p, nil
}

func (m *MongoProductRepository) DeleteProduct(ctx context.Context, id string) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}

// DecrementStock is a single conditional update: the stock filter and the $inc
// run as one document operation, so two checkouts cannot both take the last unit.
func (m *MongoProductRepository) DecrementStock(ctx context.Context, id string, qty int) error {
	filter := bson.M{"_id": id, "is_active": true, "stock": bson.M{"$gte": qty}}
	update := bson.M{
		"$inc": bson.M{"stock": -qty},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	if result.MatchedCount == 1 {
		return nil
	}

	n, err := m.collection.CountDocuments(ctx, bson.M{"_id": id, "is_active": true})
	if err != nil {
		return fmt.Errorf("failed to check product: %w", err)
	}
	if n == 0 {
		return ErrProductNotFound
	}
	return ErrInsufficientStock
}

func (m *MongoProductRepository) IncrementStock(ctx context.Context, id string, qty int) error {
	update := bson.M{
		"$inc": bson.M{"stock": qty},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	result, err := m.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to increment stock: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (m *MongoProductRepository) Ping(ctx context.Context) error {
	return m.collection.Database().Client().Ping(ctx, nil)
}
