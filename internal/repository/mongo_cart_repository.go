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

type MongoCartRepository struct {
	collection *mongo.Collection
}

func NewMongoCartRepository(db *mongo.Database) *MongoCartRepository {
	return &MongoCartRepository{collection: db.Collection("carts")}
}

func (m *MongoCartRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // 90 days TTL
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create cart indexes: %w", err)
	}
	return nil
}

func (m *MongoCartRepository) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	var cart domain.Cart
	if err := m.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&cart); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}
	cart.Recalculate()
	return &cart, nil
}

func (m *MongoCartRepository) SaveCart(ctx context.Context, cart *domain.Cart) error {
	now := time.Now().UTC()

	if cart.Version == 0 {
		doc := cart.Clone()
		if doc.ID == "" {
			doc.ID = uuid.NewString()
		}
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = now
		}
		doc.UpdatedAt = now
		doc.Version = 1
		if _, err := m.collection.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return ErrVersionConflict
			}
			return fmt.Errorf("failed to insert cart: %w", err)
		}
		*cart = *doc
		return nil
	}

	filter := bson.M{"user_id": cart.UserID, "version": cart.Version}
	update := bson.M{"$set": bson.M{
		"items":      cart.Items,
		"totals":     cart.Totals,
		"currency":   cart.Currency,
		"updated_at": now,
		"version":    cart.Version + 1,
	}}
	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrVersionConflict
	}
	cart.Version++
	cart.UpdatedAt = now
	return nil
}
