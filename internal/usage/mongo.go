package usage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoStore implements Store for MongoDB deployments. Cleanup is delegated
// to a TTL index when a retention is configured.
type MongoStore struct {
	collection *mongo.Collection
}

// NewMongoStore wires the usage collection and ensures its indexes. Index
// creation failures are logged, not fatal.
func NewMongoStore(database *mongo.Database, retentionDays int, logger *slog.Logger) (*MongoStore, error) {
	if database == nil {
		return nil, fmt.Errorf("database is required")
	}
	collection := database.Collection("usage_logs")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "tenant_id", Value: 1}}},
		{Keys: bson.D{{Key: "conversation_id", Value: 1}}},
		{Keys: bson.D{{Key: "model_id", Value: 1}}},
	}
	if retentionDays > 0 {
		ttlSeconds := int32(int64(retentionDays) * 24 * 60 * 60)
		indexes = append(indexes, mongo.IndexModel{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetExpireAfterSeconds(ttlSeconds),
		})
	} else {
		indexes = append(indexes, mongo.IndexModel{
			Keys: bson.D{{Key: "created_at", Value: -1}},
		})
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		logger.Warn("failed to create usage indexes", "error", err)
	}

	return &MongoStore{collection: collection}, nil
}

func (s *MongoStore) Insert(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if _, err := s.collection.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("insert usage log: %w", err)
	}
	return nil
}
